package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-options-overlay/config"
	"github.com/goliatone/go-options-overlay/pkg/store"
	"github.com/goliatone/go-options-overlay/pkg/store/redisstore"
	"github.com/goliatone/go-options-overlay/pkg/store/sqlstore"
	"go.uber.org/zap"
)

// OpenStore connects the backend named by cfg.Driver. The returned close
// function is never nil.
func OpenStore(ctx context.Context, cfg config.StoreConfig, logger *zap.Logger) (store.Store, func() error, error) {
	noop := func() error { return nil }
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	switch driver {
	case "", "memory":
		return store.NewMemoryStore(), noop, nil
	case "redis":
		st, err := redisstore.Open(ctx, redisstore.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
		}, redisstore.WithLogger(logger))
		if err != nil {
			return nil, noop, err
		}
		return st, st.Close, nil
	default:
		st, err := sqlstore.Open(driver, cfg.DSN, sqlstore.WithLogger(logger))
		if err != nil {
			return nil, noop, fmt.Errorf("bootstrap: open %s store: %w", driver, err)
		}
		return st, st.Close, nil
	}
}
