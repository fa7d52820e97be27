// Package redisstore persists options as Redis hashes. Each entry lives at
// `<prefix>:<identifier>` with a msgpack encoded `value` field and an
// `autoload` flag.
package redisstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/goliatone/go-options-overlay/pkg/store"
	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"
)

// DefaultPrefix namespaces every key written by the store.
const DefaultPrefix = "overlay"

const (
	fieldValue    = "value"
	fieldAutoload = "autoload"
)

// addScript writes the hash only when no value is stored yet.
var addScript = redis.NewScript(`
if redis.call('HSETNX', KEYS[1], 'value', ARGV[1]) == 1 then
	redis.call('HSET', KEYS[1], 'autoload', ARGV[2])
	return 1
end
return 0
`)

// Config describes the Redis connection.
type Config struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithPrefix overrides DefaultPrefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		if prefix = strings.TrimSpace(prefix); prefix != "" {
			s.prefix = prefix
		}
	}
}

// Store implements store.Store on a Redis client.
type Store struct {
	client redis.UniversalClient
	prefix string
	logger *zap.Logger
}

var _ store.Store = (*Store)(nil)

// Open connects to cfg.Addr and verifies the connection.
func Open(ctx context.Context, cfg Config, opts ...Option) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redisstore: ping %s: %w", cfg.Addr, err)
	}
	return New(client, append([]Option{WithPrefix(cfg.Prefix)}, opts...)...), nil
}

// New wraps client.
func New(client redis.UniversalClient, opts ...Option) *Store {
	s := &Store{client: client, prefix: DefaultPrefix, logger: zap.NewNop()}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	s.logger = s.logger.With(zap.String("component", "redisstore"))
	return s
}

// Close closes the client.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) key(ref store.Ref) (string, error) {
	id, err := ref.Identifier()
	if err != nil {
		return "", err
	}
	return s.prefix + ":" + id, nil
}

func (s *Store) Get(ctx context.Context, ref store.Ref) (store.Record, bool, error) {
	key, err := s.key(ref)
	if err != nil {
		return store.Record{}, false, err
	}
	fields, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return store.Record{}, false, fmt.Errorf("redisstore: get %s: %w", ref.Name, err)
	}
	return decodeRecord(ref.Name, fields)
}

func (s *Store) Add(ctx context.Context, ref store.Ref, value any, autoload bool) (bool, error) {
	key, err := s.key(ref)
	if err != nil {
		return false, err
	}
	raw, err := msgpack.Marshal(value)
	if err != nil {
		return false, fmt.Errorf("redisstore: encode %s: %w", ref.Name, err)
	}
	flag := "0"
	if autoload {
		flag = "1"
	}
	n, err := addScript.Run(ctx, s.client, []string{key}, raw, flag).Int()
	if err != nil {
		return false, fmt.Errorf("redisstore: add %s: %w", ref.Name, err)
	}
	s.logger.Debug("add", zap.String("key", key), zap.Bool("added", n == 1))
	return n == 1, nil
}

func (s *Store) Delete(ctx context.Context, ref store.Ref) (bool, error) {
	key, err := s.key(ref)
	if err != nil {
		return false, err
	}
	n, err := s.client.Del(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("redisstore: delete %s: %w", ref.Name, err)
	}
	s.logger.Debug("delete", zap.String("key", key), zap.Bool("deleted", n > 0))
	return n > 0, nil
}

// List scans the namespace's keys and loads them in one pipeline.
func (s *Store) List(ctx context.Context, ns store.Namespace, tenant int64) ([]store.Record, error) {
	if !ns.Valid() {
		return nil, store.ErrInvalidNamespace
	}
	base := fmt.Sprintf("%s:option/%d/", s.prefix, tenant)
	if ns == store.NamespaceSiteOption {
		base = s.prefix + ":site_option/"
	}

	var keys []string
	iter := s.client.Scan(ctx, 0, base+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redisstore: scan: %w", err)
	}
	if len(keys) == 0 {
		return nil, nil
	}
	sort.Strings(keys)

	pipe := s.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(keys))
	for i, key := range keys {
		cmds[i] = pipe.HGetAll(ctx, key)
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("redisstore: list: %w", err)
	}

	out := make([]store.Record, 0, len(keys))
	for i, key := range keys {
		record, ok, err := decodeRecord(strings.TrimPrefix(key, base), cmds[i].Val())
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, record)
		}
	}
	return out, nil
}

func decodeRecord(name string, fields map[string]string) (store.Record, bool, error) {
	raw, ok := fields[fieldValue]
	if !ok {
		return store.Record{}, false, nil
	}
	dec := msgpack.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseLooseInterfaceDecoding(true)
	value, err := dec.DecodeInterface()
	if err != nil {
		return store.Record{}, false, fmt.Errorf("redisstore: decode %s: %w", name, err)
	}
	return store.Record{Name: name, Value: value, Autoload: fields[fieldAutoload] != "0"}, true, nil
}
