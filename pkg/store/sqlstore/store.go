// Package sqlstore persists options in a relational database through GORM.
package sqlstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/glebarez/sqlite"
	"github.com/goliatone/go-options-overlay/pkg/store"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// ErrUnsupportedDriver indicates a driver name Open does not know.
var ErrUnsupportedDriver = errors.New("sqlstore: unsupported driver")

type optionRow struct {
	TenantID int64  `gorm:"primaryKey;autoIncrement:false"`
	Name     string `gorm:"primaryKey;size:191"`
	Value    string `gorm:"type:text;not null"`
	Autoload bool   `gorm:"not null;index"`
}

func (optionRow) TableName() string { return "overlay_options" }

type siteOptionRow struct {
	Name  string `gorm:"primaryKey;size:191"`
	Value string `gorm:"type:text;not null"`
}

func (siteOptionRow) TableName() string { return "overlay_site_options" }

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

// WithAutoMigrate toggles schema migration on construction. Enabled by
// default.
func WithAutoMigrate(enabled bool) Option {
	return func(s *Store) {
		s.migrate = enabled
	}
}

// Store implements store.Store on top of a *gorm.DB.
type Store struct {
	db      *gorm.DB
	logger  *zap.Logger
	migrate bool
}

var _ store.Store = (*Store)(nil)

// Dialector returns the GORM dialector for driver.
func Dialector(driver, dsn string) (gorm.Dialector, error) {
	switch driver {
	case "", "sqlite":
		return sqlite.Open(dsn), nil
	case "postgres":
		return postgres.Open(dsn), nil
	case "mysql":
		return mysql.Open(dsn), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}
}

// Open connects to dsn with driver (sqlite, postgres or mysql) and returns
// a migrated Store.
func Open(driver, dsn string, opts ...Option) (*Store, error) {
	dialector, err := Dialector(driver, dsn)
	if err != nil {
		return nil, err
	}
	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open %s: %w", driver, err)
	}
	return New(db, opts...)
}

// New wraps db.
func New(db *gorm.DB, opts ...Option) (*Store, error) {
	if db == nil {
		return nil, errors.New("sqlstore: db is required")
	}
	s := &Store{db: db, logger: zap.NewNop(), migrate: true}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	s.logger = s.logger.With(zap.String("component", "sqlstore"))
	if s.migrate {
		if err := db.AutoMigrate(&optionRow{}, &siteOptionRow{}); err != nil {
			return nil, fmt.Errorf("sqlstore: migrate: %w", err)
		}
	}
	return s, nil
}

// DB exposes the underlying connection.
func (s *Store) DB() *gorm.DB { return s.db }

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) Get(ctx context.Context, ref store.Ref) (store.Record, bool, error) {
	if err := ref.Validate(); err != nil {
		return store.Record{}, false, err
	}
	db := s.db.WithContext(ctx)

	var (
		raw      string
		autoload = true
		err      error
	)
	if ref.Namespace == store.NamespaceSiteOption {
		var row siteOptionRow
		err = db.Where("name = ?", ref.Name).Take(&row).Error
		raw = row.Value
	} else {
		var row optionRow
		err = db.Where("tenant_id = ? AND name = ?", ref.Tenant, ref.Name).Take(&row).Error
		raw, autoload = row.Value, row.Autoload
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return store.Record{}, false, nil
	}
	if err != nil {
		return store.Record{}, false, fmt.Errorf("sqlstore: get %s: %w", ref.Name, err)
	}

	value, err := decode(raw)
	if err != nil {
		return store.Record{}, false, fmt.Errorf("sqlstore: decode %s: %w", ref.Name, err)
	}
	return store.Record{Name: ref.Name, Value: value, Autoload: autoload}, true, nil
}

func (s *Store) Add(ctx context.Context, ref store.Ref, value any, autoload bool) (bool, error) {
	if err := ref.Validate(); err != nil {
		return false, err
	}
	raw, err := encode(value)
	if err != nil {
		return false, fmt.Errorf("sqlstore: encode %s: %w", ref.Name, err)
	}

	var row any
	if ref.Namespace == store.NamespaceSiteOption {
		row = &siteOptionRow{Name: ref.Name, Value: raw}
	} else {
		row = &optionRow{TenantID: ref.Tenant, Name: ref.Name, Value: raw, Autoload: autoload}
	}
	result := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(row)
	if result.Error != nil {
		return false, fmt.Errorf("sqlstore: add %s: %w", ref.Name, result.Error)
	}
	added := result.RowsAffected > 0
	s.logger.Debug("add", zap.String("namespace", ref.Namespace.String()), zap.String("name", ref.Name), zap.Bool("added", added))
	return added, nil
}

func (s *Store) Delete(ctx context.Context, ref store.Ref) (bool, error) {
	if err := ref.Validate(); err != nil {
		return false, err
	}
	db := s.db.WithContext(ctx)

	var result *gorm.DB
	if ref.Namespace == store.NamespaceSiteOption {
		result = db.Where("name = ?", ref.Name).Delete(&siteOptionRow{})
	} else {
		result = db.Where("tenant_id = ? AND name = ?", ref.Tenant, ref.Name).Delete(&optionRow{})
	}
	if result.Error != nil {
		return false, fmt.Errorf("sqlstore: delete %s: %w", ref.Name, result.Error)
	}
	deleted := result.RowsAffected > 0
	s.logger.Debug("delete", zap.String("namespace", ref.Namespace.String()), zap.String("name", ref.Name), zap.Bool("deleted", deleted))
	return deleted, nil
}

func (s *Store) List(ctx context.Context, ns store.Namespace, tenant int64) ([]store.Record, error) {
	if !ns.Valid() {
		return nil, store.ErrInvalidNamespace
	}
	db := s.db.WithContext(ctx).Order("name")

	var out []store.Record
	if ns == store.NamespaceSiteOption {
		var rows []siteOptionRow
		if err := db.Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("sqlstore: list: %w", err)
		}
		for _, row := range rows {
			value, err := decode(row.Value)
			if err != nil {
				return nil, fmt.Errorf("sqlstore: decode %s: %w", row.Name, err)
			}
			out = append(out, store.Record{Name: row.Name, Value: value, Autoload: true})
		}
		return out, nil
	}

	var rows []optionRow
	if err := db.Where("tenant_id = ?", tenant).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("sqlstore: list: %w", err)
	}
	for _, row := range rows {
		value, err := decode(row.Value)
		if err != nil {
			return nil, fmt.Errorf("sqlstore: decode %s: %w", row.Name, err)
		}
		out = append(out, store.Record{Name: row.Name, Value: value, Autoload: row.Autoload})
	}
	return out, nil
}

// Values are stored as JSON text; numbers decode as float64.
func encode(value any) (string, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func decode(raw string) (any, error) {
	var value any
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		return nil, err
	}
	return value, nil
}
