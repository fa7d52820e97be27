// Package config loads overlay settings from a YAML file and OVERLAY_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable. "store.dsn" becomes
// OVERLAY_STORE_DSN.
const EnvPrefix = "OVERLAY"

// Config aggregates the settings of an overlay deployment.
type Config struct {
	Tenant     int64            `mapstructure:"tenant" yaml:"tenant"`
	Installing bool             `mapstructure:"installing" yaml:"installing"`
	Log        LogConfig        `mapstructure:"log" yaml:"log"`
	Store      StoreConfig      `mapstructure:"store" yaml:"store"`
	Metrics    MetricsConfig    `mapstructure:"metrics" yaml:"metrics"`
	Activity   ActivityConfig   `mapstructure:"activity" yaml:"activity"`
	Manager    ManagerConfig    `mapstructure:"manager" yaml:"manager"`
	Rules      RulesConfig      `mapstructure:"rules" yaml:"rules"`
	Overrides  []map[string]any `mapstructure:"overrides" yaml:"overrides,omitempty"`

	source string
}

// LogConfig selects the zap logger.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	// Driver is one of memory, sqlite, postgres, mysql or redis.
	Driver string      `mapstructure:"driver" yaml:"driver"`
	DSN    string      `mapstructure:"dsn" yaml:"dsn,omitempty"`
	Redis  RedisConfig `mapstructure:"redis" yaml:"redis"`
}

// RedisConfig configures the redis driver.
type RedisConfig struct {
	Addr     string `mapstructure:"addr" yaml:"addr"`
	Password string `mapstructure:"password" yaml:"-"`
	DB       int    `mapstructure:"db" yaml:"db"`
	Prefix   string `mapstructure:"prefix" yaml:"prefix"`
}

// MetricsConfig names the prometheus namespace.
type MetricsConfig struct {
	Namespace string `mapstructure:"namespace" yaml:"namespace"`
}

// ActivityConfig controls lifecycle event emission.
type ActivityConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Channel string `mapstructure:"channel" yaml:"channel"`
	Actor   string `mapstructure:"actor" yaml:"actor"`
}

// ManagerConfig replaces the cleanup default lists when non-empty.
type ManagerConfig struct {
	UnAutoload []string `mapstructure:"unautoload" yaml:"unautoload,omitempty"`
	Delete     []string `mapstructure:"delete" yaml:"delete,omitempty"`
}

// RulesConfig installs expression filters on extension points.
type RulesConfig struct {
	Engine  string       `mapstructure:"engine" yaml:"engine"`
	Filters []RuleConfig `mapstructure:"filters" yaml:"filters,omitempty"`
}

// RuleConfig binds one expression to an extension point.
type RuleConfig struct {
	Hook       string `mapstructure:"hook" yaml:"hook"`
	Expression string `mapstructure:"expression" yaml:"expression"`
	Priority   int    `mapstructure:"priority" yaml:"priority"`
	Engine     string `mapstructure:"engine" yaml:"engine,omitempty"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() *Config {
	return &Config{
		Tenant:   1,
		Log:      LogConfig{Level: "info", Format: "json"},
		Store:    StoreConfig{Driver: "memory", Redis: RedisConfig{Addr: "localhost:6379", Prefix: "overlay"}},
		Metrics:  MetricsConfig{Namespace: "overlay"},
		Activity: ActivityConfig{Channel: "overlay"},
		Rules:    RulesConfig{Engine: "expr"},
	}
}

// Source returns the file the configuration was read from, if any.
func (c *Config) Source() string {
	if c == nil {
		return ""
	}
	return c.source
}

// Load reads path (or ./overlay.yaml when path is empty) and applies
// environment overrides. A missing default file is not an error.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("overlay")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvs(v, cfg)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read %s: %w", describe(path), err)
		}
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	cfg.source = v.ConfigFileUsed()
	return cfg, nil
}

func describe(path string) string {
	if path == "" {
		return "overlay.yaml"
	}
	return path
}

// bindEnvs registers every leaf key of cfg so viper consults the matching
// environment variable while unmarshalling.
func bindEnvs(v *viper.Viper, cfg any, parts ...string) {
	val := reflect.ValueOf(cfg)
	typ := reflect.TypeOf(cfg)
	if typ.Kind() == reflect.Ptr {
		val = val.Elem()
		typ = typ.Elem()
	}
	for i := 0; i < typ.NumField(); i++ {
		f := typ.Field(i)
		if !f.IsExported() {
			continue
		}
		tag := f.Tag.Get("mapstructure")
		if tag == "" {
			tag = strings.ToLower(f.Name)
		}
		key := append(append([]string(nil), parts...), tag)
		if f.Type.Kind() == reflect.Struct {
			bindEnvs(v, val.Field(i).Interface(), key...)
			continue
		}
		_ = v.BindEnv(strings.Join(key, "."))
	}
}
