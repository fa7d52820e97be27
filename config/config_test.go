package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

const sampleConfig = `
tenant: 3
log:
  level: debug
  format: console
store:
  driver: sqlite
  dsn: "file:overlay.db"
rules:
  engine: cel
  filters:
    - hook: overlay/synced/remote_tenant
      expression: "tenant > 100 ? 2 : value"
      priority: 5
overrides:
  - name: blogname
    value: Overlay
  - variant: merged
    type: site_option
    name: active_sitewide_plugins
    value:
      overlay: 1
  - variant: synced
    strategy: delete
    values:
      stylesheet: twentytwenty
      template: twentytwenty
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "overlay.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Tenant != 1 || cfg.Store.Driver != "memory" || cfg.Rules.Engine != "expr" {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
	if cfg.Source() != "" {
		t.Fatalf("expected no source, got %q", cfg.Source())
	}
}

func TestLoadMissingExplicitFileFails(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestLoadReadsFile(t *testing.T) {
	path := writeConfig(t, sampleConfig)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Tenant != 3 {
		t.Fatalf("expected tenant 3, got %d", cfg.Tenant)
	}
	if cfg.Store.Driver != "sqlite" || cfg.Store.DSN != "file:overlay.db" {
		t.Fatalf("unexpected store config %+v", cfg.Store)
	}
	if cfg.Store.Redis.Prefix != "overlay" {
		t.Fatalf("expected redis defaults to survive, got %+v", cfg.Store.Redis)
	}
	if cfg.Log.Format != "console" || cfg.Log.Level != "debug" {
		t.Fatalf("unexpected log config %+v", cfg.Log)
	}
	want := []RuleConfig{{Hook: "overlay/synced/remote_tenant", Expression: "tenant > 100 ? 2 : value", Priority: 5}}
	if cfg.Rules.Engine != "cel" || !reflect.DeepEqual(cfg.Rules.Filters, want) {
		t.Fatalf("unexpected rules %+v", cfg.Rules)
	}
	if cfg.Source() != path {
		t.Fatalf("expected source %q, got %q", path, cfg.Source())
	}
}

func TestEnvironmentOverridesFile(t *testing.T) {
	path := writeConfig(t, sampleConfig)
	t.Setenv("OVERLAY_TENANT", "9")
	t.Setenv("OVERLAY_STORE_DRIVER", "redis")
	t.Setenv("OVERLAY_STORE_REDIS_ADDR", "cache:6379")
	t.Setenv("OVERLAY_MANAGER_DELETE", "a,b")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Tenant != 9 {
		t.Fatalf("expected tenant 9, got %d", cfg.Tenant)
	}
	if cfg.Store.Driver != "redis" || cfg.Store.Redis.Addr != "cache:6379" {
		t.Fatalf("unexpected store config %+v", cfg.Store)
	}
	if !reflect.DeepEqual(cfg.Manager.Delete, []string{"a", "b"}) {
		t.Fatalf("expected delete list from env, got %v", cfg.Manager.Delete)
	}
}

func TestDefinitionsApplyDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defs, err := cfg.Definitions()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(defs) != 3 {
		t.Fatalf("expected 3 definitions, got %d", len(defs))
	}

	plain := defs[0]
	if plain.Variant != "plain" || plain.Origin != "platform" || plain.Type != "option" || plain.Name != "blogname" || plain.Value != "Overlay" {
		t.Fatalf("unexpected plain definition %+v", plain)
	}

	merged := defs[1]
	if merged.Variant != "merged" || merged.Type != "site_option" {
		t.Fatalf("unexpected merged definition %+v", merged)
	}
	if !reflect.DeepEqual(merged.Value, map[string]any{"overlay": float64(1)}) {
		t.Fatalf("unexpected merged value %#v", merged.Value)
	}

	batch := defs[2]
	if !batch.Batch() || batch.Strategy != "delete" || len(batch.Values) != 2 {
		t.Fatalf("unexpected batch definition %+v", batch)
	}
}

func TestDefinitionsRejectInvalidEntries(t *testing.T) {
	cases := map[string]map[string]any{
		"no name":       {"value": 1},
		"name and list": {"name": "a", "values": map[string]any{"b": 1}},
		"bad variant":   {"name": "a", "variant": "proxied"},
		"bad type":      {"name": "a", "type": "transient"},
		"bad strategy":  {"name": "a", "strategy": "purge"},
		"unknown field": {"name": "a", "autoload": true},
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Defaults()
			cfg.Overrides = []map[string]any{payload}
			if _, err := cfg.Definitions(); err == nil {
				t.Fatalf("expected error")
			}
		})
	}

	cfg := Defaults()
	cfg.Overrides = []map[string]any{{"value": 1}}
	if _, err := cfg.Definitions(); !errors.Is(err, ErrDefinitionShape) {
		t.Fatalf("expected ErrDefinitionShape, got %v", err)
	}
}

func TestNewLoggerFallsBackToInfo(t *testing.T) {
	logger := NewLogger(LogConfig{Level: "verbose"})
	if logger == nil {
		t.Fatalf("expected logger")
	}
	if logger.Core().Enabled(-1) {
		t.Fatalf("expected debug to be disabled")
	}
}
