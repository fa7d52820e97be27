package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/goliatone/go-options-overlay/pkg/store"
	"github.com/goliatone/go-options-overlay/pkg/store/sqlstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (configPath, dsn string) {
	t.Helper()
	dir := t.TempDir()
	dsn = filepath.Join(dir, "overlay.db")
	configPath = filepath.Join(dir, "overlay.yaml")
	body := fmt.Sprintf(`
store:
  driver: sqlite
  dsn: %q
overrides:
  - name: blogname
    value: Overlay
  - name: legacy_widget
    value: "off"
    origin: plugin
    strategy: delete
`, dsn)
	require.NoError(t, os.WriteFile(configPath, []byte(body), 0o600))
	return configPath, dsn
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append(args, "--quiet"))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func seed(t *testing.T, dsn string, names ...string) {
	t.Helper()
	st, err := sqlstore.Open("sqlite", dsn)
	require.NoError(t, err)
	defer st.Close()
	for _, name := range names {
		_, err := st.Add(context.Background(), store.OptionRef(1, name), "stored-"+name, true)
		require.NoError(t, err)
	}
}

func TestGetResolvesOverride(t *testing.T) {
	cfg, _ := setup(t)

	out, err := run(t, "get", "blogname", "-c", cfg)
	require.NoError(t, err)
	assert.Equal(t, "Overlay\n", out)
}

func TestGetTraceReportsSource(t *testing.T) {
	cfg, dsn := setup(t)
	seed(t, dsn, "siteurl")

	out, err := run(t, "get", "siteurl", "--trace", "-c", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, `"source":"store"`)
	assert.Contains(t, out, `"value":"stored-siteurl"`)

	_, err = run(t, "get", "missing", "-c", cfg)
	assert.Error(t, err)
}

func TestListPrintsStoredRows(t *testing.T) {
	cfg, dsn := setup(t)
	seed(t, dsn, "alpha", "beta")

	out, err := run(t, "list", "-c", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "name: alpha")
	assert.Contains(t, out, "name: beta")

	out, err = run(t, "list", "--overrides", "-c", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "identifier: option_blogname")
	assert.Contains(t, out, "loaded: true")
}

func TestCleanupRemovesRows(t *testing.T) {
	cfg, dsn := setup(t)
	seed(t, dsn, "mailserver_url", "legacy_widget", "keep_me")

	out, err := run(t, "cleanup", "-c", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "- legacy_widget")
	assert.Contains(t, out, "- mailserver_url")

	out, err = run(t, "cleanup", "--delete", "keep_me", "-c", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "- keep_me")

	out, err = run(t, "list", "-c", cfg)
	require.NoError(t, err)
	assert.NotContains(t, out, "mailserver_url")
	assert.NotContains(t, out, "keep_me")
}

func TestCronRegisterIsIdempotent(t *testing.T) {
	cfg, _ := setup(t)

	out, err := run(t, "cron", "register", "-c", cfg)
	require.NoError(t, err)
	assert.Equal(t, "scheduled\n", out)

	out, err = run(t, "cron", "register", "-c", cfg)
	require.NoError(t, err)
	assert.Equal(t, "already scheduled\n", out)

	out, err = run(t, "cron", "list", "-c", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "event: overlay_db_cleanup")
}

func TestCronRunOnce(t *testing.T) {
	cfg, _ := setup(t)

	out, err := run(t, "cron", "run", "--once", "-c", cfg)
	require.NoError(t, err)
	assert.Equal(t, "overlay_db_cleanup\n", out)
}

func TestDumpPrintsEffectiveConfig(t *testing.T) {
	cfg, _ := setup(t)
	t.Setenv("OVERLAY_TENANT", "4")

	out, err := run(t, "dump", "-c", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "tenant: 4")
	assert.Contains(t, out, "driver: sqlite")
	assert.Contains(t, out, "name: blogname")
}
