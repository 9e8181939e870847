package config_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"codeberg.org/mutker/sysrec/internal/config"
	"codeberg.org/mutker/sysrec/internal/errors"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()

	path := filepath.Join(dir, "sysrec.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()

	flags := pflag.NewFlagSet("sysrec", pflag.ContinueOnError)
	config.RegisterFlags(flags)
	require.NoError(t, flags.Parse(args))

	return flags
}

// load isolates the loader from config files on the host.
func load(t *testing.T, flags *pflag.FlagSet) (*config.Config, error) {
	t.Helper()

	return config.Load(flags, config.WithSearchPaths(t.TempDir()))
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := load(t, newFlags(t))
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.Interval)
	assert.Equal(t, 10*time.Second, cfg.IntervalDuration())
	assert.Equal(t, "sysrec.db", cfg.Database)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "sysrec.log", cfg.LogFile)
	assert.True(t, cfg.GPU)
	assert.Empty(t, cfg.PIDFile)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `
interval = 5
database = "/var/lib/sysrec/records.db"
log_level = "debug"
log_file = ""
gpu = false
pid_file = "/run/sysrec.pid"
`)
	t.Setenv("SYSREC_CONFIG", path)

	cfg, err := load(t, newFlags(t))
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Interval)
	assert.Equal(t, "/var/lib/sysrec/records.db", cfg.Database)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Empty(t, cfg.LogFile)
	assert.False(t, cfg.GPU)
	assert.Equal(t, "/run/sysrec.pid", cfg.PIDFile)
	assert.Equal(t, "/var/lib/sysrec/records.db", cfg.Storage().DBPath)
	assert.Equal(t, "debug", cfg.Logger().Level)
}

func TestLoadSearchPath(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "interval = 42\n")

	cfg, err := config.Load(newFlags(t), config.WithSearchPaths(dir))
	require.NoError(t, err)
	assert.Equal(t, 42, cfg.Interval)
}

func TestLoadPrecedence(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "interval = 5\nlog_level = \"info\"\n")
	t.Setenv("SYSREC_CONFIG", path)
	t.Setenv("SYSREC_INTERVAL", "30")
	t.Setenv("SYSREC_LOG_LEVEL", "error")

	cfg, err := load(t, newFlags(t))
	require.NoError(t, err)
	assert.Equal(t, 30, cfg.Interval, "environment overrides file")
	assert.Equal(t, "error", cfg.LogLevel)

	cfg, err = load(t, newFlags(t, "--interval=7"))
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Interval, "flags override environment")
}

func TestLoadConfigFlag(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "database = \"from-flag.db\"\n")

	cfg, err := load(t, newFlags(t, "--config", path))
	require.NoError(t, err)
	assert.Equal(t, "from-flag.db", cfg.Database)
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		code    errors.ErrorCode
	}{
		{name: "zero interval", content: "interval = 0\n", code: errors.ErrInvalidInterval},
		{name: "negative interval", content: "interval = -3\n", code: errors.ErrInvalidInterval},
		{name: "unknown log level", content: "log_level = \"loud\"\n", code: errors.ErrInvalidLogLevel},
		{name: "empty database", content: "database = \"\"\n", code: errors.ErrInvalidConfig},
		{name: "malformed file", content: "interval = = 3\n", code: errors.ErrReadConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("SYSREC_CONFIG", writeConfig(t, t.TempDir(), tt.content))

			_, err := load(t, newFlags(t))
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, tt.code), "got %v", err)
		})
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	t.Setenv("SYSREC_CONFIG", filepath.Join(t.TempDir(), "missing.toml"))

	_, err := load(t, newFlags(t))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrReadConfig))
}

func TestWatchWithoutFile(t *testing.T) {
	l, err := config.New(newFlags(t), config.WithSearchPaths(t.TempDir()))
	require.NoError(t, err)

	err = l.Watch(context.Background(), func(*config.Config) {})
	assert.True(t, errors.HasCode(err, errors.ErrReadConfig))
}

func TestWatchReload(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "interval = 5\n")

	l, err := config.New(nil, config.WithConfigFile(path))
	require.NoError(t, err)

	var (
		mu       sync.Mutex
		interval int
	)
	require.NoError(t, l.Watch(context.Background(), func(cfg *config.Config) {
		mu.Lock()
		defer mu.Unlock()
		interval = cfg.Interval
	}))

	writeConfig(t, dir, "interval = 3\n")

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return interval == 3
	}, 5*time.Second, 20*time.Millisecond)
}
