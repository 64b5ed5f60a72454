package am

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/sharanvkt/insane-dashboard-v2/internal/util"
)

const sampleConfig = `
[database]
path = "/var/lib/lpdash/dash.db"

[scheduler]
cadence = "*/5 * * * *"
batch_size = 50

[access]
version = "1.2.0"
trusted_domains = ["example.com"]

[[access.grants]]
identity = "Editor@Agency.io"
role = "editor"
scope = "specific"
domains = ["A", "B"]

[[access.grants]]
identity = "viewer@agency.io"
role = "viewer"
scope = "none"
`

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "am.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), DefaultFilePermissions))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	cfg, err := LoadWithViper(v)
	require.NoError(t, err)

	assert.Equal(t, DefaultDatabasePath, cfg.Database.Path)
	assert.Equal(t, DefaultServerPort, cfg.GetServerPort())
	assert.Equal(t, DefaultCadence, cfg.GetCadence())
	assert.Equal(t, DefaultBatchSize, cfg.GetBatchSize())
	assert.Equal(t, DefaultLeaseSeconds, cfg.GetLeaseSeconds())
	assert.Equal(t, DefaultIdentityHeader, cfg.GetIdentityHeader())
	assert.True(t, cfg.Scheduler.Enabled)
	assert.Equal(t, "viewer", cfg.Access.DefaultRole)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, t.TempDir(), sampleConfig)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/lpdash/dash.db", cfg.Database.Path)
	assert.Equal(t, "*/5 * * * *", cfg.GetCadence())
	assert.Equal(t, 50, cfg.GetBatchSize())
	// untouched sections keep their defaults
	assert.Equal(t, DefaultServerPort, cfg.GetServerPort())

	require.Len(t, cfg.Access.Grants, 2)
	assert.Equal(t, "Editor@Agency.io", cfg.Access.Grants[0].Identity)
	assert.Equal(t, []string{"A", "B"}, cfg.Access.Grants[0].Domains)
	assert.Equal(t, []string{"example.com"}, cfg.Access.TrustedDomains)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromFile_Missing(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "absent.toml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"defaults are valid", func(c *Config) {}, ""},
		{"zero port", func(c *Config) { c.Server.Port = util.Ptr(0) }, "server.port cannot be 0"},
		{"port out of range", func(c *Config) { c.Server.Port = util.Ptr(70000) }, "server.port must be between"},
		{"negative rate limit", func(c *Config) { c.Server.RateLimitPerMinute = -1 }, "rate_limit_per_minute"},
		{"negative batch size", func(c *Config) { c.Scheduler.BatchSize = -5 }, "scheduler.batch_size"},
		{"bad cadence", func(c *Config) { c.Scheduler.Cadence = "every now and then" }, "scheduler.cadence"},
		{"descriptor cadence", func(c *Config) { c.Scheduler.Cadence = "@hourly" }, ""},
		{"bad access version", func(c *Config) { c.Access.Version = "v-next" }, "access.version"},
		{"bad default role", func(c *Config) { c.Access.DefaultRole = "owner" }, "access.default_role"},
		{"empty trusted suffix", func(c *Config) { c.Access.TrustedDomains = []string{" "} }, "trusted_domains"},
		{"grant without identity", func(c *Config) {
			c.Access.Grants = []GrantConfig{{Scope: "all"}}
		}, "identity cannot be empty"},
		{"duplicate identity differs only in case", func(c *Config) {
			c.Access.Grants = []GrantConfig{
				{Identity: "a@x.com", Scope: "all"},
				{Identity: "A@X.com ", Scope: "none"},
			}
		}, "duplicate identity"},
		{"unknown scope", func(c *Config) {
			c.Access.Grants = []GrantConfig{{Identity: "a@x.com", Scope: "some"}}
		}, "scope must be all, specific or none"},
		{"specific without domains", func(c *Config) {
			c.Access.Grants = []GrantConfig{{Identity: "a@x.com", Scope: "specific"}}
		}, "requires at least one domain"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			SetDefaults(v)
			cfg, err := LoadWithViper(v)
			require.NoError(t, err)

			tt.mutate(cfg)
			err = cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestFindProjectConfig(t *testing.T) {
	tmpDir := t.TempDir()
	oldWd, err := os.Getwd()
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.Chdir(oldWd) })

	t.Run("walks up to am.toml", func(t *testing.T) {
		subDir := filepath.Join(tmpDir, "project", "nested", "deeper")
		require.NoError(t, os.MkdirAll(subDir, DefaultDirPermissions))
		writeConfig(t, filepath.Join(tmpDir, "project"), "")
		require.NoError(t, os.Chdir(subDir))

		result := FindProjectConfig()
		require.NotEmpty(t, result)
		assert.True(t, filepath.IsAbs(result))
		assert.Equal(t, "am.toml", filepath.Base(result))
	})

	t.Run("no config found", func(t *testing.T) {
		subDir := filepath.Join(tmpDir, "elsewhere")
		require.NoError(t, os.MkdirAll(subDir, DefaultDirPermissions))
		require.NoError(t, os.Chdir(subDir))

		// a stray am.toml above the temp dir would make this flaky; only assert
		// that nothing inside tmpDir was picked up
		result := FindProjectConfig()
		if result != "" {
			rel, err := filepath.Rel(tmpDir, result)
			require.NoError(t, err)
			assert.Contains(t, rel, "..")
		}
	})
}

func TestUnknownKeys(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `
[scheduler]
cadense = "@hourly"

[[access.grant]]
identity = "a@x.com"
`)

	keys, err := UnknownKeys(path)
	require.NoError(t, err)
	assert.Contains(t, keys, "scheduler.cadense")
	assert.Contains(t, keys, "access.grant")

	clean := writeConfig(t, dir, sampleConfig)
	keys, err = UnknownKeys(clean)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestConfigWatcher_Reload(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, sampleConfig)

	cw, err := NewConfigWatcher(path, zaptest.NewLogger(t).Sugar())
	require.NoError(t, err)
	t.Cleanup(func() { _ = cw.Stop() })

	cw.debouncePeriod = 10 * time.Millisecond
	cw.SetLoader(func() (*Config, error) { return LoadFromFile(path) })

	versions := make(chan string, 4)
	cw.OnReload(func(c *Config) error {
		versions <- c.Access.Version
		return nil
	})
	cw.Start()

	updated := `
[access]
version = "1.3.0"
`
	require.NoError(t, os.WriteFile(path, []byte(updated), DefaultFilePermissions))

	select {
	case v := <-versions:
		assert.Equal(t, "1.3.0", v)
	case <-time.After(5 * time.Second):
		t.Fatal("reload callback was not invoked")
	}
}

func TestConfigWatcher_RejectsInvalidReload(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, sampleConfig)

	cw, err := NewConfigWatcher(path, zaptest.NewLogger(t).Sugar())
	require.NoError(t, err)
	t.Cleanup(func() { _ = cw.Stop() })

	cw.SetLoader(func() (*Config, error) {
		cfg, err := LoadFromFile(path)
		if err != nil {
			return nil, err
		}
		cfg.Access.Version = "not-semver"
		return cfg, nil
	})

	called := false
	cw.OnReload(func(*Config) error { called = true; return nil })

	err = cw.reload()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reloaded config is invalid")
	assert.False(t, called)
}
