package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(New(), "")
	require.NoError(t, err)

	assert.Equal(t, "webhook", cfg.Handler.Kind)
	assert.Equal(t, "file", cfg.Store.Kind)
	assert.Equal(t, ".datagpt/runs", cfg.Store.Dir)
	assert.Equal(t, "memory", cfg.Results.Kind)
	assert.Equal(t, 5*time.Second, cfg.PollInterval)
	assert.Equal(t, 5*time.Minute, cfg.MaxWait)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.False(t, cfg.UsesRedis())
}

func TestLoad_FileEnvAndFlags(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "datagpt.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
base_url: https://file.example.com
poll_interval: 2s
store:
  kind: redis
results:
  kind: postgres
  dsn: postgres://localhost/db
redis:
  addr: redis:6379
`), 0o644))

	t.Setenv("DATAGPT_BASE_URL", "https://env.example.com")
	t.Setenv("DATAGPT_REDIS_DB", "3")

	v := New()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	require.NoError(t, BindFlags(v, fs))
	require.NoError(t, fs.Parse([]string{"--store", "memory", "--token", "secret"}))

	cfg, err := Load(v, path)
	require.NoError(t, err)

	assert.Equal(t, "https://env.example.com", cfg.BaseURL, "env beats file")
	assert.Equal(t, "memory", cfg.Store.Kind, "flag beats file")
	assert.Equal(t, "secret", cfg.Token)
	assert.Equal(t, 2*time.Second, cfg.PollInterval)
	assert.Equal(t, "postgres", cfg.Results.Kind)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, 3, cfg.Redis.DB)
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]string{
		"unknown store":    "store:\n  kind: s3\n",
		"postgres w/o dsn": "results:\n  kind: postgres\n",
		"wait below poll":  "poll_interval: 10s\nmax_wait: 1s\n",
		"unknown handler":  "handler:\n  kind: grpc\n",
		"orphan fallback":  "store:\n  fallback_keys: [abc]\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "c.yaml")
			require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
			_, err := Load(New(), path)
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(New(), filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
