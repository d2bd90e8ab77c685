package cli

import (
	"bytes"
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ajayshanks/datagpt/internal/config"
	"github.com/ajayshanks/datagpt/internal/logging"
	"github.com/ajayshanks/datagpt/pkg/stages"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load(config.New(), "")
	require.NoError(t, err)
	cfg.Store.Kind = "memory"
	return cfg
}

func TestBuild_Memory(t *testing.T) {
	cfg := testConfig(t)
	cfg.BaseURL = "https://hooks.example.com"

	app, err := Build(context.Background(), cfg, WithLogger(logging.NewNop()), WithMetrics())
	require.NoError(t, err)
	defer app.Close()

	require.NotNil(t, app.Metrics)
	def, ok := app.Engine.Table().Get(2)
	require.True(t, ok)
	assert.Equal(t, "https://hooks.example.com/"+stages.ProfileSources, def.Endpoint)
	assert.Equal(t, 5*time.Second, def.PollInterval)

	out, err := app.Engine.Start(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, "run-1", out.View.RunID)
}

func TestBuild_FileStore(t *testing.T) {
	cfg := testConfig(t)
	cfg.Store.Kind = "file"
	cfg.Store.Dir = t.TempDir()

	app, err := Build(context.Background(), cfg, WithLogger(logging.NewNop()))
	require.NoError(t, err)
	defer app.Close()

	_, err = app.Engine.Start(context.Background(), "run-1")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(cfg.Store.Dir, "run-1.json"))
}

func TestBuild_EncryptedFileStore(t *testing.T) {
	cfg := testConfig(t)
	cfg.Store.Kind = "file"
	cfg.Store.Dir = t.TempDir()
	cfg.Store.EncryptionKey = base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{7}, 32))

	app, err := Build(context.Background(), cfg, WithLogger(logging.NewNop()))
	require.NoError(t, err)
	defer app.Close()

	_, err = app.Engine.Start(context.Background(), "run-1")
	require.NoError(t, err)

	raw, err := os.ReadFile(filepath.Join(cfg.Store.Dir, "run-1.json"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"sealed"`)

	pc, err := app.Engine.Context(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, "run-1", pc.RunID)
	assert.Empty(t, pc.Sealed)
}

func TestBuild_BadEncryptionKey(t *testing.T) {
	cfg := testConfig(t)
	cfg.Store.EncryptionKey = base64.StdEncoding.EncodeToString([]byte("short"))

	_, err := Build(context.Background(), cfg, WithLogger(logging.NewNop()))
	assert.ErrorContains(t, err, "store.encryption_key")
}

func TestBuild_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.Store.Kind = "redis"
	cfg.Results.Kind = "redis"
	cfg.Redis.Addr = mr.Addr()
	cfg.Redis.Prefix = "test:"
	cfg.Redis.Lock = true

	app, err := Build(context.Background(), cfg, WithLogger(logging.NewNop()))
	require.NoError(t, err)

	_, err = app.Engine.Start(context.Background(), "run-1")
	require.NoError(t, err)
	assert.True(t, mr.Exists("test:run:run-1"))
	assert.False(t, mr.Exists("test:lock:run-1"), "lock released after the call")

	require.NoError(t, app.Close())
}

func TestBuild_StageOverlayAndProcess(t *testing.T) {
	dir := t.TempDir()
	overlay := filepath.Join(dir, "stages.yaml")
	require.NoError(t, os.WriteFile(overlay, []byte(`
base_url: https://overlay.example.com
stages:
  - name: profile_sources
    max_wait: 90s
`), 0o644))
	commands := filepath.Join(dir, "handlers.yaml")
	require.NoError(t, os.WriteFile(commands, []byte(`
commands:
  - stage: submit_request
    command: echo
    args: ['{"message":"ok"}']
`), 0o644))

	cfg := testConfig(t)
	cfg.BaseURL = "https://ignored.example.com"
	cfg.StagesFile = overlay
	cfg.Handler.Kind = "process"
	cfg.Handler.Commands = commands

	app, err := Build(context.Background(), cfg, WithLogger(logging.NewNop()))
	require.NoError(t, err)
	defer app.Close()

	def, ok := app.Engine.Table().Get(2)
	require.True(t, ok)
	assert.Equal(t, "https://overlay.example.com/"+stages.ProfileSources, def.Endpoint)
	assert.Equal(t, 90*time.Second, def.MaxWait)
	assert.Equal(t, 5*time.Second, def.PollInterval)
}

func TestBuild_Errors(t *testing.T) {
	cfg := testConfig(t)
	cfg.StagesFile = filepath.Join(t.TempDir(), "missing.yaml")
	_, err := Build(context.Background(), cfg, WithLogger(logging.NewNop()))
	assert.Error(t, err)

	cfg = testConfig(t)
	cfg.Results.Kind = "postgres"
	cfg.Results.DSN = "postgres://%zz"
	_, err = Build(context.Background(), cfg, WithLogger(logging.NewNop()))
	assert.Error(t, err)

	cfg = testConfig(t)
	cfg.Log.Level = "loud"
	_, err = Build(context.Background(), cfg)
	assert.Error(t, err)
}

func TestRedisPrefixes(t *testing.T) {
	run, result, lock := redisPrefixes(&config.Config{})
	assert.Equal(t, "datagpt:run:", run)
	assert.Equal(t, "datagpt:result:", result)
	assert.Equal(t, "datagpt:", lock)

	run, result, lock = redisPrefixes(&config.Config{Redis: config.RedisConfig{Prefix: "x:"}})
	assert.Equal(t, "x:run:", run)
	assert.Equal(t, "x:result:", result)
	assert.Equal(t, "x:", lock)
}
