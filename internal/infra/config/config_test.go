package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "https://p25-buy.itunes.apple.com", cfg.Store.BaseURL)
	assert.Equal(t, 10, cfg.Download.Workers)
	assert.EqualValues(t, 5*1024*1024, cfg.Download.ChunkSize)
	assert.Equal(t, 3, cfg.Download.RetryLimit)
	assert.Equal(t, 2*time.Second, cfg.Download.RetryDelay)
	assert.Equal(t, 20*time.Minute, cfg.Serve.TTL)
	assert.Equal(t, 5*time.Minute, cfg.Serve.SweepInterval)
}

func TestLoadFromFile(t *testing.T) {
	yaml := `
port: "9090"
store:
  base_url: "http://127.0.0.1:8100"
download:
  workers: 4
  chunk_size: 1048576
serve:
  ttl: 5m
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "http://127.0.0.1:8100", cfg.Store.BaseURL)
	assert.Equal(t, 4, cfg.Download.Workers)
	assert.EqualValues(t, 1048576, cfg.Download.ChunkSize)
	assert.Equal(t, 5*time.Minute, cfg.Serve.TTL)

	// Keys the file omits keep their defaults.
	assert.Equal(t, 3, cfg.Download.RetryLimit)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("IPAGRAB_PORT", "7070")
	t.Setenv("IPAGRAB_DOWNLOAD_WORKERS", "2")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "7070", cfg.Port)
	assert.Equal(t, 2, cfg.Download.Workers)
}

func TestValidateClampsBadValues(t *testing.T) {
	yaml := `
download:
  workers: -1
  chunk_size: 0
  retry_limit: -5
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.Download.Workers)
	assert.EqualValues(t, 5*1024*1024, cfg.Download.ChunkSize)
	assert.Equal(t, 3, cfg.Download.RetryLimit)
}
