package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "sftp", cfg.Remote)
	assert.Equal(t, ".csv", cfg.Filter.Extension)
	assert.Equal(t, 50, cfg.Pipeline.BatchSize)
	assert.Equal(t, 10, cfg.Pipeline.WorkerCount)
	assert.Equal(t, 3, cfg.Pipeline.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, cfg.Pipeline.RetryBackoff)
	assert.Equal(t, 64, cfg.Pipeline.MaxDepth)
	assert.False(t, cfg.Pipeline.DeleteAfterFetch)
	assert.Equal(t, "sqlite", cfg.Sink.Driver)
	assert.Equal(t, 22, cfg.SFTP.Port)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PIPELINE_BATCH_SIZE", "25")
	t.Setenv("PIPELINE_DELETE_AFTER_FETCH", "true")
	t.Setenv("FILTER_KEYWORD", "report")
	t.Setenv("SINK_DRIVER", "postgres")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 25, cfg.Pipeline.BatchSize)
	assert.True(t, cfg.Pipeline.DeleteAfterFetch)
	assert.Equal(t, "report", cfg.Filter.Keyword)
	assert.Equal(t, "postgres", cfg.Sink.Driver)
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pickup.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"SFTP_HOST: files.example.com\nPIPELINE_WORKER_COUNT: 4\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "files.example.com", cfg.SFTP.Host)
	assert.Equal(t, 4, cfg.Pipeline.WorkerCount)
}

func TestLoad_MissingConfigFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg, err := Load("")
		require.NoError(t, err)
		return cfg
	}

	cfg := base()
	require.NoError(t, cfg.Validate())

	cfg = base()
	cfg.Filter.Extension = ""
	assert.ErrorContains(t, cfg.Validate(), "filter extension")

	cfg = base()
	cfg.Pipeline.BatchSize = 0
	assert.ErrorContains(t, cfg.Validate(), "batch size")

	cfg = base()
	cfg.Pipeline.WorkerCount = -1
	assert.ErrorContains(t, cfg.Validate(), "worker count")

	cfg = base()
	cfg.Pipeline.MaxAttempts = 0
	assert.ErrorContains(t, cfg.Validate(), "max attempts")

	cfg = base()
	cfg.Sink.Driver = "oracle"
	assert.ErrorContains(t, cfg.Validate(), "sink driver")

	cfg = base()
	cfg.Remote = "ftp"
	assert.ErrorContains(t, cfg.Validate(), "remote driver")
}

func TestEnsureDirs(t *testing.T) {
	root := t.TempDir()
	cfg := &Config{
		Local: LocalConfig{
			DownloadDir: filepath.Join(root, "downloads"),
			LogFile:     filepath.Join(root, "logs", "validation.log"),
		},
	}

	require.NoError(t, cfg.EnsureDirs())
	assert.DirExists(t, filepath.Join(root, "downloads"))
	assert.DirExists(t, filepath.Join(root, "logs"))
}
