package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, logrus.InfoLevel, cfg.LogLevel())
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zimport.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log:
  level: debug
import:
  workers: 2
  catalog: ops.yaml
producer:
  name: tester
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, cfg.LogLevel())
	assert.Equal(t, 2, cfg.Import.Workers)
	assert.Equal(t, "ops.yaml", cfg.Import.Catalog)
	assert.Equal(t, "tester", cfg.Producer.Name)
	assert.Equal(t, "0.1.0", cfg.Producer.Version)
	assert.Equal(t, "zimport.log", cfg.Log.File)

	t.Setenv("ZIMPORT_WORKERS", "8")
	t.Setenv("ZIMPORT_LOG_LEVEL", "warn")
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Import.Workers)
	assert.Equal(t, logrus.WarnLevel, cfg.LogLevel())
}

func TestLoadInvalid(t *testing.T) {
	t.Setenv("ZIMPORT_WORKERS", "many")
	_, err := Load("")
	assert.Error(t, err)

	t.Setenv("ZIMPORT_WORKERS", "0")
	_, err = Load("")
	assert.Error(t, err)

	t.Setenv("ZIMPORT_WORKERS", "")
	t.Setenv("ZIMPORT_LOG_LEVEL", "loud")
	_, err = Load("")
	assert.Error(t, err)
}

func TestLoadBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log: [unclosed"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}
