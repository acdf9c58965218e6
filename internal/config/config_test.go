package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
database:
  driver: mysql
  host: 127.0.0.1
  port: 3306
  username: keno
  password: secret
  database: keno
generator:
  count: 6
  sample_size: 20
  interval: 5
  momentum:
    threshold: 2.0
  shapes:
    pattern: weighted
    placement: trending
app:
  polling_interval: 3s
`

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "mysql", cfg.Database.Driver)
	assert.Equal(t, "keno:secret@tcp(127.0.0.1:3306)/keno?charset=utf8mb4&parseTime=True&loc=Local", cfg.Database.GetDSN())
	assert.Equal(t, 6, cfg.Generator.Count)
	assert.Equal(t, 20, cfg.Generator.SampleSize)
	assert.Equal(t, 5, cfg.Generator.Interval)
	assert.Equal(t, 2.0, cfg.Generator.Momentum.ThresholdValue())
	assert.Equal(t, 15, cfg.Generator.Momentum.PoolSize)
	assert.Equal(t, "weighted", cfg.Generator.Shapes.Pattern)
	assert.Equal(t, "trending", cfg.Generator.Shapes.Placement)
	assert.Equal(t, 3*time.Second, cfg.App.PollingInterval)
	assert.Equal(t, 20, cfg.Generator.Auto.Window)
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("generator:\n  count: 4\n"), 0o600))
	t.Setenv("KENO_LOG_LEVEL", "debug")
	t.Setenv("KENO_DB_DSN", "file:test.db")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.App.LogLevel)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "file:test.db", cfg.Database.GetDSN())
}

func TestValidate(t *testing.T) {
	cfg := &Config{}
	cfg.ApplyDefaults()
	require.NoError(t, cfg.Validate())

	cfg.Generator.Count = 5
	cfg.Database.Driver = "postgres"
	assert.Error(t, cfg.Validate())
}

func TestGeneratorSignatureChangesWithConfig(t *testing.T) {
	a := DefaultGenerator()
	b := DefaultGenerator()
	assert.Equal(t, a.Signature(), b.Signature())

	b.Shapes.Placement = "cold"
	assert.NotEqual(t, a.Signature(), b.Signature())
}

func TestApplyDefaults_ClampsCount(t *testing.T) {
	g := Generator{Count: 41}
	g.ApplyDefaults()
	assert.Equal(t, 40, g.Count)

	g = Generator{Count: -3}
	g.ApplyDefaults()
	assert.Equal(t, 1, g.Count)

	cfg := &Config{Generator: Generator{Count: 99}}
	cfg.ApplyDefaults()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 40, cfg.Generator.Count)
}

func TestApplyDefaults_KeepsExplicitZeroThreshold(t *testing.T) {
	cfg, err := Parse([]byte("generator:\n  momentum:\n    threshold: 0\n"))
	require.NoError(t, err)
	cfg.ApplyDefaults()
	require.NotNil(t, cfg.Generator.Momentum.Threshold)
	assert.Equal(t, 0.0, cfg.Generator.Momentum.ThresholdValue())

	omitted, err := Parse([]byte("generator:\n  count: 4\n"))
	require.NoError(t, err)
	omitted.ApplyDefaults()
	assert.Equal(t, 1.5, omitted.Generator.Momentum.ThresholdValue())

	zero := DefaultGenerator()
	zero.Momentum.Threshold = Float64(0)
	def := DefaultGenerator()
	assert.NotEqual(t, def.Signature(), zero.Signature())
}
