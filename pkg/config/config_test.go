package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaults(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)
	assert.Equal(t, 8080, c.Server.Port)
	assert.Equal(t, "file", c.Storage.Backend)
	assert.Equal(t, 90, c.Evaluation.TestSize)
	assert.Equal(t, 30, c.Models.DefaultHorizon)
	assert.Equal(t, 120, c.Models.Forest.Trees)
	assert.Equal(t, 0.5, c.Models.Boosting.LearningRate)
	assert.Equal(t, 10*time.Minute, c.RateLimit.TTL)
	require.NoError(t, c.Validate())
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	path := writeConfig(t, `
environment: production
server:
  port: 9090
storage:
  models_dir: /var/lib/declcast/models
models:
  forest:
    trees: 50
`)
	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "production", c.Environment)
	assert.Equal(t, 9090, c.Server.Port)
	assert.Equal(t, "/var/lib/declcast/models", c.Storage.ModelsDir)
	assert.Equal(t, 50, c.Models.Forest.Trees)
	assert.Equal(t, uint64(120), c.Models.Forest.Seed)
}

func TestLoadRejectsBadBackend(t *testing.T) {
	path := writeConfig(t, "storage:\n  backend: s3\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("MODELS_DIR", "/tmp/m")
	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("PORT", "7070")

	c, err := LoadWithEnv(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "/tmp/m", c.Storage.ModelsDir)
	assert.Equal(t, "memory", c.Storage.Backend)
	assert.True(t, c.Kafka.Enabled)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.Kafka.Brokers)
	assert.Equal(t, "debug", c.Log.Level)
	assert.Equal(t, 7070, c.Server.Port)
}

func TestKafkaEnabledNeedsBrokers(t *testing.T) {
	path := writeConfig(t, "kafka:\n  enabled: true\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestShippedConfigLoads(t *testing.T) {
	c, err := Load(filepath.Join("..", "..", "config", "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "file", c.Storage.Backend)
	assert.Equal(t, "csv", c.Evaluation.Backend)
	assert.False(t, c.Kafka.Enabled)
	assert.Equal(t, "forest", c.Models.DefaultType)
	assert.Equal(t, 14, c.Models.Recurrent.InputSize)
}
