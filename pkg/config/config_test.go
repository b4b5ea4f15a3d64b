package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAppliesDefaults(t *testing.T) {
	c, err := Parse([]byte("environment: test\n"))
	require.NoError(t, err)

	assert.Equal(t, BackendMemory, c.Backend.Type)
	assert.Equal(t, 8080, c.Server.Port)
	assert.Equal(t, 10*time.Second, c.Server.ReadTimeout)
	assert.Equal(t, 30*time.Second, c.Cache.TTL)
	assert.True(t, c.Cache.Enabled)
	assert.Equal(t, -1, c.Kafka.RequiredAcks)
	assert.Equal(t, "learncast.activity", c.Kafka.Topic)
	assert.Nil(t, c.Prediction.Mastery.DefaultThreshold)
	assert.False(t, c.Tracing.Enabled)
	assert.Equal(t, "stdout", c.Tracing.Exporter)
	assert.Equal(t, 0.1, c.Tracing.SampleRatio)
}

func TestParseOverridesDefaults(t *testing.T) {
	c, err := Parse([]byte(`
environment: prod
server:
  port: 9090
cache:
  enabled: false
backend:
  type: clickhouse
clickhouse:
  host: ch.local
prediction:
  half_life: 72h
  mastery:
    default_threshold: 0
    thresholds:
      algebra: 0.7
`))
	require.NoError(t, err)
	assert.Equal(t, 9090, c.Server.Port)
	assert.False(t, c.Cache.Enabled)
	assert.Equal(t, "ch.local", c.ClickHouse.Host)
	assert.Equal(t, 72*time.Hour, c.Prediction.HalfLife)
	require.NotNil(t, c.Prediction.Mastery.DefaultThreshold)
	assert.Equal(t, 0.0, *c.Prediction.Mastery.DefaultThreshold)
	assert.Equal(t, 0.7, c.Prediction.Mastery.Thresholds["algebra"])
}

func TestValidateRejectsIncompleteBackends(t *testing.T) {
	cases := map[string]string{
		"unknown":    "backend:\n  type: mongo\n",
		"clickhouse": "backend:\n  type: clickhouse\n",
		"postgres":   "backend:\n  type: postgres\n",
		"http":       "backend:\n  type: http\n",
		"kafka":      "kafka:\n  enabled: true\n",
		"threshold":  "prediction:\n  mastery:\n    thresholds:\n      algebra: 1.5\n",
		"otlp":       "tracing:\n  enabled: true\n  exporter: otlp\n",
		"exporter":   "tracing:\n  enabled: true\n  exporter: jaeger\n",
		"sampling":   "tracing:\n  enabled: true\n  sample_ratio: 2\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestApplyEnv(t *testing.T) {
	c := Default()
	env := map[string]string{
		"BACKEND":       "http",
		"KAFKA_BROKERS": "k1:9092,k2:9092",
		"HTTP_PORT":     "7070",
		"REDIS_ADDR":    "redis:6379",

		"OTEL_EXPORTER_OTLP_ENDPOINT": "otel:4318",
	}
	c.ApplyEnv(func(k string) string { return env[k] })

	assert.Equal(t, BackendHTTP, c.Backend.Type)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.Kafka.Brokers)
	assert.Equal(t, 7070, c.Server.Port)
	assert.True(t, c.Redis.Enabled)
	assert.Equal(t, "redis:6379", c.Redis.Addr)
	assert.True(t, c.Tracing.Enabled)
	assert.Equal(t, "otlp", c.Tracing.Exporter)
	assert.Equal(t, "otel:4318", c.Tracing.Endpoint)
}

func TestLoadWithEnvValidatesAfterOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("backend:\n  type: http\n"), 0o600))

	_, err := LoadWithEnv(path)
	require.Error(t, err)

	t.Setenv("ACTIVITY_API_URL", "http://lrs.local")
	c, err := LoadWithEnv(path)
	require.NoError(t, err)
	assert.Equal(t, "http://lrs.local", c.ActivityAPI.BaseURL)
}
