package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 5*time.Minute, cfg.Matching.EscalationInterval)
	assert.Equal(t, 5*time.Minute, cfg.Matching.DwellTime)
	assert.InDelta(t, 100.0, cfg.Matching.DisasterMinRadiusKm, 0.0001)
	assert.Equal(t, 8, cfg.Matching.NotifyConcurrency)
	assert.Empty(t, cfg.Database.URL)
	assert.Empty(t, cfg.Kafka.Brokers)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("BLOODLINK_ADDR", ":9090")
	t.Setenv("ESCALATION_INTERVAL", "30s")
	t.Setenv("DISASTER_MIN_RADIUS_KM", "250")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092,kafka-2:9092")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 30*time.Second, cfg.Matching.EscalationInterval)
	assert.InDelta(t, 250.0, cfg.Matching.DisasterMinRadiusKm, 0.0001)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
}

func TestFromEnv_Invalid(t *testing.T) {
	t.Run("unparseable duration", func(t *testing.T) {
		t.Setenv("ESCALATION_DWELL", "soon")
		_, err := FromEnv()
		require.Error(t, err)
	})

	t.Run("zero concurrency", func(t *testing.T) {
		t.Setenv("NOTIFY_CONCURRENCY", "0")
		_, err := FromEnv()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "NOTIFY_CONCURRENCY")
	})
}
