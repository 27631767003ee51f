package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8081", cfg.HTTPAddr)
	assert.Equal(t, []string{"kafka:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, DeliverySync, cfg.DeliveryMode)
	assert.Equal(t, 3*time.Second, cfg.StoreTimeout)
	assert.Equal(t, 16, cfg.FanoutConcurrency)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("DELIVERY_MODE", "async")
	t.Setenv("RENDER_TIMEOUT", "1500ms")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, DeliveryAsync, cfg.DeliveryMode)
	assert.Equal(t, 1500*time.Millisecond, cfg.RenderTimeout)
}

func TestLoadRejectsUnknownDeliveryMode(t *testing.T) {
	t.Setenv("DELIVERY_MODE", "later")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DELIVERY_MODE")
}
