package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kessotolo/ConversationalCommerce-sub002/internal/platform/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "convocommerce.app", cfg.PlatformApex)
	assert.Equal(t, "domain-lifecycle", cfg.KafkaTopic)
	assert.Equal(t, "letsencrypt", cfg.CertProvider)
	assert.Equal(t, 24*time.Hour, cfg.VerificationInterval)
	assert.Equal(t, 30*24*time.Hour, cfg.RenewalLead)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.NotEmpty(t, cfg.JWTSigningKey, "development fallback key expected")
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("PROBE_TIMEOUT", "2s")
	t.Setenv("CERT_PROVIDER", "platform_managed")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, 2*time.Second, cfg.ProbeTimeout)
	assert.Equal(t, "platform_managed", cfg.CertProvider)
}

func TestLoadBrokerListHygiene(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "broker1:9092, broker2:9092,broker1:9092, ,")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
}

func TestLoadRejectsNonPositiveIntervals(t *testing.T) {
	t.Setenv("SWEEP_INTERVAL", "0s")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SWEEP_INTERVAL")
}
