// Package config loads service configuration from the environment. A local
// .env file is honored for development; real deployments set variables
// directly.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"

	"github.com/kessotolo/ConversationalCommerce-sub002/pkg/platform/strings"
)

// Config is the full configuration for the custom-domain service.
type Config struct {
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// PlatformApex is the base domain tenant storefronts hang off; a tenant
	// with subdomain "acme" is expected to CNAME to acme.<PlatformApex>.
	PlatformApex string `env:"PLATFORM_APEX" envDefault:"convocommerce.app"`

	// PostgresURL selects the relational stores; empty means in-memory.
	PostgresURL string `env:"POSTGRES_URL"`

	// KafkaBrokers enables the lifecycle event publisher; empty means no-op.
	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaTopic   string   `env:"KAFKA_TOPIC" envDefault:"domain-lifecycle"`

	JWTSigningKey string `env:"JWT_SIGNING_KEY"`

	VerificationInterval time.Duration `env:"VERIFICATION_INTERVAL" envDefault:"24h"`
	SweepInterval        time.Duration `env:"SWEEP_INTERVAL" envDefault:"24h"`
	SweepDomainDelay     time.Duration `env:"SWEEP_DOMAIN_DELAY" envDefault:"1s"`
	HealthCacheTTL       time.Duration `env:"HEALTH_CACHE_TTL" envDefault:"300s"`
	ProbeTimeout         time.Duration `env:"PROBE_TIMEOUT" envDefault:"10s"`
	RenewalLead          time.Duration `env:"RENEWAL_LEAD" envDefault:"720h"`
	ShutdownTimeout      time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	TaskWorkers   int `env:"TASK_WORKERS" envDefault:"4"`
	TaskQueueSize int `env:"TASK_QUEUE_SIZE" envDefault:"256"`

	CertProvider string `env:"CERT_PROVIDER" envDefault:"letsencrypt"`

	ACME    ACMEConfig
	Managed ManagedCertConfig
	Redis   RedisConfig
}

// ACMEConfig configures the Let's Encrypt style provider.
type ACMEConfig struct {
	CacheDir string `env:"ACME_CACHE_DIR" envDefault:".autocert-cache"`
	Email    string `env:"ACME_EMAIL"`
}

// ManagedCertConfig configures the CDN-managed certificate provider.
type ManagedCertConfig struct {
	APIURL  string        `env:"MANAGED_CERT_API_URL"`
	APIKey  string        `env:"MANAGED_CERT_API_KEY"`
	Timeout time.Duration `env:"MANAGED_CERT_TIMEOUT" envDefault:"30s"`
}

// RedisConfig configures the optional shared caches. Empty URL keeps the
// debounce and health caches process-local.
type RedisConfig struct {
	URL          string        `env:"REDIS_URL"`
	PoolSize     int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT" envDefault:"3s"`
}

// Load reads configuration from the environment, applying .env first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	// env splits on "," without trimming; "a, b" would hand kgo a broker
	// named " b".
	cfg.KafkaBrokers = strings.DedupeAndTrim(cfg.KafkaBrokers)
	if cfg.JWTSigningKey == "" {
		// Development fallback; deployments must override.
		cfg.JWTSigningKey = "dev-secret-key-change-in-production"
	}
	if cfg.VerificationInterval <= 0 {
		return nil, fmt.Errorf("VERIFICATION_INTERVAL must be positive")
	}
	if cfg.SweepInterval <= 0 {
		return nil, fmt.Errorf("SWEEP_INTERVAL must be positive")
	}
	if cfg.ProbeTimeout <= 0 {
		return nil, fmt.Errorf("PROBE_TIMEOUT must be positive")
	}
	return cfg, nil
}
