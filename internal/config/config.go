package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	pkgconfig "github.com/devmojahid/restu-food/pkg/config"
	"github.com/devmojahid/restu-food/pkg/database"
)

// Cart store backends.
const (
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

// Config holds all configuration for the cart service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort int `env:"CART_HTTP_PORT" envDefault:"8003"`

	// Durable cart slot backend: redis or postgres.
	Store string `env:"CART_STORE" envDefault:"redis"`

	// Redis
	RedisAddr string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPass string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB   int    `env:"REDIS_DB" envDefault:"0"`

	// Cart TTL in hours (default: 7 days)
	CartTTL int `env:"CART_TTL_HOURS" envDefault:"168"`

	// Carts untouched for this long are dropped from memory. Their
	// snapshots stay in the store.
	CartIdleMinutes int `env:"CART_IDLE_MINUTES" envDefault:"30"`

	// PostgreSQL
	PostgresHost string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser string `env:"POSTGRES_USER" envDefault:"restu_food"`
	PostgresPass string `env:"POSTGRES_PASSWORD" envDefault:"restu_food_secret"`
	PostgresDB   string `env:"CART_DB_NAME" envDefault:"cart_db"`
	PostgresSSL  string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`

	// Database pool
	DBMaxConns            int32 `env:"DB_MAX_CONNS" envDefault:"25"`
	DBMinConns            int32 `env:"DB_MIN_CONNS" envDefault:"5"`
	DBMaxConnLifetimeMins int   `env:"DB_MAX_CONN_LIFETIME_MINUTES" envDefault:"60"`
	DBMaxConnIdleTimeMins int   `env:"DB_MAX_CONN_IDLE_TIME_MINUTES" envDefault:"30"`

	// Kafka
	KafkaEnabled bool     `env:"KAFKA_ENABLED" envDefault:"false"`
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// Offer service
	OfferServiceURL string `env:"OFFER_SERVICE_URL" envDefault:"http://localhost:8010"`
	OfferTimeout    int    `env:"OFFER_TIMEOUT_SECONDS" envDefault:"5"`

	// Circuit breaker settings for the offer service
	CBMaxRequests  uint32  `env:"CB_MAX_REQUESTS" envDefault:"1"`
	CBInterval     int     `env:"CB_INTERVAL_SECONDS" envDefault:"60"`
	CBTimeout      int     `env:"CB_TIMEOUT_SECONDS" envDefault:"30"`
	CBFailureRatio float64 `env:"CB_FAILURE_RATIO" envDefault:"0.5"`
	CBMinRequests  uint32  `env:"CB_MIN_REQUESTS" envDefault:"5"`

	// Pricing
	TaxRate decimal.Decimal `env:"TAX_RATE" envDefault:"0.10"`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`
	OTELInsecure   bool    `env:"OTEL_EXPORTER_OTLP_INSECURE" envDefault:"true"`

	// Pprof debug endpoints (IP allowlist in CIDR notation)
	PprofAllowedCIDRs []string `env:"PPROF_ALLOWED_CIDRS" envDefault:"10.0.0.0/8,172.16.0.0/12,192.168.0.0/16,127.0.0.0/8,::1/128" envSeparator:","`

	// Offer attempts per session
	OfferRatePerMinute float64 `env:"OFFER_RATE_LIMIT_PER_MINUTE" envDefault:"30"`
	OfferBurst         int     `env:"OFFER_RATE_LIMIT_BURST" envDefault:"5"`

	// CORS
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	// Slow query logging
	SlowQueryThresholdMs int `env:"LOG_SLOW_QUERY_MS" envDefault:"500"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load cart config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	switch c.Store {
	case StoreRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required")
		}
	case StorePostgres:
		if c.PostgresHost == "" {
			return fmt.Errorf("POSTGRES_HOST is required")
		}
		if c.PostgresUser == "" {
			return fmt.Errorf("POSTGRES_USER is required")
		}
	default:
		return fmt.Errorf("CART_STORE must be %q or %q, got %q", StoreRedis, StorePostgres, c.Store)
	}
	if c.CartTTL < 1 {
		return fmt.Errorf("CART_TTL_HOURS must be positive, got %d", c.CartTTL)
	}
	if c.CartIdleMinutes < 1 {
		return fmt.Errorf("CART_IDLE_MINUTES must be positive, got %d", c.CartIdleMinutes)
	}
	if c.TaxRate.IsNegative() || c.TaxRate.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("TAX_RATE must be between 0 and 1, got %s", c.TaxRate)
	}
	if c.KafkaEnabled && len(c.KafkaBrokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required when KAFKA_ENABLED is set")
	}
	if c.OfferTimeout < 1 {
		return fmt.Errorf("OFFER_TIMEOUT_SECONDS must be positive, got %d", c.OfferTimeout)
	}
	if c.OfferRatePerMinute > 0 && c.OfferBurst < 1 {
		return fmt.Errorf("OFFER_RATE_LIMIT_BURST must be positive when the limit is enabled, got %d", c.OfferBurst)
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1.0 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %f", c.OTELSampleRate)
	}
	if c.OfferServiceURL == "" {
		return fmt.Errorf("OFFER_SERVICE_URL is required")
	}
	if _, err := url.ParseRequestURI(c.OfferServiceURL); err != nil {
		return fmt.Errorf("invalid OFFER_SERVICE_URL %q: %w", c.OfferServiceURL, err)
	}
	return nil
}

// Postgres returns the connection and pool settings for the postgres store.
func (c *Config) Postgres() database.PostgresConfig {
	return database.PostgresConfig{
		Host:            c.PostgresHost,
		Port:            c.PostgresPort,
		User:            c.PostgresUser,
		Password:        c.PostgresPass,
		DBName:          c.PostgresDB,
		SSLMode:         c.PostgresSSL,
		MaxConns:        c.DBMaxConns,
		MinConns:        c.DBMinConns,
		MaxConnLifetime: time.Duration(c.DBMaxConnLifetimeMins) * time.Minute,
		MaxConnIdleTime: time.Duration(c.DBMaxConnIdleTimeMins) * time.Minute,
	}
}

// CartTTLDuration returns the snapshot time-to-live.
func (c *Config) CartTTLDuration() time.Duration {
	return time.Duration(c.CartTTL) * time.Hour
}

// CartIdleDuration returns how long an untouched cart stays in memory.
func (c *Config) CartIdleDuration() time.Duration {
	return time.Duration(c.CartIdleMinutes) * time.Minute
}

// OfferTimeoutDuration returns the per-call offer service timeout.
func (c *Config) OfferTimeoutDuration() time.Duration {
	return time.Duration(c.OfferTimeout) * time.Second
}
