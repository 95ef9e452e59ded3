package config

import (
	"fmt"
	"net/url"
	"time"
	_ "time/tzdata" // DISPLAY_TIMEZONE must resolve in minimal images

	pkgconfig "github.com/utafrali/savedcarts/pkg/config"
	"github.com/utafrali/savedcarts/pkg/database"
)

// Store backends for user attributes.
const (
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Config holds all configuration for the saved-carts service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort int `env:"SAVED_CARTS_HTTP_PORT" envDefault:"8013"`

	// Storefront links
	SiteURL         string `env:"SITE_URL" envDefault:""`
	CartURL         string `env:"CART_URL" envDefault:"/cart"`
	DisplayTimezone string `env:"DISPLAY_TIMEZONE" envDefault:"UTC"`

	// Attribute store: redis or postgres
	StoreBackend string `env:"STORE_BACKEND" envDefault:"redis"`

	// Redis (notices, and attributes when STORE_BACKEND=redis)
	RedisAddr string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPass string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB   int    `env:"REDIS_DB" envDefault:"0"`

	NoticeTTLMinutes int `env:"NOTICE_TTL_MINUTES" envDefault:"30"`

	// PostgreSQL (attributes when STORE_BACKEND=postgres)
	PostgresHost string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser string `env:"POSTGRES_USER" envDefault:"ecommerce"`
	PostgresPass string `env:"POSTGRES_PASSWORD" envDefault:"ecommerce_secret"`
	PostgresDB   string `env:"SAVED_CARTS_DB_NAME" envDefault:"saved_carts_db"`
	PostgresSSL  string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`

	// Database pool
	DBMaxConns            int32 `env:"DB_MAX_CONNS" envDefault:"10"`
	DBMinConns            int32 `env:"DB_MIN_CONNS" envDefault:"2"`
	DBMaxConnLifetimeMins int   `env:"DB_MAX_CONN_LIFETIME_MINUTES" envDefault:"60"`
	DBMaxConnIdleTimeMins int   `env:"DB_MAX_CONN_IDLE_TIME_MINUTES" envDefault:"30"`

	// Slow query logging
	SlowQueryThresholdMs int `env:"SLOW_QUERY_THRESHOLD_MS" envDefault:"200"`

	// Cart service
	CartServiceURL            string `env:"CART_SERVICE_URL" envDefault:"http://localhost:8003"`
	CartServiceTimeoutSeconds int    `env:"CART_SERVICE_TIMEOUT_SECONDS" envDefault:"5"`

	// Circuit breaker around the cart service
	CBMaxRequests  uint32  `env:"CB_MAX_REQUESTS" envDefault:"1"`
	CBInterval     int     `env:"CB_INTERVAL_SECONDS" envDefault:"60"`
	CBTimeout      int     `env:"CB_TIMEOUT_SECONDS" envDefault:"30"`
	CBFailureRatio float64 `env:"CB_FAILURE_RATIO" envDefault:"0.5"`
	CBMinRequests  uint32  `env:"CB_MIN_REQUESTS" envDefault:"5"`

	// Kafka
	KafkaEnabled       bool     `env:"KAFKA_ENABLED" envDefault:"true"`
	KafkaBrokers       []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`
	KafkaConsumerGroup string   `env:"KAFKA_CONSUMER_GROUP" envDefault:"saved-carts-service"`
	// Empty disables the user.deleted consumer.
	UserDeletedTopic string `env:"USER_DELETED_TOPIC" envDefault:"ecommerce.user.deleted"`

	// JWT secret for token-based identity on plain browser links. Empty
	// means only the gateway X-User-ID header identifies users.
	JWTSecret string `env:"JWT_SECRET" envDefault:""`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`

	// Addresses of the API gateway. X-User-ID is honoured only from these;
	// empty means the header is never trusted.
	TrustedProxyCIDRs []string `env:"TRUSTED_PROXY_CIDRS" envDefault:"10.0.0.0/8,172.16.0.0/12,192.168.0.0/16,127.0.0.0/8,::1/128" envSeparator:","`

	// Pprof debug endpoints (IP allowlist in CIDR notation)
	PprofAllowedCIDRs []string `env:"PPROF_ALLOWED_CIDRS" envDefault:"10.0.0.0/8,172.16.0.0/12,192.168.0.0/16,127.0.0.0/8,::1/128" envSeparator:","`

	// CORS for storefronts that fetch the fragments cross-origin
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	location *time.Location
}

// Load reads configuration from environment variables.
func Load(opts ...pkgconfig.Option) (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg, opts...); err != nil {
		return nil, fmt.Errorf("load saved-carts config: %w", err)
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
	switch c.StoreBackend {
	case BackendRedis, BackendPostgres:
	default:
		return fmt.Errorf("STORE_BACKEND must be %q or %q, got %q", BackendRedis, BackendPostgres, c.StoreBackend)
	}
	if c.RedisAddr == "" {
		return fmt.Errorf("REDIS_ADDR is required")
	}
	if c.StoreBackend == BackendPostgres && (c.PostgresHost == "" || c.PostgresUser == "") {
		return fmt.Errorf("POSTGRES_HOST and POSTGRES_USER are required for the postgres backend")
	}
	if c.NoticeTTLMinutes < 1 {
		return fmt.Errorf("NOTICE_TTL_MINUTES must be positive, got %d", c.NoticeTTLMinutes)
	}
	if c.CartURL == "" {
		return fmt.Errorf("CART_URL is required")
	}
	if _, err := url.ParseRequestURI(c.CartServiceURL); err != nil {
		return fmt.Errorf("invalid CART_SERVICE_URL %q: %w", c.CartServiceURL, err)
	}
	if c.SiteURL != "" {
		if _, err := url.ParseRequestURI(c.SiteURL); err != nil {
			return fmt.Errorf("invalid SITE_URL %q: %w", c.SiteURL, err)
		}
	}
	if c.CartServiceTimeoutSeconds < 1 {
		return fmt.Errorf("CART_SERVICE_TIMEOUT_SECONDS must be positive, got %d", c.CartServiceTimeoutSeconds)
	}
	if c.CBFailureRatio <= 0 || c.CBFailureRatio > 1.0 {
		return fmt.Errorf("CB_FAILURE_RATIO must be in (0.0, 1.0], got %f", c.CBFailureRatio)
	}
	if c.KafkaEnabled && len(c.KafkaBrokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required when KAFKA_ENABLED is set")
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1.0 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %f", c.OTELSampleRate)
	}

	loc, err := time.LoadLocation(c.DisplayTimezone)
	if err != nil {
		return fmt.Errorf("invalid DISPLAY_TIMEZONE %q: %w", c.DisplayTimezone, err)
	}
	c.location = loc
	return nil
}

// Location returns the time zone saved-cart dates are displayed in.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.UTC
	}
	return c.location
}

// Postgres returns the connection pool configuration.
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

// Redis returns the Redis client configuration.
func (c *Config) Redis() database.RedisConfig {
	return database.RedisConfig{
		Addr:     c.RedisAddr,
		Password: c.RedisPass,
		DB:       c.RedisDB,
	}
}

// NoticeTTL returns how long undisplayed notices are kept.
func (c *Config) NoticeTTL() time.Duration {
	return time.Duration(c.NoticeTTLMinutes) * time.Minute
}
