package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"

	devJWTSecret = "dev-secret-change-me"
)

type Config struct {
	Port      string        `env:"PORT,      default=3000"`
	Env       string        `env:"ENV,       default=development"`
	JWTSecret string        `env:"JWT_SECRET"`
	TokenTTL  time.Duration `env:"TOKEN_TTL, default=1h"`
	LogLevel  string        `env:"LOG_LEVEL, default=info"`

	StorageDriver string `env:"STORAGE_DRIVER, default=mongo"`

	Mongo    MongoConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	MQTT     MQTTConfig
	Reporter ReporterConfig
	Realtime RealtimeConfig
	HTTP     HTTPConfig
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=sensor_backend"`
}

type PostgresConfig struct {
	DSN string `env:"POSTGRES_DSN, default=postgres://localhost:5432/sensors?sslmode=disable"`
}

// RedisConfig enables the cross-instance realtime relay when Addr is set.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,      default=0"`
	Channel  string `env:"REDIS_CHANNEL, default=sensor-readings"`
}

// MQTTConfig enables the MQTT ingestion bridge when Broker is set.
type MQTTConfig struct {
	Broker   string `env:"MQTT_BROKER"`
	ClientID string `env:"MQTT_CLIENT_ID, default=sensor-backend"`
	Topic    string `env:"MQTT_TOPIC,     default=sensors/+/readings"`
}

type ReporterConfig struct {
	Enabled  bool          `env:"REPORTER_ENABLED,  default=false"`
	Interval time.Duration `env:"REPORTER_INTERVAL, default=10s"`
}

type RealtimeConfig struct {
	RequireToken bool `env:"REALTIME_REQUIRE_TOKEN, default=false"`
	Buffer       int  `env:"REALTIME_BUFFER,        default=16"`
}

type HTTPConfig struct {
	ReadTimeout    time.Duration `env:"HTTP_READ_TIMEOUT,    default=10s"`
	WriteTimeout   time.Duration `env:"HTTP_WRITE_TIMEOUT,   default=15s"`
	RequestTimeout time.Duration `env:"HTTP_REQUEST_TIMEOUT, default=15s"`
	AllowedOrigins []string      `env:"CORS_ALLOWED_ORIGINS, default=*"`
}

// IsDevelopment reports whether the process runs with development defaults.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// Load reads an optional .env file and then the process environment.
func Load(ctx context.Context) (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()
	return LoadFrom(ctx, envconfig.OsLookuper())
}

// LoadFrom processes configuration from l and validates it.
func LoadFrom(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.StorageDriver {
	case DriverMongo, DriverPostgres, DriverMemory:
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver)
	}

	if c.JWTSecret == "" {
		if !c.IsDevelopment() {
			return errors.New("JWT_SECRET is required")
		}
		c.JWTSecret = devJWTSecret
	}
	if c.TokenTTL <= 0 {
		return errors.New("TOKEN_TTL must be positive")
	}
	if c.Reporter.Enabled && c.Reporter.Interval <= 0 {
		return errors.New("REPORTER_INTERVAL must be positive")
	}
	return nil
}
