package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/sifan077/curto/internal/app/model"
)

type Config struct {
	// HTTP listener
	Application ApplicationConfig `mapstructure:"application"`

	// Link store
	Database DatabaseConfig `mapstructure:"database"`

	// Redis, used by the rate limiter
	Redis RedisConfig `mapstructure:"redis"`

	// NATS JetStream, used for link lifecycle events
	NATS NATSConfig `mapstructure:"nats"`

	// Logging
	Log LogConfig `mapstructure:"log"`

	// Prometheus
	Metrics MetricsConfig `mapstructure:"metrics"`
}

type ApplicationConfig struct {
	Host            string        `mapstructure:"host" validate:"required"`
	Port            int           `mapstructure:"port" validate:"gte=1,lte=65535"`
	Env             string        `mapstructure:"env" validate:"oneof=development production"`
	ShouldRateLimit bool          `mapstructure:"shouldratelimit"`
	RateLimitMax    int           `mapstructure:"ratelimit_max" validate:"gte=1"`
	RateLimitWindow time.Duration `mapstructure:"ratelimit_window" validate:"gt=0"`
}

// Addr returns the host:port the server listens on.
func (a ApplicationConfig) Addr() string {
	return fmt.Sprintf("%s:%d", a.Host, a.Port)
}

// Development reports whether the service runs in development mode.
func (a ApplicationConfig) Development() bool {
	return a.Env == "development"
}

type DatabaseConfig struct {
	Driver      string        `mapstructure:"driver" validate:"oneof=postgres sqlite memory"`
	URL         string        `mapstructure:"url" validate:"required_unless=Driver memory"`
	RequireSSL  bool          `mapstructure:"requiressl"`
	Timeout     time.Duration `mapstructure:"timeout" validate:"gt=0"`
	MinConns    int32         `mapstructure:"min_conns" validate:"gte=0"`
	MaxConns    int32         `mapstructure:"max_conns" validate:"gte=1,gtefield=MinConns"`
	MaxConnLife time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdle time.Duration `mapstructure:"max_conn_idle_time"`
	HealthCheck time.Duration `mapstructure:"health_check_period"`
}

type RedisConfig struct {
	// URL, when set, takes precedence over the discrete fields.
	URL      string `mapstructure:"url" validate:"omitempty,url"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type NATSConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Stream   string `mapstructure:"stream" validate:"required_if=Enabled true"`
	Subject  string `mapstructure:"subject" validate:"required_if=Enabled true"`
}

type LogConfig struct {
	Level      string `mapstructure:"level" validate:"omitempty,oneof=debug info warn error"`
	Encoding   string `mapstructure:"encoding" validate:"omitempty,oneof=json console"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" validate:"gte=0"`
	MaxBackups int    `mapstructure:"max_backups" validate:"gte=0"`
	MaxAgeDays int    `mapstructure:"max_age_days" validate:"gte=0"`
}

type MetricsConfig struct {
	Namespace string `mapstructure:"namespace"`
}

func Load() (*Config, error) {
	// Load local .env for development (ignored when missing).
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	// Search for config/config.yaml (plus root for overrides).
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// Allow environment variables to override YAML entries.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	bindEnvVars(v)

	return decode(v)
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the struct tags on cfg.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return fmt.Errorf("invalid config: %s failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("application.host", "0.0.0.0")
	v.SetDefault("application.port", 7229)
	v.SetDefault("application.env", "production")
	v.SetDefault("application.shouldratelimit", true)
	v.SetDefault("application.ratelimit_max", 10)
	v.SetDefault("application.ratelimit_window", 2*time.Second)

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.requiressl", false)
	v.SetDefault("database.timeout", 400*time.Millisecond)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.max_conn_lifetime", 30*time.Minute)
	v.SetDefault("database.max_conn_idle_time", 5*time.Minute)
	v.SetDefault("database.health_check_period", time.Minute)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)

	v.SetDefault("nats.enabled", false)
	v.SetDefault("nats.host", "localhost")
	v.SetDefault("nats.port", 4222)
	v.SetDefault("nats.stream", model.LinkStreamName)
	v.SetDefault("nats.subject", model.LinkStreamSubject)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "json")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 28)

	v.SetDefault("metrics.namespace", "curto")
}

func bindEnvVars(v *viper.Viper) {
	// Application
	v.BindEnv("application.host", "APPLICATION_HOST")
	v.BindEnv("application.port", "APPLICATION_PORT")
	v.BindEnv("application.env", "APP_ENV")
	v.BindEnv("application.shouldratelimit", "APPLICATION_SHOULDRATELIMIT")

	// Database
	v.BindEnv("database.driver", "DATABASE_DRIVER")
	v.BindEnv("database.url", "DATABASE_URL")
	v.BindEnv("database.requiressl", "DATABASE_REQUIRESSL")

	// Redis
	v.BindEnv("redis.url", "REDIS_URL")
	v.BindEnv("redis.host", "REDIS_HOST")
	v.BindEnv("redis.port", "REDIS_PORT")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("redis.db", "REDIS_DB")

	// NATS
	v.BindEnv("nats.enabled", "NATS_ENABLED")
	v.BindEnv("nats.host", "NATS_HOST")
	v.BindEnv("nats.port", "NATS_PORT")
	v.BindEnv("nats.user", "NATS_USER")
	v.BindEnv("nats.password", "NATS_PASSWORD")

	// Logging
	v.BindEnv("log.level", "LOG_LEVEL")
	v.BindEnv("log.encoding", "LOG_ENCODING")
	v.BindEnv("log.file", "LOG_FILE")
}
