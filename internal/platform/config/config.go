package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the full process configuration, loaded from environment variables.
type Config struct {
	Server   Server
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Matching MatchingConfig
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string        `env:"BLOODLINK_ADDR" envDefault:":8080"`
	JWTSigningKey   string        `env:"JWT_SIGNING_KEY" envDefault:"dev-secret-key-change-in-production"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat       string        `env:"LOG_FORMAT" envDefault:"json"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`
}

// DatabaseConfig selects the request store. An empty URL keeps state in memory.
type DatabaseConfig struct {
	URL          string `env:"DATABASE_URL"`
	MaxOpenConns int    `env:"DATABASE_MAX_OPEN_CONNS" envDefault:"20"`
	MaxIdleConns int    `env:"DATABASE_MAX_IDLE_CONNS" envDefault:"5"`
}

// RedisConfig configures the shared Redis used for the disaster flag and scheduler lock.
type RedisConfig struct {
	URL          string        `env:"REDIS_URL"`
	PoolSize     int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT" envDefault:"3s"`
}

// KafkaConfig configures the email job producer. No brokers means log-only dispatch.
type KafkaConfig struct {
	Brokers  []string `env:"KAFKA_BROKERS" envSeparator:","`
	Topic    string   `env:"KAFKA_EMAIL_TOPIC" envDefault:"bloodlink.email.jobs"`
	ClientID string   `env:"KAFKA_CLIENT_ID" envDefault:"bloodlink"`
}

// MatchingConfig holds the tunables of the matching engine.
type MatchingConfig struct {
	EscalationInterval  time.Duration `env:"ESCALATION_INTERVAL" envDefault:"5m"`
	DwellTime           time.Duration `env:"ESCALATION_DWELL" envDefault:"5m"`
	SchedulerLockTTL    time.Duration `env:"ESCALATION_LOCK_TTL" envDefault:"4m"`
	DisasterMinRadiusKm float64       `env:"DISASTER_MIN_RADIUS_KM" envDefault:"100"`
	DisasterKey         string        `env:"DISASTER_REDIS_KEY" envDefault:"bloodlink:disaster"`
	NotifyConcurrency   int           `env:"NOTIFY_CONCURRENCY" envDefault:"8"`
	NotifyTimeout       time.Duration `env:"NOTIFY_TIMEOUT" envDefault:"5s"`
}

// FromEnv parses and validates configuration.
func FromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects values the engine cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("BLOODLINK_ADDR is required"))
	}
	if c.Server.JWTSigningKey == "" {
		errs = append(errs, errors.New("JWT_SIGNING_KEY is required"))
	}
	if c.Matching.EscalationInterval <= 0 {
		errs = append(errs, errors.New("ESCALATION_INTERVAL must be positive"))
	}
	if c.Matching.DwellTime < 0 {
		errs = append(errs, errors.New("ESCALATION_DWELL must not be negative"))
	}
	if c.Matching.DisasterMinRadiusKm < 0 {
		errs = append(errs, errors.New("DISASTER_MIN_RADIUS_KM must not be negative"))
	}
	if c.Matching.NotifyConcurrency < 1 {
		errs = append(errs, errors.New("NOTIFY_CONCURRENCY must be at least 1"))
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.Topic == "" {
		errs = append(errs, errors.New("KAFKA_EMAIL_TOPIC is required when KAFKA_BROKERS is set"))
	}
	return errors.Join(errs...)
}
