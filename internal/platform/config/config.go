package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config is the full process configuration, loaded from the environment.
type Config struct {
	Server    Server
	Redis     RedisConfig
	Postgres  PostgresConfig
	Kafka     KafkaConfig
	Generator GeneratorConfig
	Log       LogConfig
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string        `envconfig:"ADDR" default:":8080"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
}

// RedisConfig configures the shared lock/registry store.
// An empty URL means Redis is not configured.
type RedisConfig struct {
	URL          string        `envconfig:"REDIS_URL"`
	PoolSize     int           `envconfig:"REDIS_POOL_SIZE" default:"20"`
	MinIdleConns int           `envconfig:"REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"REDIS_DIAL_TIMEOUT" default:"1s"`
	ReadTimeout  time.Duration `envconfig:"REDIS_READ_TIMEOUT" default:"100ms"`
	WriteTimeout time.Duration `envconfig:"REDIS_WRITE_TIMEOUT" default:"100ms"`
}

// PostgresConfig configures the durable registry backend.
type PostgresConfig struct {
	DSN          string `envconfig:"POSTGRES_DSN"`
	MaxOpenConns int    `envconfig:"POSTGRES_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns int    `envconfig:"POSTGRES_MAX_IDLE_CONNS" default:"5"`
}

// KafkaConfig configures the issuance event stream. No brokers disables publishing.
type KafkaConfig struct {
	Brokers       []string `envconfig:"KAFKA_BROKERS"`
	IssuanceTopic string   `envconfig:"KAFKA_ISSUANCE_TOPIC" default:"tracking-number-issued"`
	ClientID      string   `envconfig:"KAFKA_CLIENT_ID" default:"trackgen"`
}

// Lock sharding strategies.
const (
	ShardingGlobal   = "global"
	ShardingCustomer = "customer"
	ShardingBucket   = "bucket"
)

// Store backends.
const (
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// GeneratorConfig tunes the tracking number critical section.
type GeneratorConfig struct {
	LockTTL         time.Duration `envconfig:"LOCK_TTL" default:"100ms"`
	StoreTimeout    time.Duration `envconfig:"STORE_TIMEOUT" default:"25ms"`
	MaxAttempts     int           `envconfig:"MAX_ATTEMPTS" default:"3"`
	LockSharding    string        `envconfig:"LOCK_SHARDING" default:"customer"`
	LockBuckets     int           `envconfig:"LOCK_BUCKETS" default:"64"`
	LockBackend     string        `envconfig:"LOCK_BACKEND" default:"redis"`
	RegistryBackend string        `envconfig:"REGISTRY_BACKEND" default:"redis"`
	RegistryTTL     time.Duration `envconfig:"REGISTRY_TTL" default:"0"`
}

// LogConfig configures the slog handler.
type LogConfig struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Format string `envconfig:"LOG_FORMAT" default:"json"`
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("process env config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// DefaultGenerator returns generator settings matching the env defaults.
func DefaultGenerator() GeneratorConfig {
	return GeneratorConfig{
		LockTTL:         100 * time.Millisecond,
		StoreTimeout:    25 * time.Millisecond,
		MaxAttempts:     3,
		LockSharding:    ShardingCustomer,
		LockBuckets:     64,
		LockBackend:     BackendMemory,
		RegistryBackend: BackendMemory,
	}
}

// Validate rejects settings the generator cannot run with.
func (c Config) Validate() error {
	var errs []error
	if err := c.Generator.Validate(); err != nil {
		errs = append(errs, err)
	}
	usesRedis := c.Generator.LockBackend == BackendRedis || c.Generator.RegistryBackend == BackendRedis
	if usesRedis && c.Redis.URL == "" {
		errs = append(errs, errors.New("REDIS_URL is required for the redis backend"))
	}
	if c.Generator.RegistryBackend == BackendPostgres && c.Postgres.DSN == "" {
		errs = append(errs, errors.New("POSTGRES_DSN is required for the postgres registry"))
	}
	return errors.Join(errs...)
}

// Validate checks generator settings in isolation.
func (g GeneratorConfig) Validate() error {
	var errs []error
	if g.LockTTL <= 0 {
		errs = append(errs, errors.New("LOCK_TTL must be positive"))
	}
	if g.StoreTimeout <= 0 {
		errs = append(errs, errors.New("STORE_TIMEOUT must be positive"))
	}
	if g.MaxAttempts <= 0 {
		errs = append(errs, errors.New("MAX_ATTEMPTS must be positive"))
	}
	// Every attempt must be able to finish while the lock is still held.
	if g.LockTTL > 0 && g.StoreTimeout > 0 && g.MaxAttempts > 0 &&
		time.Duration(g.MaxAttempts)*g.StoreTimeout >= g.LockTTL {
		errs = append(errs, fmt.Errorf("MAX_ATTEMPTS*STORE_TIMEOUT (%s) must be below LOCK_TTL (%s)",
			time.Duration(g.MaxAttempts)*g.StoreTimeout, g.LockTTL))
	}
	if g.RegistryTTL < 0 {
		errs = append(errs, errors.New("REGISTRY_TTL must not be negative"))
	}
	switch g.LockSharding {
	case ShardingGlobal, ShardingCustomer:
	case ShardingBucket:
		if g.LockBuckets <= 0 {
			errs = append(errs, errors.New("LOCK_BUCKETS must be positive for bucket sharding"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown LOCK_SHARDING %q", g.LockSharding))
	}
	switch g.LockBackend {
	case BackendRedis, BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown LOCK_BACKEND %q", g.LockBackend))
	}
	switch g.RegistryBackend {
	case BackendRedis, BackendPostgres, BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown REGISTRY_BACKEND %q", g.RegistryBackend))
	}
	return errors.Join(errs...)
}
