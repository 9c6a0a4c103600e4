package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 100*time.Millisecond, cfg.Generator.LockTTL)
	assert.Equal(t, 25*time.Millisecond, cfg.Generator.StoreTimeout)
	assert.Equal(t, 3, cfg.Generator.MaxAttempts)
	assert.Equal(t, ShardingCustomer, cfg.Generator.LockSharding)
	assert.Equal(t, BackendRedis, cfg.Generator.LockBackend)
	assert.Equal(t, BackendRedis, cfg.Generator.RegistryBackend)
	assert.Equal(t, "tracking-number-issued", cfg.Kafka.IssuanceTopic)
	assert.Empty(t, cfg.Kafka.Brokers)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("LOCK_BACKEND", "memory")
	t.Setenv("REGISTRY_BACKEND", "postgres")
	t.Setenv("POSTGRES_DSN", "postgres://u:p@localhost/db?sslmode=disable")
	t.Setenv("LOCK_SHARDING", "bucket")
	t.Setenv("LOCK_BUCKETS", "16")
	t.Setenv("LOCK_TTL", "250ms")
	t.Setenv("KAFKA_BROKERS", "b1:9092,b2:9092")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ShardingBucket, cfg.Generator.LockSharding)
	assert.Equal(t, 16, cfg.Generator.LockBuckets)
	assert.Equal(t, 250*time.Millisecond, cfg.Generator.LockTTL)
	assert.Equal(t, []string{"b1:9092", "b2:9092"}, cfg.Kafka.Brokers)
}

func TestValidate(t *testing.T) {
	t.Run("redis backend without url", func(t *testing.T) {
		cfg := Config{Generator: DefaultGenerator()}
		cfg.Generator.LockBackend = BackendRedis
		assert.ErrorContains(t, cfg.Validate(), "REDIS_URL")
	})

	t.Run("postgres registry without dsn", func(t *testing.T) {
		cfg := Config{Generator: DefaultGenerator()}
		cfg.Generator.RegistryBackend = BackendPostgres
		assert.ErrorContains(t, cfg.Validate(), "POSTGRES_DSN")
	})

	t.Run("bad generator settings are all reported", func(t *testing.T) {
		g := DefaultGenerator()
		g.LockTTL = 0
		g.MaxAttempts = 0
		g.LockSharding = "tenant"
		err := g.Validate()
		require.Error(t, err)
		assert.ErrorContains(t, err, "LOCK_TTL")
		assert.ErrorContains(t, err, "MAX_ATTEMPTS")
		assert.ErrorContains(t, err, "LOCK_SHARDING")
	})

	t.Run("attempts must fit inside the lock ttl", func(t *testing.T) {
		g := DefaultGenerator()
		g.LockTTL = 100 * time.Millisecond
		g.StoreTimeout = 50 * time.Millisecond
		g.MaxAttempts = 3
		assert.ErrorContains(t, g.Validate(), "must be below LOCK_TTL")

		g.MaxAttempts = 2
		assert.ErrorContains(t, g.Validate(), "must be below LOCK_TTL", "equal to the ttl leaves no margin")

		g.StoreTimeout = 30 * time.Millisecond
		assert.NoError(t, g.Validate())
	})

	t.Run("defaults are valid", func(t *testing.T) {
		assert.NoError(t, Config{Generator: DefaultGenerator()}.Validate())
	})
}
