//go:build integration

package containers

import (
	"context"
	"fmt"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

const redisImage = "redis:7-alpine"

// scanBatch bounds each SCAN round trip when clearing a namespace.
const scanBatch = 256

// RedisContainer is the Redis instance shared by the lock, registry and
// service suites. Each suite owns one key namespace and clears only that.
type RedisContainer struct {
	Container testcontainers.Container
	Addr      string
	Client    *redis.Client
}

// NewRedisContainer starts Redis and returns a pinged client.
func NewRedisContainer(t *testing.T) *RedisContainer {
	t.Helper()
	ctx := context.Background()

	container, err := tcredis.Run(ctx, redisImage)
	if err != nil {
		t.Fatalf("start %s: %v", redisImage, err)
	}
	client, addr, err := connectRedis(ctx, container)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("connect redis: %v", err)
	}

	// Shared across suites through the Manager; Ryuk handles cleanup.
	return &RedisContainer{
		Container: container,
		Addr:      addr,
		Client:    client,
	}
}

func connectRedis(ctx context.Context, container *tcredis.RedisContainer) (*redis.Client, string, error) {
	addr, err := container.ConnectionString(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("connection string: %w", err)
	}
	opts, err := redis.ParseURL(addr)
	if err != nil {
		return nil, "", fmt.Errorf("parse %q: %w", addr, err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, "", fmt.Errorf("ping: %w", err)
	}
	return client, addr, nil
}

// FlushPrefix deletes the keys under prefix, leaving other suites' keys alone.
func (r *RedisContainer) FlushPrefix(ctx context.Context, prefix string) error {
	keys, err := r.KeysWithPrefix(ctx, prefix)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return r.Client.Unlink(ctx, keys...).Err()
}

// KeysWithPrefix lists the keys under prefix using SCAN.
func (r *RedisContainer) KeysWithPrefix(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	iter := r.Client.Scan(ctx, 0, prefix+"*", scanBatch).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan %q: %w", prefix, err)
	}
	return keys, nil
}
