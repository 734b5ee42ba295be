package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/prepline/prepline-backend/pkg/config"
)

// keyPrefix is versioned with the Reconstruction layout.
const keyPrefix = "prepline:stock:recon:v2:"

// RedisMemo shares memoized reconstructions between service replicas.
type RedisMemo struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClient builds a client from config and pings it.
func NewRedisClient(ctx context.Context, cfg *config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}
	return client, nil
}

// NewRedisMemo wraps client. Entries expire after ttl.
func NewRedisMemo(client *redis.Client, ttl time.Duration) *RedisMemo {
	return &RedisMemo{client: client, ttl: ttl}
}

func (m *RedisMemo) Get(ctx context.Context, key string, dst any) (bool, error) {
	raw, err := m.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, err
	}
	return true, nil
}

func (m *RedisMemo) Set(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return m.client.Set(ctx, keyPrefix+key, raw, m.ttl).Err()
}

// Health mirrors the database and broker health maps.
func (m *RedisMemo) Health(ctx context.Context) map[string]string {
	status := map[string]string{"status": "up"}

	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	if err := m.client.Ping(ctx).Err(); err != nil {
		status["status"] = "down"
		status["error"] = err.Error()
	}
	return status
}
