package messaging

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const dedupeKeyPrefix = "taskgen:request:"

// RequestGuard claims request ids so a redelivered request is not run twice.
type RequestGuard interface {
	// Claim reports whether requestID was not claimed before.
	Claim(ctx context.Context, requestID string) (bool, error)
	// Release forgets a claim so the request can run again.
	Release(ctx context.Context, requestID string) error
}

// RedisGuard claims request ids with SET NX and a TTL.
type RedisGuard struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewRedisGuard creates a RedisGuard.
func NewRedisGuard(client redis.Cmdable, ttl time.Duration) *RedisGuard {
	return &RedisGuard{client: client, ttl: ttl}
}

func (g *RedisGuard) Claim(ctx context.Context, requestID string) (bool, error) {
	ok, err := g.client.SetNX(ctx, dedupeKeyPrefix+requestID, time.Now().UTC().Format(time.RFC3339), g.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to claim request %s: %w", requestID, err)
	}
	return ok, nil
}

func (g *RedisGuard) Release(ctx context.Context, requestID string) error {
	if err := g.client.Del(ctx, dedupeKeyPrefix+requestID).Err(); err != nil {
		return fmt.Errorf("failed to release request %s: %w", requestID, err)
	}
	return nil
}

// ConnectRedis creates a client and pings it once.
func ConnectRedis(ctx context.Context, addr, password string, db int, logger *zap.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("unable to ping redis at %s: %w", addr, err)
	}
	logger.Info("Connected to Redis", zap.String("address", addr), zap.Int("db", db))
	return client, nil
}
