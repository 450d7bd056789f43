package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/tesoreria/backend/internal/domain/idempotency"
	"go.uber.org/zap"
)

// RedisInFlightGate implements InFlightGate using Redis SETNX locks.
// This is suitable for distributed deployments where multiple instances
// need to shed duplicate requests before touching the database.
type RedisInFlightGate struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
	logger    *zap.Logger
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// NewRedisInFlightGate creates a new Redis-backed in-flight gate
func NewRedisInFlightGate(cfg RedisConfig, ttl time.Duration, logger *zap.Logger) (*RedisInFlightGate, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisInFlightGate{
		client:    client,
		keyPrefix: "treasury:inflight:",
		ttl:       ttl,
		logger:    logger,
	}, nil
}

// NewRedisInFlightGateWithClient creates a gate with an existing Redis client.
// This is useful for testing or when sharing a client across components.
func NewRedisInFlightGateWithClient(client *redis.Client, keyPrefix string, ttl time.Duration, logger *zap.Logger) *RedisInFlightGate {
	if keyPrefix == "" {
		keyPrefix = "treasury:inflight:"
	}
	return &RedisInFlightGate{
		client:    client,
		keyPrefix: keyPrefix,
		ttl:       ttl,
		logger:    logger,
	}
}

// TryAcquire claims the key with a TTL so a crashed request never pins it
// forever. Returns false when another request already holds the key.
func (g *RedisInFlightGate) TryAcquire(ctx context.Context, tenantID uuid.UUID, op idempotency.OperationType, key string) (bool, error) {
	acquired, err := g.client.SetNX(ctx, g.gateKey(tenantID, op, key), "1", g.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire in-flight lock: %w", err)
	}
	return acquired, nil
}

// Release frees the key. Failures are logged, not returned: the TTL
// expires the lock anyway.
func (g *RedisInFlightGate) Release(ctx context.Context, tenantID uuid.UUID, op idempotency.OperationType, key string) {
	if err := g.client.Del(ctx, g.gateKey(tenantID, op, key)).Err(); err != nil {
		g.logger.Warn("failed to release in-flight lock",
			zap.String("tenant_id", tenantID.String()),
			zap.String("operation", string(op)),
			zap.Error(err))
	}
}

// Close closes the Redis client
func (g *RedisInFlightGate) Close() error {
	return g.client.Close()
}

func (g *RedisInFlightGate) gateKey(tenantID uuid.UUID, op idempotency.OperationType, key string) string {
	return g.keyPrefix + tenantID.String() + ":" + string(op) + ":" + key
}

// Ensure RedisInFlightGate implements InFlightGate
var _ idempotency.InFlightGate = (*RedisInFlightGate)(nil)
