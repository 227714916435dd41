// Package idempotency keeps the per-message dedup state in Redis so it
// is shared between worker replicas and survives restarts.
package idempotency

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	lockKeyPrefix      = "idempotency:lock:"
	processedKeyPrefix = "idempotency:processed:"

	// The lock TTL must exceed the longest plausible handler run,
	// otherwise a second worker can grab the lock mid-processing
	DefaultLockTTL      = 60 * time.Second
	DefaultProcessedTTL = 24 * time.Hour
)

// Store guards message handling: a short-lived processing lock detects
// concurrent redelivery, a longer-lived processed marker makes
// redelivery a no-op.
type Store interface {
	// AcquireLock claims the message for this worker. Returns false
	// when another worker is already processing it.
	AcquireLock(ctx context.Context, messageID string, traceID string) (bool, error)

	// ReleaseLock frees the lock, but only if traceID still owns it,
	// so an expired lock taken over by another worker is left alone
	ReleaseLock(ctx context.Context, messageID string, traceID string) error

	IsProcessed(ctx context.Context, messageID string) (bool, error)
	MarkProcessed(ctx context.Context, messageID string, result string) error
}

type RedisStore struct {
	client       *redis.Client
	lockTTL      time.Duration
	processedTTL time.Duration
}

func NewRedisStore(client *redis.Client, lockTTL, processedTTL time.Duration) *RedisStore {
	if lockTTL == 0 {
		lockTTL = DefaultLockTTL
	}
	if processedTTL == 0 {
		processedTTL = DefaultProcessedTTL
	}

	return &RedisStore{
		client:       client,
		lockTTL:      lockTTL,
		processedTTL: processedTTL,
	}
}

func (s *RedisStore) AcquireLock(ctx context.Context, messageID string, traceID string) (bool, error) {
	ok, err := s.client.SetNX(ctx, lockKeyPrefix+messageID, traceID, s.lockTTL).Result()
	if err != nil {
		return false, fmt.Errorf("acquire lock: %w", err)
	}

	return ok, nil
}

// Check and delete must be atomic, otherwise the lock could expire and
// be re-acquired between the GET and the DEL
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end
`)

func (s *RedisStore) ReleaseLock(ctx context.Context, messageID string, traceID string) error {
	err := releaseScript.Run(ctx, s.client, []string{lockKeyPrefix + messageID}, traceID).Err()
	if err != nil {
		return fmt.Errorf("release lock: %w", err)
	}

	return nil
}

func (s *RedisStore) IsProcessed(ctx context.Context, messageID string) (bool, error) {
	n, err := s.client.Exists(ctx, processedKeyPrefix+messageID).Result()
	if err != nil {
		return false, fmt.Errorf("check processed: %w", err)
	}

	return n > 0, nil
}

func (s *RedisStore) MarkProcessed(ctx context.Context, messageID string, result string) error {
	if result == "" {
		result = "1"
	}

	err := s.client.Set(ctx, processedKeyPrefix+messageID, result, s.processedTTL).Err()
	if err != nil {
		return fmt.Errorf("mark processed: %w", err)
	}

	return nil
}
