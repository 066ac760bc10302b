package ingestion

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/racunko/racunko-backend/internal/domain/errors"
)

const (
	lockPrefix = "racunko:lock:"
	lockTTL    = 10 * time.Second
)

// releaseScript deletes the lock only if this holder still owns it, so a
// slow ingestion cannot release a lock the TTL already handed to another.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// RedisLocker implements Locker with a short-TTL SET NX lock
type RedisLocker struct {
	client *redis.Client
}

// NewRedisLocker creates a redis-backed import locker
func NewRedisLocker(client *redis.Client) *RedisLocker {
	return &RedisLocker{client: client}
}

// Acquire implements Locker
func (l *RedisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	fullKey := lockPrefix + key
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, fullKey, token, lockTTL).Result()
	if err != nil {
		return nil, errors.NewStorageError("lock acquire", err)
	}
	if !ok {
		return nil, errors.NewConflictError("another import of this bill is in progress")
	}

	release := func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		// Best effort: the TTL reclaims the lock if the release is lost.
		_ = releaseScript.Run(releaseCtx, l.client, []string{fullKey}, token).Err()
	}
	return release, nil
}

// NoopLocker implements Locker without any coordination, for single-process
// tooling where storage-level serialization is enough.
type NoopLocker struct{}

func (NoopLocker) Acquire(context.Context, string) (func(), error) {
	return func() {}, nil
}
