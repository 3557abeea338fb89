package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v8"
)

const lockPrefix = "gym:scheduler:"

// RedisLocker takes a single-attempt redsync mutex per job name.
type RedisLocker struct {
	rs     *redsync.Redsync
	ttl    time.Duration
	logger *slog.Logger
}

func NewRedisLocker(client *redis.Client, ttl time.Duration, logger *slog.Logger) *RedisLocker {
	return &RedisLocker{
		rs:     redsync.New(goredis.NewPool(client)),
		ttl:    ttl,
		logger: logger,
	}
}

func (l *RedisLocker) TryLock(ctx context.Context, name string) (func(), bool) {
	mutex := l.rs.NewMutex(lockPrefix+name,
		redsync.WithExpiry(l.ttl),
		redsync.WithTries(1),
	)
	if err := mutex.LockContext(ctx); err != nil {
		l.logger.Debug("scheduler lock not acquired", "job", name, "error", err)
		return nil, false
	}

	return func() {
		if _, err := mutex.UnlockContext(context.Background()); err != nil {
			l.logger.Warn("failed to release scheduler lock", "job", name, "error", err)
		}
	}, true
}
