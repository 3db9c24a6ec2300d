package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const tickLockKey = "recurring_messages:tick_lock"

// releaseScript deletes the lock only when it still holds our token, so an
// expired-and-reacquired lock is never released by the old holder.
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`

// RedisTickLock is a best-effort mutual exclusion for dispatch ticks across
// processes (two replicas, or a cron tick racing a manual trigger). The TTL
// bounds how long a crashed holder can block other ticks.
type RedisTickLock struct {
	client *redis.Client
	ttl    time.Duration
	logger *logrus.Logger
}

func NewRedisTickLock(client *redis.Client, ttl time.Duration, logger *logrus.Logger) *RedisTickLock {
	return &RedisTickLock{client: client, ttl: ttl, logger: logger}
}

// Acquire takes the tick lock. ok=false means another process holds it.
func (l *RedisTickLock) Acquire(ctx context.Context) (func(), bool, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, tickLockKey, token, l.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to acquire tick lock: %w", err)
	}
	if !ok {
		return nil, false, nil
	}

	release := func() {
		// Release runs on a fresh context; the tick's context may already
		// be done by the time the deferred release fires.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := l.client.Eval(releaseCtx, releaseScript, []string{tickLockKey}, token).Err(); err != nil {
			l.logger.Errorf("Failed to release tick lock: %v", err)
		}
	}
	return release, true, nil
}
