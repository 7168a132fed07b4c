package refresh

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/harry-lons/runsum-be-nonorg/internal/athletes"
	"github.com/harry-lons/runsum-be-nonorg/pkg/logger"
	"github.com/redis/go-redis/v9"
)

// RedisLocker implements Locker with a per-athlete key set via SET NX PX.
// Keys live under "<prefix><athleteID>" and expire after ttl so a crashed
// holder cannot block refreshes forever. Release only deletes a key still
// holding this caller's token.
type RedisLocker struct {
	client *redis.Client
	repo   athletes.Repository
	prefix string
	ttl    time.Duration
	poll   time.Duration
}

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// NewRedisLocker creates a Redis-based locker. Prefix may be empty.
func NewRedisLocker(client *redis.Client, repo athletes.Repository, prefix string, ttl time.Duration) *RedisLocker {
	if prefix == "" {
		prefix = "lock:refresh:"
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisLocker{client: client, repo: repo, prefix: prefix, ttl: ttl, poll: 25 * time.Millisecond}
}

func (r *RedisLocker) key(athleteID int64) string {
	return r.prefix + strconv.FormatInt(athleteID, 10)
}

// WithLock waits up to ttl for the lock. If Redis is unreachable or the wait
// runs out, fn still runs: the conditional token write keeps the store consistent.
func (r *RedisLocker) WithLock(ctx context.Context, athleteID int64, fn func(ctx context.Context, repo athletes.Repository) error) error {
	key := r.key(athleteID)
	token := uuid.NewString()
	deadline := time.Now().Add(r.ttl)

	for {
		ok, err := r.client.SetNX(ctx, key, token, r.ttl).Result()
		if err != nil {
			logger.Warnf("refresh lock unavailable for athlete %d: %v", athleteID, err)
			return fn(ctx, r.repo)
		}
		if ok {
			defer func() {
				if err := releaseScript.Run(context.WithoutCancel(ctx), r.client, []string{key}, token).Err(); err != nil {
					logger.Warnf("refresh lock release for athlete %d: %v", athleteID, err)
				}
			}()
			return fn(ctx, r.repo)
		}
		if time.Now().After(deadline) {
			logger.Warnf("refresh lock wait timed out for athlete %d", athleteID)
			return fn(ctx, r.repo)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.poll):
		}
	}
}
