package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RunLock guarantees at most one holder per key across service
// instances, so overlapping schedule ticks never run the same sweep
// twice concurrently.
type RunLock interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

/* ============================ Redis lock ================================ */

// Delete only when the stored token is ours, so an expired lock that was
// re-acquired by another instance is never released by the old holder.
var redisReleaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

type redisLock struct {
	client *redis.Client

	mu     sync.Mutex
	tokens map[string]string
}

// NewRedisLock builds a distributed run lock on a Redis instance.
func NewRedisLock(addr, password string, db int) RunLock {
	return &redisLock{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
		tokens: map[string]string{},
	}
}

func (l *redisLock) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return false, err
	}
	if ok {
		l.mu.Lock()
		l.tokens[key] = token
		l.mu.Unlock()
	}
	return ok, nil
}

func (l *redisLock) Release(ctx context.Context, key string) error {
	l.mu.Lock()
	token := l.tokens[key]
	delete(l.tokens, key)
	l.mu.Unlock()
	if token == "" {
		return nil
	}
	return redisReleaseScript.Run(ctx, l.client, []string{key}, token).Err()
}

/* ============================ Local lock ================================ */

// localLock is the single-instance fallback used when REDIS_ADDR is not
// configured.
type localLock struct {
	mu   sync.Mutex
	held map[string]bool
}

func NewLocalLock() RunLock {
	return &localLock{held: map[string]bool{}}
}

func (l *localLock) Acquire(_ context.Context, key string, _ time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] {
		return false, nil
	}
	l.held[key] = true
	return true, nil
}

func (l *localLock) Release(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, key)
	return nil
}
