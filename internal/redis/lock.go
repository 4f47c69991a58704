package redisclient

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrLockNotAcquired = errors.New("confirm lock not acquired")

// Locker serializes concurrent confirmations of the same appointment, so two
// simultaneous webhooks for one id cannot interleave the remote write and the
// record update. Last writer wins on the record itself; the lock only keeps
// the write-then-record sequence whole.
type Locker interface {
	WithConfirmLock(ctx context.Context, appointmentID string, fn func(ctx context.Context) error) error
}

type redisConfirmLocker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisConfirmLocker creates a locker backed by a per-appointment Redis
// key, effective across replicas.
func NewRedisConfirmLocker(client *redis.Client, ttl time.Duration) Locker {
	return &redisConfirmLocker{
		client: client,
		ttl:    ttl,
	}
}

func (l *redisConfirmLocker) WithConfirmLock(ctx context.Context, appointmentID string, fn func(ctx context.Context) error) error {
	key := fmt.Sprintf("lock:confirm:%s", appointmentID)
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return fmt.Errorf("acquire confirm lock: %w", err)
	}
	if !ok {
		return ErrLockNotAcquired
	}

	defer func() {
		_ = l.release(ctx, key, token)
	}()

	return fn(ctx)
}

var unlockScript = redis.NewScript(`
local val = redis.call("GET", KEYS[1])
if val == ARGV[1] then
  return redis.call("DEL", KEYS[1])
else
  return 0
end
`)

func (l *redisConfirmLocker) release(ctx context.Context, key, token string) error {
	_, err := unlockScript.Run(ctx, l.client, []string{key}, token).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release confirm lock: %w", err)
	}
	return nil
}

type localLocker struct {
	mu    sync.Mutex
	byKey map[string]*sync.Mutex
}

// NewLocalLocker is the single-process fallback used when Redis is not
// configured. It blocks instead of failing fast, which is fine for one
// replica.
func NewLocalLocker() Locker {
	return &localLocker{byKey: make(map[string]*sync.Mutex)}
}

func (l *localLocker) WithConfirmLock(ctx context.Context, appointmentID string, fn func(ctx context.Context) error) error {
	l.mu.Lock()
	m, ok := l.byKey[appointmentID]
	if !ok {
		m = &sync.Mutex{}
		l.byKey[appointmentID] = m
	}
	l.mu.Unlock()

	m.Lock()
	defer m.Unlock()

	return fn(ctx)
}
