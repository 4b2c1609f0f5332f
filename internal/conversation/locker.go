package conversation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Locker serializes agent turns per conversation so two webhook deliveries
// for the same customer never interleave.
type Locker interface {
	WithConversationLock(ctx context.Context, conversationID uuid.UUID, fn func(ctx context.Context) error) error
}

type redisLocker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisLocker creates a locker keyed per conversation.
func NewRedisLocker(client *redis.Client, ttl time.Duration) Locker {
	if ttl <= 0 {
		ttl = 45 * time.Second
	}
	return &redisLocker{client: client, ttl: ttl}
}

func (l *redisLocker) WithConversationLock(ctx context.Context, conversationID uuid.UUID, fn func(ctx context.Context) error) error {
	key := fmt.Sprintf("lock:conversation:%s", conversationID.String())
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return fmt.Errorf("conversation: acquire lock: %w", err)
	}
	if !ok {
		return ErrBusy
	}

	defer func() {
		_ = l.release(ctx, key, token)
	}()

	ctxWithTimeout, cancel := context.WithTimeout(ctx, l.ttl)
	defer cancel()

	return fn(ctxWithTimeout)
}

// The token check stops a turn that outlived its TTL from deleting the next
// holder's lock.
var unlockScript = redis.NewScript(`
local val = redis.call("GET", KEYS[1])
if val == ARGV[1] then
  return redis.call("DEL", KEYS[1])
else
  return 0
end
`)

func (l *redisLocker) release(ctx context.Context, key, token string) error {
	_, err := unlockScript.Run(ctx, l.client, []string{key}, token).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("conversation: release lock: %w", err)
	}
	return nil
}
