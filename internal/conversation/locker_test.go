package conversation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockerRunsFunctionAndReleases(t *testing.T) {
	mr, client := newTestRedis(t)
	locker := NewRedisLocker(client, time.Minute)
	convID := uuid.New()

	ran := false
	err := locker.WithConversationLock(context.Background(), convID, func(context.Context) error {
		ran = true
		assert.True(t, mr.Exists("lock:conversation:"+convID.String()))
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)
	assert.False(t, mr.Exists("lock:conversation:"+convID.String()))
}

func TestLockerRejectsConcurrentTurn(t *testing.T) {
	_, client := newTestRedis(t)
	locker := NewRedisLocker(client, time.Minute)
	convID := uuid.New()

	err := locker.WithConversationLock(context.Background(), convID, func(ctx context.Context) error {
		return locker.WithConversationLock(ctx, convID, func(context.Context) error {
			t.Fatal("inner turn should not run")
			return nil
		})
	})
	assert.ErrorIs(t, err, ErrBusy)
}

func TestLockerDifferentConversationsDoNotContend(t *testing.T) {
	_, client := newTestRedis(t)
	locker := NewRedisLocker(client, time.Minute)

	err := locker.WithConversationLock(context.Background(), uuid.New(), func(ctx context.Context) error {
		return locker.WithConversationLock(ctx, uuid.New(), func(context.Context) error {
			return nil
		})
	})
	require.NoError(t, err)
}

func TestLockerPropagatesTurnError(t *testing.T) {
	mr, client := newTestRedis(t)
	locker := NewRedisLocker(client, time.Minute)
	convID := uuid.New()

	boom := errors.New("turn failed")
	err := locker.WithConversationLock(context.Background(), convID, func(context.Context) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
	// A failed turn still releases the lock.
	assert.False(t, mr.Exists("lock:conversation:"+convID.String()))
}

func TestLockerStaleLockNotDeletedByOldHolder(t *testing.T) {
	mr, client := newTestRedis(t)
	locker := NewRedisLocker(client, 50*time.Millisecond)
	convID := uuid.New()
	key := "lock:conversation:" + convID.String()

	err := locker.WithConversationLock(context.Background(), convID, func(context.Context) error {
		// Simulate the TTL expiring mid-turn and another worker taking over.
		mr.FastForward(time.Second)
		require.NoError(t, mr.Set(key, "other-holder-token"))
		return nil
	})
	require.NoError(t, err)
	// The release script must leave the new holder's lock untouched.
	got, redisErr := mr.Get(key)
	require.NoError(t, redisErr)
	assert.Equal(t, "other-holder-token", got)
}
