package redisclient

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestRedisConfirmLocker(t *testing.T) {
	ctx := context.Background()

	t.Run("RunsCallback", func(t *testing.T) {
		locker := NewRedisConfirmLocker(newTestClient(t), 5*time.Second)

		ran := false
		err := locker.WithConfirmLock(ctx, "100", func(ctx context.Context) error {
			ran = true
			return nil
		})
		require.NoError(t, err)
		assert.True(t, ran)
	})

	t.Run("SecondHolderFailsFast", func(t *testing.T) {
		locker := NewRedisConfirmLocker(newTestClient(t), 5*time.Second)

		err := locker.WithConfirmLock(ctx, "100", func(ctx context.Context) error {
			return locker.WithConfirmLock(ctx, "100", func(ctx context.Context) error {
				t.Fatal("nested acquisition of the same appointment lock must not run")
				return nil
			})
		})
		assert.ErrorIs(t, err, ErrLockNotAcquired)
	})

	t.Run("DistinctAppointmentsDoNotContend", func(t *testing.T) {
		locker := NewRedisConfirmLocker(newTestClient(t), 5*time.Second)

		err := locker.WithConfirmLock(ctx, "100", func(ctx context.Context) error {
			return locker.WithConfirmLock(ctx, "200", func(ctx context.Context) error {
				return nil
			})
		})
		assert.NoError(t, err)
	})

	t.Run("ReleasedAfterCallback", func(t *testing.T) {
		locker := NewRedisConfirmLocker(newTestClient(t), 5*time.Second)

		require.NoError(t, locker.WithConfirmLock(ctx, "100", func(ctx context.Context) error { return nil }))
		assert.NoError(t, locker.WithConfirmLock(ctx, "100", func(ctx context.Context) error { return nil }))
	})
}

func TestLocalLocker(t *testing.T) {
	ctx := context.Background()
	locker := NewLocalLocker()

	done := make(chan struct{})
	require.NoError(t, locker.WithConfirmLock(ctx, "100", func(ctx context.Context) error {
		go func() {
			// Blocks until the outer holder releases.
			_ = locker.WithConfirmLock(ctx, "100", func(ctx context.Context) error { return nil })
			close(done)
		}()

		select {
		case <-done:
			t.Fatal("second holder ran while the lock was held")
		case <-time.After(50 * time.Millisecond):
		}
		return nil
	}))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("second holder never acquired the lock")
	}
}
