package relay

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReport() *AggregatedReport {
	return &AggregatedReport{
		TotalSent:      2,
		TotalConfirmed: 1,
		TotalPending:   1,
		Patients: []PatientStatus{
			{AppointmentID: "100", Name: "Ana", Status: StatusConfirmed},
			{AppointmentID: "200", Name: "Bruno", Status: StatusPending},
		},
	}
}

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()

	t.Run("MissWhenEmpty", func(t *testing.T) {
		c := NewMemoryCache(2 * time.Minute)
		_, ok := c.Get(ctx)
		assert.False(t, ok)
	})

	t.Run("HitWithinWindow", func(t *testing.T) {
		c := NewMemoryCache(2 * time.Minute)
		c.Put(ctx, sampleReport())

		got, ok := c.Get(ctx)
		require.True(t, ok)
		assert.Equal(t, sampleReport(), got)
	})

	t.Run("ExpiresAfterWindow", func(t *testing.T) {
		c := NewMemoryCache(2 * time.Minute).(*memoryCache)
		now := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
		c.now = func() time.Time { return now }

		c.Put(ctx, sampleReport())

		now = now.Add(2*time.Minute - time.Second)
		_, ok := c.Get(ctx)
		assert.True(t, ok, "still fresh one second before the window closes")

		now = now.Add(2 * time.Second)
		_, ok = c.Get(ctx)
		assert.False(t, ok, "stale once the window has passed")
	})

	t.Run("Invalidate", func(t *testing.T) {
		c := NewMemoryCache(2 * time.Minute)
		c.Put(ctx, sampleReport())
		c.Invalidate(ctx)

		_, ok := c.Get(ctx)
		assert.False(t, ok)
	})
}

func TestRedisCache(t *testing.T) {
	ctx := context.Background()

	newCache := func(t *testing.T) (StatusCache, *miniredis.Miniredis) {
		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		return NewRedisCache(client, 2*time.Minute), mr
	}

	t.Run("RoundTrip", func(t *testing.T) {
		c, _ := newCache(t)

		_, ok := c.Get(ctx)
		require.False(t, ok)

		c.Put(ctx, sampleReport())
		got, ok := c.Get(ctx)
		require.True(t, ok)
		assert.Equal(t, sampleReport(), got)
	})

	t.Run("ExpiresWithKeyTTL", func(t *testing.T) {
		c, mr := newCache(t)
		c.Put(ctx, sampleReport())

		mr.FastForward(2*time.Minute + time.Second)

		_, ok := c.Get(ctx)
		assert.False(t, ok)
	})

	t.Run("Invalidate", func(t *testing.T) {
		c, _ := newCache(t)
		c.Put(ctx, sampleReport())
		c.Invalidate(ctx)

		_, ok := c.Get(ctx)
		assert.False(t, ok)
	})

	t.Run("CorruptEntryIsAMiss", func(t *testing.T) {
		c, mr := newCache(t)
		require.NoError(t, mr.Set(redisCacheKey, "not json"))

		_, ok := c.Get(ctx)
		assert.False(t, ok)
	})
}
