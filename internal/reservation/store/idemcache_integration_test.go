//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rescar/internal/reservation/models"
	"rescar/internal/reservation/store"
	"rescar/pkg/platform/sentinel"
	"rescar/pkg/testutil/containers"
)

func TestIdempotencyCache(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	rc := containers.NewRedisContainer(t)
	cache := store.NewIdempotencyCache(rc.Client, time.Minute)

	t.Run("round trip", func(t *testing.T) {
		require.NoError(t, rc.FlushAll(ctx))

		requestID := uuid.New()
		rentAt := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
		r := &models.Reservation{
			ID:         uuid.New(),
			CarID:      uuid.New(),
			RentAt:     rentAt,
			ReturnAt:   rentAt.Add(time.Hour),
			RequestID:  &requestID,
			ClientName: "alice",
			CreatedAt:  time.Now().UTC().Truncate(time.Millisecond),
			UpdatedAt:  time.Now().UTC().Truncate(time.Millisecond),
		}
		require.NoError(t, cache.Set(ctx, r))

		cached, err := cache.Get(ctx, requestID)
		require.NoError(t, err)
		assert.Equal(t, r.ID, cached.ID)
		assert.Equal(t, r.CarID, cached.CarID)
		require.NotNil(t, cached.RequestID)
		assert.Equal(t, requestID, *cached.RequestID)
		assert.True(t, r.RentAt.Equal(cached.RentAt))
	})

	t.Run("miss is not found", func(t *testing.T) {
		require.NoError(t, rc.FlushAll(ctx))

		_, err := cache.Get(ctx, uuid.New())
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("tentative reservations are never cached", func(t *testing.T) {
		require.NoError(t, rc.FlushAll(ctx))

		r := &models.Reservation{ID: uuid.New(), CarID: uuid.New()}
		require.NoError(t, cache.Set(ctx, r))

		keys, err := rc.Client.Keys(ctx, "*").Result()
		require.NoError(t, err)
		assert.Empty(t, keys)
	})
}
