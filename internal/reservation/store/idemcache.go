package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"rescar/internal/reservation/models"
	"rescar/pkg/platform/sentinel"
)

const idemKeyPrefix = "reservation:request:"

// IdempotencyCache keeps committed reservations in Redis keyed by their
// idempotency token, so repeated lookups skip the database.
type IdempotencyCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewIdempotencyCache(client *redis.Client, ttl time.Duration) *IdempotencyCache {
	return &IdempotencyCache{client: client, ttl: ttl}
}

func (c *IdempotencyCache) Get(ctx context.Context, requestID uuid.UUID) (*models.Reservation, error) {
	payload, err := c.client.Get(ctx, idemKeyPrefix+requestID.String()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get cached reservation: %w", err)
	}
	var r models.Reservation
	if err := json.Unmarshal(payload, &r); err != nil {
		return nil, fmt.Errorf("decode cached reservation: %w", err)
	}
	return &r, nil
}

func (c *IdempotencyCache) Set(ctx context.Context, r *models.Reservation) error {
	if r.RequestID == nil {
		return nil
	}
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode reservation: %w", err)
	}
	if err := c.client.Set(ctx, idemKeyPrefix+r.RequestID.String(), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache reservation: %w", err)
	}
	return nil
}
