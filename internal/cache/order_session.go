// Package cache keeps short-lived correlation data in Redis.
package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

const orderSessionPrefix = "order_session:"

// OrderSessionStore maps gateway order ids to payment ids for the lifetime of a checkout
type OrderSessionStore struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewOrderSessionStore creates a store whose entries expire after ttl
func NewOrderSessionStore(redis *redis.Client, ttl time.Duration) *OrderSessionStore {
	return &OrderSessionStore{
		redis: redis,
		ttl:   ttl,
	}
}

func orderSessionKey(gatewayOrderID string) string {
	return orderSessionPrefix + gatewayOrderID
}

// Save records the payment behind a gateway order
func (s *OrderSessionStore) Save(ctx context.Context, gatewayOrderID string, paymentID int) error {
	if err := s.redis.Set(ctx, orderSessionKey(gatewayOrderID), paymentID, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save order session: %w", err)
	}
	return nil
}

// Lookup returns the payment id of a gateway order.
// found is false when the session expired or never existed.
func (s *OrderSessionStore) Lookup(ctx context.Context, gatewayOrderID string) (int, bool, error) {
	value, err := s.redis.Get(ctx, orderSessionKey(gatewayOrderID)).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to read order session: %w", err)
	}

	paymentID, err := strconv.Atoi(value)
	if err != nil {
		return 0, false, fmt.Errorf("invalid order session value %q: %w", value, err)
	}

	return paymentID, true, nil
}

// Delete removes the session once the payment has left pending
func (s *OrderSessionStore) Delete(ctx context.Context, gatewayOrderID string) error {
	if err := s.redis.Del(ctx, orderSessionKey(gatewayOrderID)).Err(); err != nil {
		return fmt.Errorf("failed to delete order session: %w", err)
	}
	return nil
}
