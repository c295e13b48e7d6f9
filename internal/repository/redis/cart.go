package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/devmojahid/restu-food/internal/domain"
	apperrors "github.com/devmojahid/restu-food/pkg/errors"
)

// KeyPrefix is the application-wide key the cart slot lives under.
const KeyPrefix = "restu-food-cart:"

// CartRepository implements repository.CartRepository using Redis.
type CartRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCartRepository creates a new Redis-backed cart repository.
func NewCartRepository(client *redis.Client, ttl time.Duration) *CartRepository {
	return &CartRepository{
		client: client,
		ttl:    ttl,
	}
}

// Load retrieves the cart snapshot for a session from Redis.
func (r *CartRepository) Load(ctx context.Context, sessionID string) (*domain.Snapshot, error) {
	data, err := r.client.Get(ctx, KeyPrefix+sessionID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apperrors.NotFound("cart", sessionID)
		}
		return nil, fmt.Errorf("redis get cart: %w", err)
	}

	var snapshot domain.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("unmarshal cart: %w", err)
	}

	return &snapshot, nil
}

// Save persists a cart snapshot to Redis with the configured TTL.
func (r *CartRepository) Save(ctx context.Context, sessionID string, snapshot *domain.Snapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal cart: %w", err)
	}

	if err := r.client.Set(ctx, KeyPrefix+sessionID, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set cart: %w", err)
	}

	return nil
}

// Delete removes a cart snapshot from Redis.
func (r *CartRepository) Delete(ctx context.Context, sessionID string) error {
	if err := r.client.Del(ctx, KeyPrefix+sessionID).Err(); err != nil {
		return fmt.Errorf("redis del cart: %w", err)
	}

	return nil
}
