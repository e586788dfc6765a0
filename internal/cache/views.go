package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// NewRedisClient dials redis and verifies the connection.
func NewRedisClient(addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

// ViewCounter accumulates auction page views in redis, keeping the hot
// auction row free of per-view writes. The counter is folded into the row
// when the sweeper closes the auction.
type ViewCounter struct {
	client *redis.Client
}

func NewViewCounter(client *redis.Client) *ViewCounter {
	return &ViewCounter{client: client}
}

func viewKey(auctionID uuid.UUID) string {
	return fmt.Sprintf("auction_views:%s", auctionID)
}

// Increment counts one view and returns the pending total.
func (v *ViewCounter) Increment(ctx context.Context, auctionID uuid.UUID) (int64, error) {
	count, err := v.client.Incr(ctx, viewKey(auctionID)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to increment view counter: %w", err)
	}
	return count, nil
}

// Pending returns the accumulated views not yet folded into the auction row.
func (v *ViewCounter) Pending(ctx context.Context, auctionID uuid.UUID) (int64, error) {
	count, err := v.client.Get(ctx, viewKey(auctionID)).Int64()
	if err != nil {
		if err == redis.Nil {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read view counter: %w", err)
	}
	return count, nil
}

// Clear removes the counter after its value was persisted.
func (v *ViewCounter) Clear(ctx context.Context, auctionID uuid.UUID) error {
	if err := v.client.Del(ctx, viewKey(auctionID)).Err(); err != nil {
		return fmt.Errorf("failed to clear view counter: %w", err)
	}
	return nil
}
