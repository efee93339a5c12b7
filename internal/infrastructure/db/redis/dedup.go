package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const dedupTTL = 24 * time.Hour

// DedupChecker provides idempotency checks backed by Redis.
// Key format: dedup:change:<change_id>
type DedupChecker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewDedupChecker creates a DedupChecker wrapping the given Redis client.
func NewDedupChecker(client *redis.Client) *DedupChecker {
	return &DedupChecker{client: client, ttl: dedupTTL}
}

// Claim records the change id and reports whether this call was the first
// to see it. The mark expires after the TTL.
func (d *DedupChecker) Claim(ctx context.Context, changeID string) (bool, error) {
	ok, err := d.client.SetNX(ctx, dedupKey(changeID), time.Now().Unix(), d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("dedup claim: %w", err)
	}
	return ok, nil
}

func dedupKey(changeID string) string {
	return "dedup:change:" + changeID
}
