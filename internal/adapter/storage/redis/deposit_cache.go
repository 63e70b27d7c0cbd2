package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"ton-dice-backend/internal/core/ports"
)

// DepositCache implements ports.DepositCache with plain Redis keys. The
// cache is advisory: it lets reconciler instances skip transactions a peer
// already applied without holding them all in memory. Losing a key is
// harmless because the ledger's unique index catches the replay.
type DepositCache struct {
	client *goredis.Client
	prefix string
}

// NewDepositCache creates a Redis-backed deposit marker cache.
func NewDepositCache(client *goredis.Client) *DepositCache {
	return &DepositCache{
		client: client,
		prefix: "deposit:",
	}
}

// Seen reports whether the external transaction id was marked applied.
func (c *DepositCache) Seen(ctx context.Context, externalTxID string) (bool, error) {
	n, err := c.client.Exists(ctx, c.prefix+externalTxID).Result()
	if err != nil {
		return false, fmt.Errorf("redis deposit lookup: %w", err)
	}
	return n > 0, nil
}

// Mark records the external transaction id as applied for ttl.
func (c *DepositCache) Mark(ctx context.Context, externalTxID string, ttl time.Duration) error {
	if err := c.client.Set(ctx, c.prefix+externalTxID, 1, ttl).Err(); err != nil {
		return fmt.Errorf("redis deposit mark: %w", err)
	}
	return nil
}

var _ ports.DepositCache = (*DepositCache)(nil)
