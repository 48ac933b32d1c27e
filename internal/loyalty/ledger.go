package loyalty

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLedger remembers which orders already had an award sent, so one order
// is awarded at most once by this service.
type RedisLedger struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisLedger(client *redis.Client, ttl time.Duration) *RedisLedger {
	return &RedisLedger{client: client, ttl: ttl}
}

// Reserve returns false when the order was already reserved.
func (l *RedisLedger) Reserve(ctx context.Context, orderID string) (bool, error) {
	ok, err := l.client.SetNX(ctx, ledgerKey(orderID), time.Now().UTC().Format(time.RFC3339), l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx failed: %w", err)
	}
	return ok, nil
}

// Release drops a reservation after a failed send so a later retry is not blocked.
func (l *RedisLedger) Release(ctx context.Context, orderID string) error {
	if err := l.client.Del(ctx, ledgerKey(orderID)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func ledgerKey(orderID string) string {
	return fmt.Sprintf("loyalty:award:%s", orderID)
}
