package service

import (
	"context"
	"fmt"
	"time"

	"codegrade/internal/common"

	"github.com/redis/go-redis/v9"
)

const cooldownKeyPrefix = "submit_cooldown:"

// CooldownLimiter lets each user start one expensive operation per window.
type CooldownLimiter struct {
	rdb    *redis.Client
	window time.Duration
}

func NewCooldownLimiter(rdb *redis.Client, window time.Duration) *CooldownLimiter {
	return &CooldownLimiter{rdb: rdb, window: window}
}

// Allow claims the caller's window, failing with ErrRateLimited while one is open.
func (l *CooldownLimiter) Allow(ctx context.Context, userID string) error {
	ok, err := l.rdb.SetNX(ctx, cooldownKeyPrefix+userID, time.Now().Unix(), l.window).Result()
	if err != nil {
		return fmt.Errorf("CooldownLimiter.Allow: %w", err)
	}
	if !ok {
		ttl, _ := l.rdb.TTL(ctx, cooldownKeyPrefix+userID).Result()
		return fmt.Errorf("%w: try again in %s", common.ErrRateLimited, ttl.Round(time.Second))
	}
	return nil
}
