package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"codegrade/internal/common/security"

	"github.com/redis/go-redis/v9"
)

const blocklistKeyPrefix = "token_blocklist:"

// TokenBlocklist holds logged out tokens until they would have expired anyway.
type TokenBlocklist interface {
	Revoke(ctx context.Context, token string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, token string) (bool, error)
}

type redisTokenBlocklist struct {
	rdb *redis.Client
}

func NewRedisTokenBlocklist(rdb *redis.Client) TokenBlocklist {
	return &redisTokenBlocklist{rdb: rdb}
}

func blocklistKey(token string) string {
	return blocklistKeyPrefix + security.HashToken(token)
}

func (b *redisTokenBlocklist) Revoke(ctx context.Context, token string, expiresAt time.Time) error {
	if !expiresAt.After(time.Now()) {
		return nil
	}
	key := blocklistKey(token)
	pipe := b.rdb.TxPipeline()
	pipe.Set(ctx, key, "blocked", 0)
	pipe.ExpireAt(ctx, key, expiresAt)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redisTokenBlocklist.Revoke: %w", err)
	}
	return nil
}

func (b *redisTokenBlocklist) IsRevoked(ctx context.Context, token string) (bool, error) {
	err := b.rdb.Get(ctx, blocklistKey(token)).Err()
	if err == nil {
		return true, nil
	}
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	return false, fmt.Errorf("redisTokenBlocklist.IsRevoked: %w", err)
}
