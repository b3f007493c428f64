package services

import (
	"context"
	"fmt"
	"time"

	"urbansetu/utils"

	"github.com/redis/go-redis/v9"
)

type RedisTokenBlacklist struct {
	client *redis.Client
	tokens *TokenService
}

func NewTokenBlacklist(client *redis.Client, tokens *TokenService) *RedisTokenBlacklist {
	return &RedisTokenBlacklist{client: client, tokens: tokens}
}

// Blacklist stores every non-empty token until its own expiry.
func (tb *RedisTokenBlacklist) Blacklist(ctx context.Context, tokenStrings ...string) error {
	for _, tokenString := range tokenStrings {
		if tokenString == "" {
			continue
		}
		if err := tb.blacklistSingleToken(ctx, tokenString); err != nil {
			return err
		}
	}
	return nil
}

func (tb *RedisTokenBlacklist) blacklistSingleToken(ctx context.Context, tokenString string) error {
	expirationTime, ok := tb.tokens.ExpiryOf(tokenString)
	if !ok {
		expirationTime = time.Now().Add(24 * time.Hour)
	}
	ttl := time.Until(expirationTime)
	if ttl <= 0 {
		return nil
	}

	key := blacklistKey(tokenString)
	if err := tb.client.Set(ctx, key, "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to blacklist token in Redis: %v", err)
	}
	return nil
}

// IsBlacklisted fails open on Redis errors so an outage does not lock everyone out.
func (tb *RedisTokenBlacklist) IsBlacklisted(ctx context.Context, tokenString string) bool {
	n, err := tb.client.Exists(ctx, blacklistKey(tokenString)).Result()
	if err != nil {
		utils.Warn().Err(err).Msg("token blacklist lookup failed")
		utils.TrackError("redis", "blacklist_lookup")
		return false
	}
	return n > 0
}

func blacklistKey(tokenString string) string {
	return "blacklist:" + utils.HashString(tokenString)
}
