package rediscache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/campushq/portal-api/internal/ports"
)

const defaultTokenTTL = 30 * 24 * time.Hour

// TokenCache persists the identity provider's refresh token across
// process restarts so startup can resolve "cached credentials" without a
// fresh login.
type TokenCache struct {
	client redis.UniversalClient
	key    string
	ttl    time.Duration
}

// NewTokenCache creates a token cache under the given key. The key
// namespaces one portal runtime; concurrent runtimes use distinct keys.
func NewTokenCache(client redis.UniversalClient, key string) *TokenCache {
	if key == "" {
		key = "idp:refresh_token"
	}
	return &TokenCache{client: client, key: key, ttl: defaultTokenTTL}
}

func (c *TokenCache) Load(ctx context.Context) (string, error) {
	token, err := c.client.Get(ctx, c.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("redis get: %w", err)
	}
	return token, nil
}

func (c *TokenCache) Save(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return errors.New("refresh token cannot be empty")
	}
	return c.client.Set(ctx, c.key, refreshToken, c.ttl).Err()
}

func (c *TokenCache) Clear(ctx context.Context) error {
	return c.client.Del(ctx, c.key).Err()
}

var _ ports.TokenCache = (*TokenCache)(nil)
