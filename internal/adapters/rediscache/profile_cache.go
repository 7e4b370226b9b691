package rediscache

// Package rediscache provides Redis-backed caching adapters for the
// portal session core.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	domainsession "github.com/campushq/portal-api/internal/domain/session"
	"github.com/campushq/portal-api/internal/ports"
)

const defaultProfileTTL = 5 * time.Minute

// ProfileCache is a read-through cache decorating a ProfileStore. Reads
// hit Redis first; writes go to the underlying store and refresh the
// cached entry so a registration is immediately visible to the next
// resolution cycle.
type ProfileCache struct {
	next   ports.ProfileStore
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// ProfileCacheOptions configure NewProfileCache.
type ProfileCacheOptions struct {
	Next   ports.ProfileStore
	Client redis.UniversalClient
	Prefix string        // default "profile:"
	TTL    time.Duration // default 5m
}

// NewProfileCache creates a caching decorator around a profile store.
func NewProfileCache(opts ProfileCacheOptions) (*ProfileCache, error) {
	if opts.Next == nil {
		return nil, errors.New("underlying profile store is required")
	}
	if opts.Client == nil {
		return nil, errors.New("redis client is required")
	}
	prefix := opts.Prefix
	if prefix == "" {
		prefix = "profile:"
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = defaultProfileTTL
	}
	return &ProfileCache{next: opts.Next, client: opts.Client, prefix: prefix, ttl: ttl}, nil
}

func (c *ProfileCache) Get(ctx context.Context, id string) (*domainsession.Profile, error) {
	key := c.prefix + id
	data, err := c.client.Get(ctx, key).Result()
	if err == nil {
		var p domainsession.Profile
		if unmarshalErr := json.Unmarshal([]byte(data), &p); unmarshalErr == nil {
			return &p, nil
		}
		// Corrupt entry: drop it and fall through to the store.
		c.client.Del(ctx, key)
	} else if !errors.Is(err, redis.Nil) {
		// Redis being down must not break resolution; serve from the store.
		return c.next.Get(ctx, id)
	}

	p, err := c.next.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	c.fill(ctx, *p)
	return p, nil
}

func (c *ProfileCache) Put(ctx context.Context, p domainsession.Profile) error {
	if err := c.next.Put(ctx, p); err != nil {
		return err
	}
	c.fill(ctx, p)
	return nil
}

func (c *ProfileCache) fill(ctx context.Context, p domainsession.Profile) {
	data, err := json.Marshal(p)
	if err != nil {
		return
	}
	// Best effort: cache misses only cost a store read.
	c.client.Set(ctx, c.prefix+p.ID, data, c.ttl)
}

// Invalidate drops the cached entry for a principal id. Used by operator
// tooling after out-of-band profile edits.
func (c *ProfileCache) Invalidate(ctx context.Context, id string) error {
	if err := c.client.Del(ctx, c.prefix+id).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

var _ ports.ProfileStore = (*ProfileCache)(nil)
