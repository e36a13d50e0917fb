package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shinyyama/marketplace-backend/internal/logging"
)

var ErrCacheMiss = errors.New("cache miss")

type ProfileCache interface {
	Get(ctx context.Context, uid string) (*Profile, error)
	Set(ctx context.Context, p Profile, ttl time.Duration) error
	Delete(ctx context.Context, uids ...string) error
}

type RedisProfileCache struct {
	client *redis.Client
	prefix string
}

func NewRedisProfileCache(client *redis.Client, prefix string) *RedisProfileCache {
	return &RedisProfileCache{client: client, prefix: prefix}
}

func (c *RedisProfileCache) key(uid string) string {
	return fmt.Sprintf("%s:profile:%s", c.prefix, uid)
}

func (c *RedisProfileCache) Get(ctx context.Context, uid string) (*Profile, error) {
	data, err := c.client.Get(ctx, c.key(uid)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}
	var p Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cache data: %w", err)
	}
	return &p, nil
}

func (c *RedisProfileCache) Set(ctx context.Context, p Profile, ttl time.Duration) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal cache data: %w", err)
	}
	if err := c.client.Set(ctx, c.key(p.UID), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set in redis: %w", err)
	}
	return nil
}

func (c *RedisProfileCache) Delete(ctx context.Context, uids ...string) error {
	if len(uids) == 0 {
		return nil
	}
	keys := make([]string, len(uids))
	for i, uid := range uids {
		keys[i] = c.key(uid)
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete from redis: %w", err)
	}
	return nil
}

// Cached serves profile reads from a ProfileCache in front of another
// Directory. Cache errors are logged and fall through to the inner
// directory. Existence checks for uids with a cached profile skip the store.
type Cached struct {
	inner Directory
	cache ProfileCache
	ttl   time.Duration
}

func NewCached(inner Directory, cache ProfileCache, ttl time.Duration) *Cached {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Cached{inner: inner, cache: cache, ttl: ttl}
}

func (d *Cached) UserExists(ctx context.Context, uid string) (bool, error) {
	if uid == "" {
		return false, nil
	}
	if _, err := d.cache.Get(ctx, uid); err == nil {
		return true, nil
	} else if !errors.Is(err, ErrCacheMiss) {
		d.warn(ctx, err, uid)
	}
	return d.inner.UserExists(ctx, uid)
}

func (d *Cached) ProductExists(ctx context.Context, productID uint64) (bool, error) {
	return d.inner.ProductExists(ctx, productID)
}

func (d *Cached) ProductSeller(ctx context.Context, productID uint64) (string, error) {
	return d.inner.ProductSeller(ctx, productID)
}

func (d *Cached) Profiles(ctx context.Context, uids []string) (map[string]Profile, error) {
	uids = dedupe(uids)
	out := make(map[string]Profile, len(uids))
	var missing []string
	for _, uid := range uids {
		p, err := d.cache.Get(ctx, uid)
		if err == nil {
			out[uid] = *p
			continue
		}
		if !errors.Is(err, ErrCacheMiss) {
			d.warn(ctx, err, uid)
		}
		missing = append(missing, uid)
	}
	if len(missing) == 0 {
		return out, nil
	}
	fetched, err := d.inner.Profiles(ctx, missing)
	if err != nil {
		return nil, err
	}
	for uid, p := range fetched {
		out[uid] = p
		if err := d.cache.Set(ctx, p, d.ttl); err != nil {
			d.warn(ctx, err, uid)
		}
	}
	return out, nil
}

func (d *Cached) warn(ctx context.Context, err error, uid string) {
	lg := logging.Ctx(ctx)
	lg.Warn().Err(err).Str(logging.FieldUID, uid).Msg("profile cache unavailable")
}
