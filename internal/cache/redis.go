package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/oggyb/recipebox/internal/config"
)

// RedisCache is safe to use through a nil pointer: every read misses and
// every write is dropped, so callers run uncached when Redis is not wired.
type RedisCache struct {
	Client *redis.Client
}

// NewRedisCache initializes Redis client from config.
// Only Addr is mandatory, Password/DB are optional.
func NewRedisCache(cfg *config.Config) *RedisCache {
	opts := &redis.Options{
		Addr: cfg.Redis.Addr,
	}
	if cfg.Redis.Password != "" {
		opts.Password = cfg.Redis.Password
	}
	if cfg.Redis.DB != 0 {
		opts.DB = cfg.Redis.DB
	}
	return &RedisCache{Client: redis.NewClient(opts)}
}

func (c *RedisCache) enabled() bool { return c != nil && c.Client != nil }

func (c *RedisCache) Ping(ctx context.Context) error {
	if !c.enabled() {
		return errors.New("redis cache not configured")
	}
	return c.Client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	if !c.enabled() {
		return nil
	}
	return c.Client.Close()
}

// --- profile cache ---

const profilePrefix = "profile:"

// KeyForProfile generates the Redis key for a user's public profile.
func KeyForProfile(username string) string {
	return profilePrefix + username
}

// GetJSON decodes key into dst. A miss returns (false, nil).
func (c *RedisCache) GetJSON(ctx context.Context, key string, dst any) (bool, error) {
	if !c.enabled() {
		return false, nil
	}
	val, err := c.Client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil // cache miss
	} else if err != nil {
		return false, err
	}
	if err := json.Unmarshal(val, dst); err != nil {
		// stale layout; drop it and report a miss
		_ = c.Client.Del(ctx, key).Err()
		return false, nil
	}
	return true, nil
}

func (c *RedisCache) SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	if !c.enabled() {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return c.Client.Set(ctx, key, b, ttl).Err()
}

// InvalidateProfiles drops cached profiles for the given usernames.
func (c *RedisCache) InvalidateProfiles(ctx context.Context, usernames ...string) error {
	if !c.enabled() || len(usernames) == 0 {
		return nil
	}
	keys := make([]string, len(usernames))
	for i, u := range usernames {
		keys[i] = KeyForProfile(u)
	}
	return c.Client.Del(ctx, keys...).Err()
}

// InvalidateAllProfiles drops every cached profile. Used after
// reconciliation rewrites counters wholesale.
func (c *RedisCache) InvalidateAllProfiles(ctx context.Context) (int, error) {
	if !c.enabled() {
		return 0, nil
	}
	removed := 0
	iter := c.Client.Scan(ctx, 0, profilePrefix+"*", 200).Iterator()
	batch := make([]string, 0, 200)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := c.Client.Del(ctx, batch...).Err(); err != nil {
			return err
		}
		removed += len(batch)
		batch = batch[:0]
		return nil
	}
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == cap(batch) {
			if err := flush(); err != nil {
				return removed, err
			}
		}
	}
	if err := iter.Err(); err != nil {
		return removed, err
	}
	return removed, flush()
}

// --- job leases ---

func keyForLease(name string) string {
	return "jobs:lease:" + name
}

// releaseScript deletes the lease only if the caller still holds it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// AcquireLease claims name for holder until ttl elapses. Returns false when
// another holder has it. Without Redis every caller gets the lease.
func (c *RedisCache) AcquireLease(ctx context.Context, name, holder string, ttl time.Duration) (bool, error) {
	if !c.enabled() {
		return true, nil
	}
	return c.Client.SetNX(ctx, keyForLease(name), holder, ttl).Result()
}

// ReleaseLease gives the lease back early if holder still owns it.
func (c *RedisCache) ReleaseLease(ctx context.Context, name, holder string) error {
	if !c.enabled() {
		return nil
	}
	return releaseScript.Run(ctx, c.Client, []string{keyForLease(name)}, holder).Err()
}
