// Package cache opens and health-checks the pooled cache store handle and
// provides small JSON get/set helpers on top of it.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/dmitrijs2005/blogcore/internal/common"
	"github.com/dmitrijs2005/blogcore/internal/config"
	"github.com/dmitrijs2005/blogcore/internal/retryx"
)

const (
	dialTimeout   = 3 * time.Second
	healthTimeout = 1 * time.Second

	// DefaultTTL bounds cached entries that do not pick their own lifetime.
	DefaultTTL = time.Hour
)

// Cache wraps the pooled Redis client. Safe for concurrent use; the handle
// is opened once at startup and closed on shutdown.
type Cache struct {
	rdb *redis.Client
}

// Open connects to Redis at the configured address. The initial ping is
// retried under policy with the same failure taxonomy as the relational
// store.
func Open(ctx context.Context, cfg *config.Config, policy retryx.Policy) (*Cache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        cfg.RedisAddr(),
		DialTimeout: dialTimeout,
	})

	err := policy.Do(ctx, func(ctx context.Context) error {
		if err := rdb.Ping(ctx).Err(); err != nil {
			cerr := Classify(err)
			if cerr.Kind == common.ConnAuthRejected {
				return cerr
			}
			return retryx.Retryable(cerr)
		}
		return nil
	})
	if err != nil {
		_ = rdb.Close()
		var cerr *common.ConnectionError
		if errors.As(err, &cerr) {
			return nil, cerr
		}
		return nil, &common.ConnectionError{Store: "redis", Kind: common.ConnUnreachable, Err: err}
	}

	return &Cache{rdb: rdb}, nil
}

// Classify maps a client error onto the connection-failure taxonomy.
func Classify(err error) *common.ConnectionError {
	kind := common.ConnUnreachable

	msg := err.Error()
	switch {
	case strings.Contains(msg, "NOAUTH") || strings.Contains(msg, "WRONGPASS") || strings.Contains(msg, "invalid password"):
		kind = common.ConnAuthRejected
	case errors.Is(err, context.DeadlineExceeded) || os.IsTimeout(err):
		kind = common.ConnTimeout
	}

	return &common.ConnectionError{Store: "redis", Kind: kind, Err: err}
}

// HealthCheck reports whether the store answers a ping within the health
// timeout.
func (c *Cache) HealthCheck(ctx context.Context) bool {
	pingCtx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()
	return c.rdb.Ping(pingCtx).Err() == nil
}

// Set stores value under key as JSON with the given lifetime. A ttl of zero
// falls back to DefaultTTL.
func (c *Cache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if ttl == 0 {
		ttl = DefaultTTL
	}
	return c.rdb.Set(ctx, key, b, ttl).Err()
}

// Get unmarshals the JSON stored under key into dest. A missing key yields
// common.ErrorNotFound.
func (c *Cache) Get(ctx context.Context, key string, dest any) error {
	b, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return common.ErrorNotFound
		}
		return err
	}
	return json.Unmarshal(b, dest)
}

// Delete removes the given keys. Missing keys are not an error.
func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	return c.rdb.Del(ctx, keys...).Err()
}

// Close releases the underlying connection pool.
func (c *Cache) Close() error {
	if c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}
