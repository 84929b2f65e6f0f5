// Package cache holds the shared Redis client and the cache-aside helpers
// built on it. A nil client means caching is off.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"harfzaar/internal/middleware"

	"github.com/redis/go-redis/v9"
)

var client *redis.Client

// errHook counts failed commands by name. redis.Nil is a miss, not a failure.
type errHook struct{}

func countErr(name string, err error) {
	if err != nil && !errors.Is(err, redis.Nil) {
		middleware.RedisErrors.WithLabelValues(name).Inc()
	}
}

func (errHook) DialHook(next redis.DialHook) redis.DialHook { return next }

func (errHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		err := next(ctx, cmd)
		countErr(cmd.Name(), err)
		return err
	}
}

func (errHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		err := next(ctx, cmds)
		countErr("pipeline", err)
		return err
	}
}

// Connect dials addr, which is either host:port or a redis:// URL, and pings it.
func Connect(ctx context.Context, addr string) (*redis.Client, error) {
	opts := &redis.Options{Addr: addr}
	if strings.Contains(addr, "://") {
		parsed, err := redis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		opts = parsed
	}

	c := redis.NewClient(opts)
	c.AddHook(errHook{})
	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return c, nil
}

// InitRedis connects the shared client. Failure is logged and leaves the
// client nil so the app keeps serving straight from MongoDB.
func InitRedis(addr string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, err := Connect(ctx, addr)
	if err != nil {
		middleware.Logger.Warn("redis unavailable, continuing without cache", "addr", addr, "error", err)
		client = nil
		return
	}
	middleware.Logger.Info("redis connected", "addr", c.Options().Addr)
	client = c
}

// SetClient installs an already-built client. Tests use it with miniredis.
func SetClient(c *redis.Client) {
	if c != nil {
		c.AddHook(errHook{})
	}
	client = c
}

// GetClient returns the shared client, or nil when caching is off.
func GetClient() *redis.Client {
	return client
}
