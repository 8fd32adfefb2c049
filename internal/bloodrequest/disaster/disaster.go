// Package disaster holds the global disaster-mode flag.
//
// While the flag is on, eligibility skips cooldown and availability checks and the
// search radius is raised to a configured floor. One Override instance is shared by
// the eligibility filter and the request service.
package disaster

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// Override reports whether disaster mode is on. Implementations must be safe for
// concurrent use.
type Override interface {
	Active(ctx context.Context) bool
}

// Switch is an in-process Override.
type Switch struct {
	on atomic.Bool
}

func NewSwitch(on bool) *Switch {
	s := &Switch{}
	s.on.Store(on)
	return s
}

func (s *Switch) Active(context.Context) bool { return s.on.Load() }

func (s *Switch) Set(on bool) { s.on.Store(on) }

// KV is the subset of the go-redis client the Redis override uses.
type KV interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// RedisOverride reads the flag from a shared key so every replica sees the same
// value. A missing key means off. When Redis cannot be reached the last value read
// successfully is returned.
type RedisOverride struct {
	client KV
	key    string
	last   atomic.Bool
	logger *slog.Logger
}

type Option func(*RedisOverride)

func WithLogger(logger *slog.Logger) Option {
	return func(o *RedisOverride) {
		o.logger = logger
	}
}

func NewRedisOverride(client KV, key string, opts ...Option) *RedisOverride {
	o := &RedisOverride{client: client, key: key, logger: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *RedisOverride) Active(ctx context.Context) bool {
	raw, err := o.client.Get(ctx, o.key).Result()
	if errors.Is(err, redis.Nil) {
		o.last.Store(false)
		return false
	}
	if err != nil {
		last := o.last.Load()
		o.logger.WarnContext(ctx, "disaster flag unreadable, using last known value",
			"key", o.key,
			"active", last,
			"error", err,
		)
		return last
	}
	on, err := strconv.ParseBool(raw)
	if err != nil {
		o.logger.WarnContext(ctx, "disaster flag has unexpected value", "key", o.key, "value", raw)
		on = false
	}
	o.last.Store(on)
	return on
}

// Set writes the shared flag.
func (o *RedisOverride) Set(ctx context.Context, on bool) error {
	if err := o.client.Set(ctx, o.key, strconv.FormatBool(on), 0).Err(); err != nil {
		return err
	}
	o.last.Store(on)
	return nil
}
