package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/keyward/keyward/cache"
	goredis "github.com/redis/go-redis/v9"
)

const (
	defaultPrefix  = "keyward:"
	defaultTimeout = 2 * time.Second
)

// Cache stores string values in redis so several instances can share short
// lived state, such as the OAuth state of a login started on another node.
//
// cache.Cache has no error returns: redis failures are logged and reported as
// a miss or a failed Set.
type Cache struct {
	client  *goredis.Client
	prefix  string
	timeout time.Duration
	logger  *slog.Logger
}

var _ cache.Cache[string, string] = (*Cache)(nil)

type Option func(*Cache)

// WithPrefix sets the key namespace. Default "keyward:".
func WithPrefix(prefix string) Option {
	return func(c *Cache) { c.prefix = prefix }
}

// WithTimeout bounds every redis round trip.
func WithTimeout(d time.Duration) Option {
	return func(c *Cache) { c.timeout = d }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Cache) { c.logger = l }
}

// New wraps an existing client. The client lifecycle stays with the caller.
func New(client *goredis.Client, opts ...Option) *Cache {
	c := &Cache{
		client:  client,
		prefix:  defaultPrefix,
		timeout: defaultTimeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Dial connects to addr and pings it.
func Dial(ctx context.Context, addr string, opts ...Option) (*Cache, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr: addr,
		DB:   0,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: ping %s: %w", addr, err)
	}
	return New(client, opts...), nil
}

func (c *Cache) key(k string) string {
	return c.prefix + k
}

func (c *Cache) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), c.timeout)
}

func (c *Cache) Get(key string) (string, bool) {
	ctx, cancel := c.ctx()
	defer cancel()

	val, err := c.client.Get(ctx, c.key(key)).Result()
	if errors.Is(err, goredis.Nil) {
		return "", false
	}
	if err != nil {
		c.logger.Error("redis: get failed", "key", key, "error", err)
		return "", false
	}
	return val, true
}

// Set stores value without expiry. cost is ignored.
func (c *Cache) Set(key string, value string, cost int64) bool {
	return c.SetWithTTL(key, value, cost, 0)
}

// SetWithTTL stores value for ttl. A zero ttl means no expiry. cost is ignored.
func (c *Cache) SetWithTTL(key string, value string, cost int64, ttl time.Duration) bool {
	ctx, cancel := c.ctx()
	defer cancel()

	if err := c.client.Set(ctx, c.key(key), value, ttl).Err(); err != nil {
		c.logger.Error("redis: set failed", "key", key, "error", err)
		return false
	}
	return true
}

func (c *Cache) Del(key string) {
	ctx, cancel := c.ctx()
	defer cancel()

	if err := c.client.Del(ctx, c.key(key)).Err(); err != nil {
		c.logger.Error("redis: del failed", "key", key, "error", err)
	}
}

// Close closes the underlying client.
func (c *Cache) Close() error {
	return c.client.Close()
}
