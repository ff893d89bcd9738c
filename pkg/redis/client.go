package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/crosscartapp/crosscart-backend/pkg/config"
	"github.com/crosscartapp/crosscart-backend/pkg/logger"
	"github.com/redis/go-redis/v9"
)

const keyNamespace = "cc"

const (
	idempotencyPrefix = "idempotency"
	rateLimitPrefix   = "rate_limit"
	counterPrefix     = "counter"
	tokenPrefix       = "retailer_token"
)

var errNotInitialized = errors.New("redis client not initialized")

type cmdable interface {
	Ping(context.Context) *redis.StatusCmd
	Set(context.Context, string, any, time.Duration) *redis.StatusCmd
	Get(context.Context, string) *redis.StringCmd
	SetNX(context.Context, string, any, time.Duration) *redis.BoolCmd
	Incr(context.Context, string) *redis.IntCmd
	Expire(context.Context, string, time.Duration) *redis.BoolCmd
	Del(context.Context, ...string) *redis.IntCmd
}

// Client namespaces all keys under the service prefix and exposes the
// handful of Redis operations checkout needs: idempotency reservations,
// fixed-window rate limiting, and retailer token caching.
type Client struct {
	cmds cmdable
	conn *redis.Client
}

// Pinger is the health-check surface shared with the database client.
type Pinger interface {
	Ping(context.Context) error
}

// IdempotencyStore is the subset the idempotency middleware depends on.
type IdempotencyStore interface {
	Get(context.Context, string) (string, error)
	SetNX(context.Context, string, any, time.Duration) (bool, error)
	IdempotencyKey(scope, id string) string
	Del(context.Context, ...string) error
}

// New connects to Redis using cfg and verifies the connection with a ping
// before returning.
func New(ctx context.Context, cfg config.RedisConfig, logg *logger.Logger) (*Client, error) {
	opts, err := buildOptions(cfg)
	if err != nil {
		return nil, err
	}
	conn := redis.NewClient(opts)
	if err := conn.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	if logg != nil {
		logg.Info(ctx, "redis connection established")
	}
	return &Client{cmds: conn, conn: conn}, nil
}

// buildOptions prefers a full URL when present and falls back to discrete
// address fields. Config values only fill options the URL left unset.
func buildOptions(cfg config.RedisConfig) (*redis.Options, error) {
	var opts *redis.Options
	switch {
	case cfg.URL != "":
		parsed, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("parsing redis url: %w", err)
		}
		opts = parsed
	case cfg.Address != "":
		opts = &redis.Options{Addr: cfg.Address, Password: cfg.Password}
	default:
		return nil, errors.New("redis url or address is required")
	}

	fill := []struct {
		dst *int
		src int
	}{
		{&opts.DB, cfg.DB},
		{&opts.PoolSize, cfg.PoolSize},
		{&opts.MinIdleConns, cfg.MinIdleConns},
	}
	for _, f := range fill {
		if *f.dst == 0 {
			*f.dst = f.src
		}
	}
	fillDur := []struct {
		dst *time.Duration
		src time.Duration
	}{
		{&opts.DialTimeout, cfg.DialTimeout},
		{&opts.ReadTimeout, cfg.ReadTimeout},
		{&opts.WriteTimeout, cfg.WriteTimeout},
	}
	for _, f := range fillDur {
		if *f.dst == 0 {
			*f.dst = f.src
		}
	}
	return opts, nil
}

func (c *Client) ready() error {
	if c.cmds == nil {
		return errNotInitialized
	}
	return nil
}

// Set stores a string value with an optional TTL.
func (c *Client) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if err := c.ready(); err != nil {
		return err
	}
	return c.cmds.Set(ctx, key, value, ttl).Err()
}

// Get returns a string value stored at key.
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	if err := c.ready(); err != nil {
		return "", err
	}
	return c.cmds.Get(ctx, key).Result()
}

// SetNX sets a value only if the key does not exist yet.
func (c *Client) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if err := c.ready(); err != nil {
		return false, err
	}
	return c.cmds.SetNX(ctx, key, value, ttl).Result()
}

// Incr increments the counter stored at key.
func (c *Client) Incr(ctx context.Context, key string) (int64, error) {
	if err := c.ready(); err != nil {
		return 0, err
	}
	return c.cmds.Incr(ctx, key).Result()
}

// IncrWithTTL increments the counter and attaches the TTL when this
// increment created the key.
func (c *Client) IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := c.Incr(ctx, key)
	switch {
	case err != nil:
		return 0, err
	case count != 1 || ttl <= 0:
		return count, nil
	}
	if err := c.cmds.Expire(ctx, key, ttl).Err(); err != nil {
		return count, err
	}
	return count, nil
}

// FixedWindowAllow applies a fixed-window rate limit keyed on scope. It
// returns whether the request is allowed and the current window count.
func (c *Client) FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error) {
	count, err := c.IncrWithTTL(ctx, c.RateLimitKey(scope), window)
	if err != nil {
		return false, 0, err
	}
	return count <= limit, count, nil
}

// Del removes the provided keys.
func (c *Client) Del(ctx context.Context, keys ...string) error {
	if err := c.ready(); err != nil {
		return err
	}
	return c.cmds.Del(ctx, keys...).Err()
}

// Ping verifies the connection.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.ready(); err != nil {
		return err
	}
	return c.cmds.Ping(ctx).Err()
}

// Close shuts down the underlying connection if one was opened.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// IdempotencyKey returns a namespaced key for idempotency storage.
func (c *Client) IdempotencyKey(scope, id string) string {
	return buildKey(idempotencyPrefix, scope, id)
}

// RateLimitKey returns a namespaced key for rate limit counters.
func (c *Client) RateLimitKey(scope string) string {
	return buildKey(rateLimitPrefix, scope)
}

// CounterKey returns a namespaced key for counters.
func (c *Client) CounterKey(name string) string {
	return buildKey(counterPrefix, name)
}

// RetailerTokenKey returns a namespaced key for a user's cached retailer
// access token. An empty retailer id keys the whole user.
func (c *Client) RetailerTokenKey(userID, retailerID string) string {
	return buildKey(tokenPrefix, userID, retailerID)
}

// StoreRetailerToken caches a retailer access token with the provided TTL.
func (c *Client) StoreRetailerToken(ctx context.Context, userID, retailerID, token string, ttl time.Duration) error {
	return c.Set(ctx, c.RetailerTokenKey(userID, retailerID), token, ttl)
}

// GetRetailerToken pulls the cached retailer token for the given user.
func (c *Client) GetRetailerToken(ctx context.Context, userID, retailerID string) (string, error) {
	return c.Get(ctx, c.RetailerTokenKey(userID, retailerID))
}

// RevokeRetailerToken deletes the cached retailer token.
func (c *Client) RevokeRetailerToken(ctx context.Context, userID, retailerID string) error {
	return c.Del(ctx, c.RetailerTokenKey(userID, retailerID))
}

// buildKey joins the namespace with the non-empty parts, colon separated.
func buildKey(parts ...string) string {
	var b strings.Builder
	b.WriteString(keyNamespace)
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		b.WriteByte(':')
		b.WriteString(part)
	}
	return b.String()
}
