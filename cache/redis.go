package cache

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig configures the Redis connection.
type RedisConfig struct {
	// Host is the Redis host.
	// Default: 127.0.0.1
	Host string `yaml:"host"`

	// Port is the Redis port.
	// Default: 6379
	Port int `yaml:"port"`

	// Password is optional. Accepts secret references.
	Password string `yaml:"password"`

	// DB selects the logical database.
	// Default: 0
	DB int `yaml:"db"`

	// TLS enables TLS to the server.
	TLS bool `yaml:"tls"`

	// DialTimeout bounds connection establishment.
	// Default: 5s
	DialTimeout time.Duration `yaml:"dial_timeout"`
}

// Addr returns host:port with defaults applied.
func (c RedisConfig) Addr() string {
	host := c.Host
	if host == "" {
		host = "127.0.0.1"
	}
	port := c.Port
	if port == 0 {
		port = 6379
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// RedisBackend is a Backend on a single go-redis client. The client holds a
// connection pool and is shared by every request in the process.
type RedisBackend struct {
	client *redis.Client
}

// NewRedisBackend creates a client for cfg. It does not dial; call Ping to
// verify connectivity.
func NewRedisBackend(cfg RedisConfig) *RedisBackend {
	opts := &redis.Options{
		Addr:        cfg.Addr(),
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: cfg.DialTimeout,
	}
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = 5 * time.Second
	}
	if cfg.TLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return &RedisBackend{client: redis.NewClient(opts)}
}

// NewRedisBackendFromClient wraps an existing client.
func NewRedisBackendFromClient(client *redis.Client) *RedisBackend {
	return &RedisBackend{client: client}
}

// Get retrieves a value. redis.Nil is reported as a miss.
func (b *RedisBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := b.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache: redis get: %w", err)
	}
	return val, true, nil
}

// Set issues SET key value [EX seconds]. Sub-second TTLs round up to whole
// seconds.
func (b *RedisBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	expiration := time.Duration(TTLSeconds(ttl)) * time.Second
	if err := b.client.Set(ctx, key, value, expiration).Err(); err != nil {
		return fmt.Errorf("cache: redis set: %w", err)
	}
	return nil
}

// Delete issues DEL key.
func (b *RedisBackend) Delete(ctx context.Context, key string) error {
	if err := b.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("cache: redis del: %w", err)
	}
	return nil
}

// TTL issues TTL key.
func (b *RedisBackend) TTL(ctx context.Context, key string) (time.Duration, error) {
	d, err := b.client.TTL(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("cache: redis ttl: %w", err)
	}
	// go-redis passes the -1/-2 replies through unscaled.
	switch d {
	case -2:
		return 0, ErrNotFound
	case -1:
		return NoExpiry, nil
	}
	return d, nil
}

// Expire issues EXPIRE key seconds.
func (b *RedisBackend) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		n, err := b.client.Del(ctx, key).Result()
		if err != nil {
			return false, fmt.Errorf("cache: redis expire: %w", err)
		}
		return n > 0, nil
	}
	ok, err := b.client.Expire(ctx, key, time.Duration(TTLSeconds(ttl))*time.Second).Result()
	if err != nil {
		return false, fmt.Errorf("cache: redis expire: %w", err)
	}
	return ok, nil
}

// Ping checks connectivity.
func (b *RedisBackend) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

// Close releases the connection pool.
func (b *RedisBackend) Close() error {
	return b.client.Close()
}

// Ensure RedisBackend implements Backend
var _ Backend = (*RedisBackend)(nil)
