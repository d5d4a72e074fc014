package infra

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultRedisClientName  = "exsim"
	defaultRedisPingTimeout = 5 * time.Second
)

// RedisOption adjusts the options parsed from a Redis URL.
type RedisOption func(*redisConfig)

type redisConfig struct {
	clientName  string
	poolSize    int
	pingTimeout time.Duration
}

// WithClientName sets the name reported by CLIENT LIST.
func WithClientName(name string) RedisOption {
	return func(c *redisConfig) {
		if name != "" {
			c.clientName = name
		}
	}
}

// WithPoolSize overrides the connection pool size. Non-positive values keep the driver default.
func WithPoolSize(n int) RedisOption {
	return func(c *redisConfig) {
		if n > 0 {
			c.poolSize = n
		}
	}
}

// WithPingTimeout bounds the connectivity check run by NewRedisClient.
func WithPingTimeout(d time.Duration) RedisOption {
	return func(c *redisConfig) {
		if d > 0 {
			c.pingTimeout = d
		}
	}
}

func redisOptions(url string, opts ...RedisOption) (*redis.Options, time.Duration, error) {
	if url == "" {
		return nil, 0, errors.New("redis url is required")
	}
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, 0, fmt.Errorf("parse redis url: %w", err)
	}

	cfg := redisConfig{clientName: defaultRedisClientName, pingTimeout: defaultRedisPingTimeout}
	for _, o := range opts {
		o(&cfg)
	}
	if opt.ClientName == "" {
		opt.ClientName = cfg.clientName
	}
	if cfg.poolSize > 0 {
		opt.PoolSize = cfg.poolSize
	}
	return opt, cfg.pingTimeout, nil
}

// NewRedisClient connects to the Redis server behind url and pings it once.
// A client_name given in the URL takes precedence over WithClientName.
func NewRedisClient(ctx context.Context, url string, opts ...RedisOption) (*redis.Client, error) {
	opt, timeout, err := redisOptions(url, opts...)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", opt.Addr, err)
	}
	return client, nil
}
