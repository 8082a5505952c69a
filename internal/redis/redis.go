package redis

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"newsbot/internal/config"
)

const pingTimeout = 3 * time.Second

// ErrMiss is returned by Load when the key does not exist.
var ErrMiss = goredis.Nil

var errClosed = errors.New("redis client not initialized")

// Client is the byte-oriented key/value store behind the article cache.
type Client struct {
	rdb *goredis.Client
}

// NewRedisClient dials redis with the configured address and credentials
// and fails unless the server answers a ping.
func NewRedisClient(cfg config.RedisConfig) (*Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     address(cfg),
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis %s: %w", rdb.Options().Addr, err)
	}
	return &Client{rdb: rdb}, nil
}

func address(cfg config.RedisConfig) string {
	host, port := cfg.Host, cfg.Port
	if host == "" {
		host = "127.0.0.1"
	}
	if port <= 0 {
		port = 6379
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}

func (c *Client) ready() bool { return c != nil && c.rdb != nil }

// Store writes payload under key with an expiry.
func (c *Client) Store(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	if !c.ready() {
		return errClosed
	}
	return c.rdb.Set(ctx, key, payload, ttl).Err()
}

// Load returns the payload under key, or ErrMiss.
func (c *Client) Load(ctx context.Context, key string) ([]byte, error) {
	if !c.ready() {
		return nil, errClosed
	}
	return c.rdb.Get(ctx, key).Bytes()
}

func (c *Client) Close() error {
	if !c.ready() {
		return nil
	}
	return c.rdb.Close()
}
