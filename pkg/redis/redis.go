// Package redis opens the Redis connection that holds the shared token
// buckets of the distributed rate limiter.
package redis

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	defaultDialTimeout = 5 * time.Second
	defaultIOTimeout   = time.Second
)

// Config holds Redis connection configuration.
type Config struct {
	Host        string
	Port        string
	Password    string
	DB          int
	MaxRetries  int
	PoolSize    int
	MinIdleConn int

	// IOTimeout bounds each read and write. Limiter calls sit on the request
	// path, so it defaults to one second.
	IOTimeout time.Duration
}

func (c Config) addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// Client is the limiter's Redis connection pool.
type Client struct {
	*redis.Client
	addr string
	log  *zap.Logger
}

// NewClient connects to Redis and fails unless the server answers a ping.
func NewClient(cfg Config, log *zap.Logger) (*Client, error) {
	ioTimeout := cfg.IOTimeout
	if ioTimeout <= 0 {
		ioTimeout = defaultIOTimeout
	}

	addr := cfg.addr()
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		MaxRetries:   cfg.MaxRetries,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConn,
		DialTimeout:  defaultDialTimeout,
		ReadTimeout:  ioTimeout,
		WriteTimeout: ioTimeout,
		PoolTimeout:  ioTimeout + time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), defaultDialTimeout)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}

	log.Info("rate limiter store connected",
		zap.String("addr", addr),
		zap.Int("db", cfg.DB),
		zap.Duration("io_timeout", ioTimeout),
	)

	return &Client{Client: rdb, addr: addr, log: log}, nil
}

// Ping checks if the Redis connection is alive.
func (c *Client) Ping(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}

// Close logs the pool counters and closes every connection.
func (c *Client) Close() error {
	st := c.PoolStats()
	c.log.Info("closing rate limiter store",
		zap.String("addr", c.addr),
		zap.Uint32("hits", st.Hits),
		zap.Uint32("misses", st.Misses),
		zap.Uint32("timeouts", st.Timeouts),
		zap.Uint32("total_conns", st.TotalConns),
	)
	return c.Client.Close()
}
