// Package redisq adapts a Redis connection to the worker's queue
// contracts. Producers LPUSH task payloads, so the worker consumes the
// other end with BRPOP to keep within-queue FIFO order. Consumption is
// destructive; there is no acknowledgment protocol, so a crash after a
// pop loses that task.
package redisq

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// queueCmdable is the subset of the go-redis client the queue consumer
// uses, extracted so tests can substitute a fake connection.
type queueCmdable interface {
	Ping(ctx context.Context) *redis.StatusCmd
	BRPop(ctx context.Context, timeout time.Duration, keys ...string) *redis.StringSliceCmd
	Close() error
}

// Client wraps a go-redis client for blocking queue pops.
type Client struct {
	rdb queueCmdable
}

// NewClient creates a Redis client from a connection URL and verifies the
// connection with a PING, failing fast on an unreachable queue host.
func NewClient(ctx context.Context, url string) (*Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// Pop performs a blocking BRPOP on the named queue, waiting up to
// timeout. Returns (nil, nil) when the timeout elapsed with no element.
func (c *Client) Pop(ctx context.Context, queueName string, timeout time.Duration) ([]byte, error) {
	res, err := c.rdb.BRPop(ctx, timeout, queueName).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("brpop %s: %w", queueName, err)
	}
	// BRPOP replies with [key, value].
	if len(res) < 2 {
		return nil, fmt.Errorf("brpop %s: malformed reply of %d elements", queueName, len(res))
	}
	return []byte(res[1]), nil
}

// Close closes the underlying Redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}
