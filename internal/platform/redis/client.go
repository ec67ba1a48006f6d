// Package redis opens the optional Redis connection that backs the token
// revocation list and the shared rate-limit windows.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"condo/internal/platform/config"
)

const (
	clientName    = "condo"
	healthTimeout = time.Second
	pingAttempts  = 3
)

// Client is a connected go-redis client.
type Client struct {
	*redis.Client
}

// New connects to cfg.URL. It returns nil, nil when no URL is configured so
// callers can fall back to in-process stores.
func New(ctx context.Context, cfg config.RedisConfig) (*Client, error) {
	if cfg.URL == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	applyConfig(opts, cfg)

	c := &Client{Client: redis.NewClient(opts)}
	if err := c.waitReady(ctx); err != nil {
		_ = c.Client.Close()
		return nil, err
	}
	return c, nil
}

func applyConfig(opts *redis.Options, cfg config.RedisConfig) {
	opts.ClientName = clientName
	opts.MinIdleConns = cfg.MinIdleConns
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if cfg.DialTimeout > 0 {
		opts.DialTimeout = cfg.DialTimeout
	}
	if cfg.ReadTimeout > 0 {
		opts.ReadTimeout = cfg.ReadTimeout
	}
	if cfg.WriteTimeout > 0 {
		opts.WriteTimeout = cfg.WriteTimeout
	}
}

// waitReady pings a few times with a short backoff; Redis often comes up
// after the API in local compose setups.
func (c *Client) waitReady(ctx context.Context) error {
	var err error
	for attempt := range pingAttempts {
		if err = c.Ping(ctx).Err(); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return errors.Join(err, ctx.Err())
		case <-time.After(time.Duration(attempt+1) * 200 * time.Millisecond):
		}
	}
	return fmt.Errorf("redis not reachable after %d attempts: %w", pingAttempts, err)
}

// Health pings Redis with its own short deadline so a stuck connection does
// not hold up /healthz.
func (c *Client) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()
	return c.Ping(ctx).Err()
}

func (c *Client) Close() error {
	if c == nil || c.Client == nil {
		return nil
	}
	return c.Client.Close()
}
