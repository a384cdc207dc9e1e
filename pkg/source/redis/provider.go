// Package redis implements a secret provider backed by Redis, for
// deployments that distribute short-lived secret material through a shared
// Redis instance.
package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Provider implements the source.Provider interface for Redis.
type Provider struct {
	client    *redis.Client
	keyPrefix string
	ownClient bool
}

// Config holds configuration for the Redis provider.
type Config struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string // prepended to every secret key, e.g. "secrets:"
}

// New creates a new Redis provider with its own client.
func New(cfg Config) *Provider {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &Provider{client: client, keyPrefix: cfg.KeyPrefix, ownClient: true}
}

// NewWithClient creates a provider on top of an existing Redis client. The
// client's lifecycle stays with the caller.
func NewWithClient(client *redis.Client, keyPrefix string) *Provider {
	return &Provider{client: client, keyPrefix: keyPrefix}
}

// Get retrieves the secret stored under the given key.
func (p *Provider) Get(ctx context.Context, path string) (string, error) {
	key := p.keyPrefix + path
	val, err := p.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", fmt.Errorf("secret key %q not found", key)
	}
	if err != nil {
		return "", fmt.Errorf("get redis key %q: %w", key, err)
	}
	return val, nil
}

// Close closes the Redis client if this provider owns it.
func (p *Provider) Close() error {
	if !p.ownClient {
		return nil
	}
	return p.client.Close()
}
