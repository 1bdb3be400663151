// Package redispub publishes board change events to a redis channel.
package redispub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/hylla/taskflow/internal/domain"
	"github.com/redis/go-redis/v9"
)

// DefaultChannel is used when Config.Channel is blank.
const DefaultChannel = "taskflow.changes"

// Config holds publisher settings.
type Config struct {
	Addr            string
	Channel         string
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// Publisher sends every recorded change event to a redis channel as JSON.
type Publisher struct {
	client  redis.UniversalClient
	channel string
	cfg     Config
}

// New dials nothing up front; redis connects lazily on first publish.
func New(cfg Config) (*Publisher, error) {
	cfg.Addr = strings.TrimSpace(cfg.Addr)
	if cfg.Addr == "" {
		return nil, errors.New("redis address is required")
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.Addr})
	return NewWithClient(client, cfg), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client redis.UniversalClient, cfg Config) *Publisher {
	cfg.Channel = strings.TrimSpace(cfg.Channel)
	if cfg.Channel == "" {
		cfg.Channel = DefaultChannel
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = 100 * time.Millisecond
	}
	if cfg.MaxInterval <= 0 {
		cfg.MaxInterval = 2 * time.Second
	}
	return &Publisher{client: client, channel: cfg.Channel, cfg: cfg}
}

// Channel returns the channel events are published on.
func (p *Publisher) Channel() string {
	return p.channel
}

// Record publishes event, retrying transient failures with exponential backoff.
func (p *Publisher) Record(ctx context.Context, event domain.ChangeEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode change event: %w", err)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.cfg.InitialInterval
	b.MaxInterval = p.cfg.MaxInterval
	b.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(p.cfg.MaxRetries)), ctx)

	operation := func() error {
		err := p.client.Publish(ctx, p.channel, payload).Err()
		if err != nil && ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		return err
	}
	if err := backoff.Retry(operation, policy); err != nil {
		return fmt.Errorf("publish change event %d: %w", event.ID, err)
	}
	return nil
}

// Close releases the redis connection pool.
func (p *Publisher) Close() error {
	return p.client.Close()
}
