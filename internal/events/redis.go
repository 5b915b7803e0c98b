// Package events publishes tracker state changes on Redis.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"polygonal-zones/internal/config"
	"polygonal-zones/internal/models"

	"github.com/redis/go-redis/v9"
)

// DefaultChannel is used when no channel is configured.
const DefaultChannel = "polyzones:states"

// keyPrefix namespaces the keys holding the latest state of each tracker.
const keyPrefix = "polyzones:state:"

// Open connects to Redis and checks the connection.
func Open(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("events: failed to connect to redis at %s: %w", cfg.Addr, err)
	}
	return client, nil
}

// Publisher stores the latest state of each tracker and announces every change on a channel.
type Publisher struct {
	client  *redis.Client
	channel string
}

// NewPublisher creates a publisher on channel, or DefaultChannel when it is empty.
func NewPublisher(client *redis.Client, channel string) *Publisher {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Publisher{client: client, channel: channel}
}

// Channel returns the channel states are published on.
func (p *Publisher) Channel() string { return p.channel }

// StateKey returns the key holding the latest state of a tracker.
func StateKey(trackerID string) string { return keyPrefix + trackerID }

// Publish implements service.StatePublisher.
func (p *Publisher) Publish(ctx context.Context, state models.TrackerState) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("events: failed to encode state: %w", err)
	}

	pipe := p.client.TxPipeline()
	pipe.Set(ctx, StateKey(state.TrackerID), payload, 0)
	pipe.Publish(ctx, p.channel, payload)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("events: failed to publish state of %s: %w", state.TrackerID, err)
	}
	return nil
}
