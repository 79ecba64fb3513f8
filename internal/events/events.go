// Package events publishes step-lifecycle transitions to a Redis channel,
// so external dashboards can observe a run without polling job-report
// files on disk.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Transition is one step changing state, published as a JSON message.
type Transition struct {
	StepID    int       `json:"step_id"`
	State     string    `json:"state"` // "running" or "done"
	ExitCode  *int      `json:"exitcode,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher publishes Transitions to a single Redis channel.
type Publisher struct {
	client  *redis.Client
	channel string
}

// NewPublisher returns a Publisher backed by a Redis client built from addr
// ("host:port"), publishing to channel.
func NewPublisher(addr, channel string) *Publisher {
	return &Publisher{
		client:  redis.NewClient(&redis.Options{Addr: addr}),
		channel: channel,
	}
}

// Publish serialises t and sends it to the configured channel. The send is
// synchronous and bounded only by ctx and the Redis client's own timeouts;
// a failure (e.g. Redis unavailable) is returned to the caller.
func (p *Publisher) Publish(ctx context.Context, t Transition) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("events: marshal transition for step %d: %w", t.StepID, err)
	}
	if err := p.client.Publish(ctx, p.channel, data).Err(); err != nil {
		return fmt.Errorf("events: publish step %d: %w", t.StepID, err)
	}
	return nil
}

// Close releases the underlying Redis connection.
func (p *Publisher) Close() error { return p.client.Close() }

// Subscriber receives Transitions published on a channel.
type Subscriber struct {
	pubsub *redis.PubSub
}

// NewSubscriber subscribes to channel on a Redis client built from addr.
func NewSubscriber(ctx context.Context, addr, channel string) *Subscriber {
	client := redis.NewClient(&redis.Options{Addr: addr})
	return &Subscriber{pubsub: client.Subscribe(ctx, channel)}
}

// Next blocks until the next Transition arrives or ctx is cancelled.
func (s *Subscriber) Next(ctx context.Context) (Transition, error) {
	msg, err := s.pubsub.ReceiveMessage(ctx)
	if err != nil {
		return Transition{}, fmt.Errorf("events: receive: %w", err)
	}
	var t Transition
	if err := json.Unmarshal([]byte(msg.Payload), &t); err != nil {
		return Transition{}, fmt.Errorf("events: unmarshal transition: %w", err)
	}
	return t, nil
}

// Close releases the subscription and its underlying connection.
func (s *Subscriber) Close() error { return s.pubsub.Close() }
