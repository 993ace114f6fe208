package events

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/orchestra-dev/orchestra/pkg/log"
)

type (
	// Hub fans lifecycle events out to live consumers over a Redis channel
	Hub struct {
		client  *redis.Client
		channel string
	}

	// Subscription is a single consumer of the hub. Events arrive on
	// Receive until Close is called or the subscription drops
	Subscription struct {
		pubsub *redis.PubSub
		ch     chan *Event
	}
)

const subscriptionBuffer = 16

// NewHub creates a hub publishing on "{prefix}:events"
func NewHub(client *redis.Client, prefix string) *Hub {
	return &Hub{
		client:  client,
		channel: prefix + ":events",
	}
}

// Publish sends an event to all current subscribers
func (h *Hub) Publish(ctx context.Context, ev *Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return h.client.Publish(ctx, h.channel, data).Err()
}

// Subscribe registers a new consumer. The caller owns the subscription and
// must Close it
func (h *Hub) Subscribe(ctx context.Context) *Subscription {
	pubsub := h.client.Subscribe(ctx, h.channel)

	// consume the confirmation so events published after Subscribe returns
	// are guaranteed to be delivered
	if _, err := pubsub.Receive(ctx); err != nil {
		slog.Warn("Failed to confirm subscription", log.Error(err))
	}

	sub := &Subscription{
		pubsub: pubsub,
		ch:     make(chan *Event, subscriptionBuffer),
	}
	go sub.run()
	return sub
}

// Receive returns the channel events arrive on. The channel closes when the
// subscription ends
func (s *Subscription) Receive() <-chan *Event {
	return s.ch
}

// Close terminates the subscription
func (s *Subscription) Close() error {
	return s.pubsub.Close()
}

func (s *Subscription) run() {
	defer close(s.ch)
	for msg := range s.pubsub.Channel() {
		var ev Event
		if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
			slog.Warn("Dropping malformed event", log.Error(err))
			continue
		}
		s.ch <- &ev
	}
}
