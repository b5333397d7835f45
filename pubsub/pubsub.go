// Package pubsub fans out cache invalidation events between instances over
// a Redis channel.
package pubsub

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Channel is the Redis channel every instance publishes to.
const Channel = "urst:events"

const (
	EventLinkDeleted = "link.deleted"
	EventLinksPurged = "links.purged"
)

// Event is the wire payload.
type Event struct {
	Name   string `json:"event"`
	Code   string `json:"code,omitempty"`
	Source string `json:"source"`
}

type HandlerFunc func(ctx context.Context, evt Event)

type PubSub struct {
	client   *redis.Client
	instance string
	logger   *slog.Logger

	mu       sync.RWMutex
	handlers map[string][]HandlerFunc
}

func NewPubSub(client *redis.Client, logger *slog.Logger) *PubSub {
	if logger == nil {
		logger = slog.Default()
	}
	return &PubSub{
		client:   client,
		instance: uuid.NewString(),
		logger:   logger,
		handlers: make(map[string][]HandlerFunc),
	}
}

// Instance identifies this process in published events.
func (ps *PubSub) Instance() string {
	return ps.instance
}

// Subscribe registers handler for an event name. Events this instance
// published itself are not delivered back to it.
func (ps *PubSub) Subscribe(event string, handler HandlerFunc) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.handlers[event] = append(ps.handlers[event], handler)
}

// Publish an event
func (ps *PubSub) Publish(ctx context.Context, event, code string) error {
	bytes, err := json.Marshal(Event{Name: event, Code: code, Source: ps.instance})
	if err != nil {
		return err
	}
	return ps.client.Publish(ctx, Channel, bytes).Err()
}

// Run confirms the subscription, then listens in the background until ctx
// is cancelled.
func (ps *PubSub) Run(ctx context.Context) error {
	sub := ps.client.Subscribe(ctx, Channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return err
	}

	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				ps.dispatch(ctx, []byte(msg.Payload))
			}
		}
	}()
	return nil
}

func (ps *PubSub) dispatch(ctx context.Context, payload []byte) {
	var evt Event
	if err := json.Unmarshal(payload, &evt); err != nil {
		ps.logger.Warn("pubsub decode error", "error", err)
		return
	}
	if evt.Source == ps.instance {
		return
	}

	ps.mu.RLock()
	handlers := ps.handlers[evt.Name]
	ps.mu.RUnlock()
	for _, h := range handlers {
		h(ctx, evt)
	}
}
