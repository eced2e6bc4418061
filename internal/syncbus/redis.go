package syncbus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/Quranfi-Project/quranfi-web/internal/logger"
)

// envelope is the Pub/Sub payload.
type envelope struct {
	Origin string `json:"origin"`
	Event  Event  `json:"event"`
}

// RedisBus relays events over a Redis Pub/Sub channel, for instances that
// share a Redis-backed store.
type RedisBus struct {
	*dispatcher

	client  *redis.Client
	channel string
	pubsub  *redis.PubSub
	log     logger.Logger
	done    chan struct{}
}

// NewRedisBus subscribes to channel and waits for the subscription to be
// confirmed. The client stays owned by the caller.
func NewRedisBus(ctx context.Context, client *redis.Client, channel string, log logger.Logger) (*RedisBus, error) {
	pubsub := client.Subscribe(ctx, channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", channel, err)
	}

	b := &RedisBus{
		dispatcher: newDispatcher(),
		client:     client,
		channel:    channel,
		pubsub:     pubsub,
		log:        log.With(logger.String("channel", channel)),
		done:       make(chan struct{}),
	}
	go b.receive()
	return b, nil
}

func (b *RedisBus) Publish(ctx context.Context, ev Event) error {
	if b.isClosed() {
		return ErrClosed
	}

	data, err := json.Marshal(envelope{Origin: b.id, Event: ev})
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

func (b *RedisBus) Close() error {
	if !b.shutdown() {
		return nil
	}
	err := b.pubsub.Close()
	<-b.done
	return err
}

func (b *RedisBus) receive() {
	defer close(b.done)

	for msg := range b.pubsub.Channel() {
		var env envelope
		if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
			b.log.Debug("ignoring malformed event", logger.Error(err))
			continue
		}
		if env.Origin == b.id {
			continue
		}
		b.deliver(env.Event)
	}
}
