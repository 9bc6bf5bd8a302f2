package stream

import (
	"context"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisFeed carries change events over Redis Pub/Sub so every server instance
// sees writes made by any of them.
type RedisFeed struct {
	client *redis.Client
	log    zerolog.Logger
}

func NewRedisFeed(client *redis.Client, log zerolog.Logger) *RedisFeed {
	return &RedisFeed{
		client: client,
		log:    log.With().Str("component", "feed").Logger(),
	}
}

func (f *RedisFeed) Publish(ctx context.Context, channels ...string) {
	for _, ch := range channels {
		if err := f.client.Publish(ctx, ch, "1").Err(); err != nil {
			f.log.Error().Err(err).Str("channel", ch).Msg("publish change event")
		}
	}
}

func (f *RedisFeed) Subscribe(ctx context.Context, channels ...string) (<-chan string, func(), error) {
	sub := f.client.Subscribe(ctx, channels...)

	// Force the SUBSCRIBE round trip so setup failures surface here instead
	// of as a silently dead stream.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, err
	}

	out := make(chan string, 16)
	go func() {
		defer close(out)
		for msg := range sub.Channel() {
			select {
			case out <- msg.Channel:
			default:
				// Subscriber is re-querying anyway; dropping a redundant
				// tick keeps the pump from blocking.
			}
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			if err := sub.Close(); err != nil {
				f.log.Error().Err(err).Msg("close pubsub")
			}
		})
	}

	return out, cancel, nil
}
