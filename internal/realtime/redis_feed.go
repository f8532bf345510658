package realtime

import (
	"context"
	"encoding/json"

	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const channel = "sakupos:changes"

// RedisFeed publishes and subscribes change events over a Redis channel.
type RedisFeed struct {
	client *redis.Client
	logger zerolog.Logger
}

func NewRedisFeed(addr string, password string, db int, logger zerolog.Logger) *RedisFeed {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisFeed{
		client: client,
		logger: logger.With().Str("component", "realtime").Logger(),
	}
}

func (f *RedisFeed) Ping(ctx context.Context) error {
	return f.client.Ping(ctx).Err()
}

func (f *RedisFeed) Close() error {
	return f.client.Close()
}

func (f *RedisFeed) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return f.client.Publish(ctx, channel, payload).Err()
}

func (f *RedisFeed) Subscribe(ctx context.Context) (<-chan Event, error) {
	sub := f.client.Subscribe(ctx, channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, err
	}

	events := make(chan Event, 16)
	go func() {
		defer close(events)
		defer func() { _ = sub.Close() }()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var event Event
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					f.logger.Warn().Err(err).Msg("malformed change event")
					continue
				}
				select {
				case events <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return events, nil
}
