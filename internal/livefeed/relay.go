package livefeed

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"smartcampus/internal/recognition"
)

const DefaultChannel = "campus:attendance:live"

// RedisRelay carries marked events from worker processes to the API hub
// over Redis pub/sub.
type RedisRelay struct {
	client  *redis.Client
	channel string
	log     *zap.Logger
}

func NewRedisRelay(client *redis.Client, channel string, log *zap.Logger) *RedisRelay {
	if channel == "" {
		channel = DefaultChannel
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &RedisRelay{client: client, channel: channel, log: log}
}

// Publish sends d to subscribers when it marked a student.
func (r *RedisRelay) Publish(ctx context.Context, d recognition.Decision) error {
	evt, ok := EventFor(d)
	if !ok {
		return nil
	}
	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	if err := r.client.Publish(ctx, r.channel, data).Err(); err != nil {
		return fmt.Errorf("publish live event: %w", err)
	}
	return nil
}

// Forward copies relayed events into hub until ctx is done.
func (r *RedisRelay) Forward(ctx context.Context, hub *Hub) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", r.channel, err)
	}
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			var evt Event
			if err := json.Unmarshal([]byte(m.Payload), &evt); err != nil {
				r.log.Warn("bad live event", zap.Error(err))
				continue
			}
			hub.Broadcast(evt)
		}
	}
}
