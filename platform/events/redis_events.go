package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"go_branch_chat/models"
	"go_branch_chat/pkg/logging"
)

// RedisPublisher distributes events over a redis channel so every server
// process sees them.
type RedisPublisher struct {
	redisClient *redis.Client
}

func NewRedisPublisher(redisClient *redis.Client) *RedisPublisher {
	return &RedisPublisher{redisClient: redisClient}
}

func (p *RedisPublisher) Publish(ctx context.Context, event *models.ChatEvent) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	data, err := json.Marshal(event)
	if err != nil {
		logging.Logger.Error().Err(err).Msg("fail PublishChatEvent")
		return err
	}
	if err := p.redisClient.Publish(ctx, ChatEventChannel, string(data)).Err(); err != nil {
		logging.Logger.Error().Err(err).Msg("fail PublishChatEvent")
		return err
	}
	logging.Logger.Debug().Str("type", string(event.Type)).Msg("PublishChatEvent")
	return nil
}

func (p *RedisPublisher) Subscribe(ctx context.Context) (<-chan *models.ChatEvent, error) {
	pubsub := p.redisClient.Subscribe(ctx, ChatEventChannel)
	if _, err := pubsub.Receive(ctx); err != nil {
		logging.Logger.Error().Err(err).Msg("fail SubscribeChatEvents")
		return nil, err
	}
	ch := make(chan *models.ChatEvent, 100)

	go func() {
		defer close(ch)
		defer func(pubsub *redis.PubSub) {
			if err := pubsub.Close(); err != nil {
				logging.Logger.Error().Err(err).Msg("fail SubscribeChatEvents")
			}
		}(pubsub)

		msgs := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var event models.ChatEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					logging.Logger.Error().Err(err).Msg("Failed to unmarshal event")
					continue
				}

				select {
				case ch <- &event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return ch, nil
}

func (p *RedisPublisher) Close() error {
	return nil
}

var _ Publisher = (*RedisPublisher)(nil)
