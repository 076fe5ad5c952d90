package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"go_branch_chat/models"
	"go_branch_chat/pkg/logging"
)

// LocalPublisher is an in-process bus backed by a watermill go channel.
// Publish waits for subscribers to ack so deltas keep their order. Events
// published with no subscriber are dropped.
type LocalPublisher struct {
	pubSub *gochannel.GoChannel
}

func NewLocalPublisher() *LocalPublisher {
	return &LocalPublisher{
		pubSub: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer:            256,
			BlockPublishUntilSubscriberAck: true,
		}, watermill.NopLogger{}),
	}
}

func (p *LocalPublisher) Publish(_ context.Context, event *models.ChatEvent) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		logging.Logger.Error().Err(err).Msg("fail PublishChatEvent")
		return err
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := p.pubSub.Publish(ChatEventChannel, msg); err != nil {
		logging.Logger.Error().Err(err).Str("topic", ChatEventChannel).Msg("fail PublishChatEvent")
		return err
	}
	return nil
}

func (p *LocalPublisher) Subscribe(ctx context.Context) (<-chan *models.ChatEvent, error) {
	msgs, err := p.pubSub.Subscribe(ctx, ChatEventChannel)
	if err != nil {
		logging.Logger.Error().Err(err).Msg("fail SubscribeChatEvents")
		return nil, err
	}
	ch := make(chan *models.ChatEvent, 100)
	go func() {
		defer close(ch)
		for msg := range msgs {
			var event models.ChatEvent
			err := json.Unmarshal(msg.Payload, &event)
			msg.Ack()
			if err != nil {
				logging.Logger.Error().Err(err).Msg("Failed to unmarshal event")
				continue
			}
			select {
			case ch <- &event:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}

func (p *LocalPublisher) Close() error {
	return p.pubSub.Close()
}

var _ Publisher = (*LocalPublisher)(nil)
