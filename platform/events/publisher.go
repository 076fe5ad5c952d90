package events

import (
	"context"

	"go_branch_chat/models"
)

const (
	ChatEventChannel = "chat:events"
)

// Publisher fans chat events out to presentation subscribers.
type Publisher interface {
	Publish(ctx context.Context, event *models.ChatEvent) error
	Subscribe(ctx context.Context) (<-chan *models.ChatEvent, error)
	Close() error
}
