package repository

import (
	"context"

	"github.com/pkg/errors"

	"go_branch_chat/models"
)

// ErrNotFound is returned when a conversation or settings row does not exist.
var ErrNotFound = errors.New("record not found")

type ConversationRepository interface {
	CreateConversation(ctx context.Context, conv *models.ConversationRecord) error
	// ListConversations returns headers ordered by UpdatedAt, newest first.
	ListConversations(ctx context.Context) ([]*models.ConversationRecord, error)
	GetConversation(ctx context.Context, id string) (*models.ConversationRecord, error)
	UpdateConversation(ctx context.Context, conv *models.ConversationRecord) error
	// DeleteConversation removes the header and every node of the tree.
	DeleteConversation(ctx context.Context, id string) error

	// SaveNodes inserts or overwrites nodes of one conversation.
	SaveNodes(ctx context.Context, conversationID string, nodes []*models.ChatNodeRecord) error
	// LoadNodes returns the nodes of a conversation ordered by parent position.
	LoadNodes(ctx context.Context, conversationID string) ([]*models.ChatNodeRecord, error)
	DeleteNodes(ctx context.Context, conversationID string, nodeIDs []string) error
}

type SettingsRepository interface {
	GetSettings(ctx context.Context) (*models.SettingsRecord, error)
	SaveSettings(ctx context.Context, settings *models.SettingsRecord) error
}
