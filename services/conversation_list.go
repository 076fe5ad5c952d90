package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"go_branch_chat/models"
	"go_branch_chat/pkg/apperr"
	"go_branch_chat/pkg/logging"
	"go_branch_chat/repository"
)

func (s *ConversationService) ListConversations(ctx context.Context) ([]models.ConversationInfo, error) {
	list, err := s.repo.ListConversations(ctx)
	if err != nil {
		return nil, apperr.Unavailable(err, "list conversations")
	}
	res := make([]models.ConversationInfo, 0, len(list))
	for _, c := range list {
		res = append(res, models.ConversationInfo{ID: c.ID, Title: c.Title, UpdatedAt: c.UpdatedAt})
	}
	return res, nil
}

// CurrentConversation describes the loaded conversation.
func (s *ConversationService) CurrentConversation() (models.ConversationInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.conversation == nil {
		return models.ConversationInfo{}, false
	}
	return models.ConversationInfo{
		ID:        s.conversation.ID,
		Title:     s.conversation.Title,
		UpdatedAt: s.conversation.UpdatedAt,
	}, true
}

// CreateConversation starts a conversation with a fresh root system node and
// loads it.
func (s *ConversationService) CreateConversation(ctx context.Context, title string) (models.ConversationInfo, error) {
	if s.IsGenerating() {
		return models.ConversationInfo{}, apperr.ErrBusy
	}
	title = strings.TrimSpace(title)
	if title == "" {
		title = DefaultConversationTitle
	}
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return models.ConversationInfo{}, err
	}

	now := s.now()
	root := &models.ConversationNode{
		ID:         uuid.New().String(),
		ChildIDs:   []string{},
		Role:       models.RoleSystem,
		Content:    settings.SystemPrompt,
		Timestamp:  now,
		StopReason: models.StopReasonNone,
	}
	conv := &models.ConversationRecord{
		ID:            uuid.New().String(),
		Title:         title,
		RootNodeID:    root.ID,
		CurrentNodeID: root.ID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.CreateConversation(ctx, conv); err != nil {
		logging.Logger.Error().Err(err).Msg("fail CreateConversation")
		return models.ConversationInfo{}, apperr.Unavailable(err, "create conversation")
	}
	if err := s.repo.SaveNodes(ctx, conv.ID, []*models.ChatNodeRecord{toNodeRecord(root, 0)}); err != nil {
		logging.Logger.Error().Err(err).Str("conversation_id", conv.ID).Msg("fail CreateConversation")
		return models.ConversationInfo{}, apperr.Unavailable(err, "create conversation")
	}

	s.mu.Lock()
	s.conversation = conv
	s.nodes = map[string]*models.ConversationNode{root.ID: root}
	s.mu.Unlock()

	logging.Logger.Info().Str("conversation_id", conv.ID).Msg("conversation created")
	return models.ConversationInfo{ID: conv.ID, Title: conv.Title, UpdatedAt: conv.UpdatedAt}, nil
}

// LoadConversation replaces the loaded tree with the stored one.
func (s *ConversationService) LoadConversation(ctx context.Context, id string) error {
	if s.IsGenerating() {
		return apperr.ErrBusy
	}
	conv, err := s.repo.GetConversation(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.Invalid("conversation " + id + " does not exist")
	}
	if err != nil {
		return apperr.Unavailable(err, "load conversation")
	}
	records, err := s.repo.LoadNodes(ctx, id)
	if err != nil {
		return apperr.Unavailable(err, "load conversation")
	}

	nodes := make(map[string]*models.ConversationNode, len(records))
	for _, r := range records {
		nodes[r.ID] = fromNodeRecord(r)
	}
	// records arrive ordered by position, so appending keeps variant order
	for _, r := range records {
		if parent, ok := nodes[r.ParentID]; ok && r.ID != conv.RootNodeID {
			parent.ChildIDs = append(parent.ChildIDs, r.ID)
		}
	}
	if _, ok := nodes[conv.RootNodeID]; !ok {
		return apperr.Unavailable(errors.Errorf("root node %s missing", conv.RootNodeID), "load conversation")
	}
	if _, ok := nodes[conv.CurrentNodeID]; !ok {
		conv.CurrentNodeID = conv.RootNodeID
	}

	s.mu.Lock()
	s.conversation = conv
	s.nodes = nodes
	s.mu.Unlock()

	logging.Logger.Info().Str("conversation_id", id).Int("nodes", len(nodes)).Msg("conversation loaded")
	return nil
}

// DeleteConversation removes a conversation. Deleting the loaded one loads
// the most recent remaining conversation or a new default one.
func (s *ConversationService) DeleteConversation(ctx context.Context, id string) error {
	if s.IsGenerating() {
		return apperr.ErrBusy
	}
	if err := s.repo.DeleteConversation(ctx, id); err != nil {
		return apperr.Unavailable(err, "delete conversation")
	}
	s.mu.RLock()
	loaded := s.conversation != nil && s.conversation.ID == id
	s.mu.RUnlock()
	if !loaded {
		return nil
	}
	return s.Initialize(ctx)
}

func (s *ConversationService) RenameConversation(ctx context.Context, id, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return apperr.Invalid("title is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conversation != nil && s.conversation.ID == id {
		s.conversation.Title = title
		if err := s.saveHeader(ctx, true); err != nil {
			return apperr.Unavailable(err, "rename conversation")
		}
		return nil
	}

	conv, err := s.repo.GetConversation(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.Invalid("conversation " + id + " does not exist")
	}
	if err != nil {
		return apperr.Unavailable(err, "rename conversation")
	}
	conv.Title = title
	conv.UpdatedAt = s.now()
	if err := s.repo.UpdateConversation(ctx, conv); err != nil {
		return apperr.Unavailable(err, "rename conversation")
	}
	return nil
}
