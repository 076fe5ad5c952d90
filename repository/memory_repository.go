package repository

import (
	"context"
	"sort"
	"sync"

	"go_branch_chat/models"
)

// MemoryStore keeps conversations and settings in process. It backs the
// default single-user setup and tests.
type MemoryStore struct {
	mu            sync.RWMutex
	conversations map[string]models.ConversationRecord
	nodes         map[string]map[string]models.ChatNodeRecord
	settings      *models.SettingsRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		conversations: make(map[string]models.ConversationRecord),
		nodes:         make(map[string]map[string]models.ChatNodeRecord),
	}
}

var (
	_ ConversationRepository = (*MemoryStore)(nil)
	_ SettingsRepository     = (*MemoryStore)(nil)
)

func (s *MemoryStore) CreateConversation(_ context.Context, conv *models.ConversationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations[conv.ID] = *conv
	if _, ok := s.nodes[conv.ID]; !ok {
		s.nodes[conv.ID] = make(map[string]models.ChatNodeRecord)
	}
	return nil
}

func (s *MemoryStore) ListConversations(_ context.Context) ([]*models.ConversationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := make([]*models.ConversationRecord, 0, len(s.conversations))
	for _, c := range s.conversations {
		c := c
		res = append(res, &c)
	}
	sort.SliceStable(res, func(i, j int) bool {
		if res[i].UpdatedAt.Equal(res[j].UpdatedAt) {
			return res[i].ID < res[j].ID
		}
		return res[i].UpdatedAt.After(res[j].UpdatedAt)
	})
	return res, nil
}

func (s *MemoryStore) GetConversation(_ context.Context, id string) (*models.ConversationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.conversations[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (s *MemoryStore) UpdateConversation(_ context.Context, conv *models.ConversationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.conversations[conv.ID]
	if !ok {
		return ErrNotFound
	}
	updated := *conv
	updated.CreatedAt = old.CreatedAt
	s.conversations[conv.ID] = updated
	return nil
}

func (s *MemoryStore) DeleteConversation(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conversations, id)
	delete(s.nodes, id)
	return nil
}

func (s *MemoryStore) SaveNodes(_ context.Context, conversationID string, nodes []*models.ChatNodeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	bucket, ok := s.nodes[conversationID]
	if !ok {
		bucket = make(map[string]models.ChatNodeRecord)
		s.nodes[conversationID] = bucket
	}
	for _, n := range nodes {
		rec := *n
		rec.ConversationID = conversationID
		if old, ok := bucket[rec.ID]; ok {
			rec.CreatedAt = old.CreatedAt
		}
		bucket[rec.ID] = rec
	}
	return nil
}

func (s *MemoryStore) LoadNodes(_ context.Context, conversationID string) ([]*models.ChatNodeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	bucket := s.nodes[conversationID]
	res := make([]*models.ChatNodeRecord, 0, len(bucket))
	for _, n := range bucket {
		n := n
		res = append(res, &n)
	}
	sort.SliceStable(res, func(i, j int) bool {
		if res[i].Position != res[j].Position {
			return res[i].Position < res[j].Position
		}
		if !res[i].CreatedAt.Equal(res[j].CreatedAt) {
			return res[i].CreatedAt.Before(res[j].CreatedAt)
		}
		return res[i].ID < res[j].ID
	})
	return res, nil
}

func (s *MemoryStore) DeleteNodes(_ context.Context, conversationID string, nodeIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	bucket := s.nodes[conversationID]
	for _, id := range nodeIDs {
		delete(bucket, id)
	}
	return nil
}

func (s *MemoryStore) GetSettings(_ context.Context) (*models.SettingsRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.settings == nil {
		return nil, ErrNotFound
	}
	c := *s.settings
	return &c, nil
}

func (s *MemoryStore) SaveSettings(_ context.Context, settings *models.SettingsRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *settings
	c.ID = SettingsKey
	s.settings = &c
	return nil
}
