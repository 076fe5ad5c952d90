package services

import (
	"context"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"go_branch_chat/markdown"
	"go_branch_chat/models"
	"go_branch_chat/navigator"
	"go_branch_chat/pkg/apperr"
	"go_branch_chat/pkg/logging"
	"go_branch_chat/repository"
)

const (
	DefaultConversationTitle = "New Chat"
	maxTitleRunes            = 40
)

// ConversationService owns the authoritative conversation tree of the loaded
// conversation. Nodes live in an id-keyed map; every read returns snapshots.
type ConversationService struct {
	repo      repository.ConversationRepository
	settings  *SettingsService
	generator Generator
	now       func() time.Time

	mu           sync.RWMutex
	conversation *models.ConversationRecord
	nodes        map[string]*models.ConversationNode

	genMu      sync.Mutex
	generating bool
	stopped    bool
	cancel     context.CancelFunc
}

var _ navigator.Tree = (*ConversationService)(nil)

func NewConversationService(repo repository.ConversationRepository, settings *SettingsService, generator Generator) *ConversationService {
	return &ConversationService{
		repo:      repo,
		settings:  settings,
		generator: generator,
		now:       time.Now,
		nodes:     make(map[string]*models.ConversationNode),
	}
}

// Initialize loads the most recently updated conversation, creating a default
// one when none exist.
func (s *ConversationService) Initialize(ctx context.Context) error {
	list, err := s.repo.ListConversations(ctx)
	if err != nil {
		logging.Logger.Error().Err(err).Msg("fail Initialize")
		return apperr.Unavailable(err, "list conversations")
	}
	if len(list) == 0 {
		_, err := s.CreateConversation(ctx, DefaultConversationTitle)
		return err
	}
	return s.LoadConversation(ctx, list[0].ID)
}

func (s *ConversationService) GetCurrentPath() ([]models.ConversationNode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.conversation == nil {
		return nil, apperr.Unavailable(errors.New("no conversation loaded"), "get current path")
	}
	return s.pathTo(s.conversation.CurrentNodeID), nil
}

// pathTo walks parent links up from id. Caller holds s.mu.
func (s *ConversationService) pathTo(id string) []models.ConversationNode {
	var rev []models.ConversationNode
	seen := make(map[string]bool)
	for id != "" && !seen[id] {
		seen[id] = true
		node, ok := s.nodes[id]
		if !ok {
			break
		}
		rev = append(rev, node.Clone())
		id = node.ParentID
	}
	path := make([]models.ConversationNode, len(rev))
	for i := range rev {
		path[len(rev)-1-i] = rev[i]
	}
	return path
}

func (s *ConversationService) GetChildNodes(nodeID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	node, ok := s.nodes[nodeID]
	if !ok {
		return nil, apperr.NodeNotFound(nodeID)
	}
	return append([]string{}, node.ChildIDs...), nil
}

func (s *ConversationService) SwitchToNode(nodeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.nodes[nodeID]; !ok {
		return apperr.NodeNotFound(nodeID)
	}
	s.conversation.CurrentNodeID = nodeID
	if err := s.saveHeader(context.Background(), false); err != nil {
		logging.Logger.Warn().Err(err).Str("node_id", nodeID).Msg("fail to persist current node")
	}
	return nil
}

func (s *ConversationService) GetCurrentNodeID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.conversation == nil {
		return ""
	}
	return s.conversation.CurrentNodeID
}

func (s *ConversationService) GetRootNodeID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.conversation == nil {
		return ""
	}
	return s.conversation.RootNodeID
}

// AddUserMessage appends a user message under the current node and makes it
// current. Blank text is ignored.
func (s *ConversationService) AddUserMessage(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conversation == nil {
		return apperr.Unavailable(errors.New("no conversation loaded"), "add user message")
	}

	node, err := s.addChild(ctx, s.conversation.CurrentNodeID, models.RoleUser, text)
	if err != nil {
		return err
	}
	if s.conversation.Title == DefaultConversationTitle {
		s.conversation.Title = titleFrom(text)
	}
	s.conversation.CurrentNodeID = node.ID
	if err := s.saveHeader(ctx, true); err != nil {
		return apperr.Unavailable(err, "add user message")
	}
	return nil
}

// addChild creates and persists a node under parentID. On a failed write the
// in-memory tree is rolled back. Caller holds s.mu.
func (s *ConversationService) addChild(ctx context.Context, parentID string, role models.Role, content string) (*models.ConversationNode, error) {
	parent, ok := s.nodes[parentID]
	if !ok {
		return nil, apperr.NodeNotFound(parentID)
	}
	node := &models.ConversationNode{
		ID:         uuid.New().String(),
		ParentID:   parentID,
		ChildIDs:   []string{},
		Role:       role,
		Content:    content,
		Timestamp:  s.now(),
		StopReason: models.StopReasonNone,
	}
	position := len(parent.ChildIDs)
	err := s.repo.SaveNodes(ctx, s.conversation.ID, []*models.ChatNodeRecord{toNodeRecord(node, position)})
	if err != nil {
		logging.Logger.Error().Err(err).Str("parent_id", parentID).Msg("fail addChild")
		return nil, apperr.Unavailable(err, "save node")
	}
	parent.ChildIDs = append(parent.ChildIDs, node.ID)
	s.nodes[node.ID] = node
	return node, nil
}

// GenerateResponse streams an assistant reply to the current path. The
// assistant node is created under the current node on the first delta and
// becomes current. onDelta receives every delta in arrival order.
func (s *ConversationService) GenerateResponse(ctx context.Context, onDelta func(string)) (string, error) {
	genCtx, err := s.beginGeneration(ctx)
	if err != nil {
		return "", err
	}
	defer s.endGeneration()

	settings, err := s.settings.Get(ctx)
	if err != nil {
		return "", err
	}

	s.mu.RLock()
	if s.conversation == nil {
		s.mu.RUnlock()
		return "", apperr.Unavailable(errors.New("no conversation loaded"), "generate response")
	}
	parentID := s.conversation.CurrentNodeID
	messages := s.pathTo(parentID)
	s.mu.RUnlock()

	var (
		content     strings.Builder
		assistantID string
		createErr   error
	)
	finishReason, streamErr := s.generator.Stream(genCtx, settings, messages, func(delta string) bool {
		if s.isStopped() {
			return false
		}
		content.WriteString(delta)

		s.mu.Lock()
		if assistantID == "" {
			node, err := s.addChild(ctx, parentID, models.RoleAssistant, content.String())
			if err != nil {
				s.mu.Unlock()
				createErr = err
				return false
			}
			assistantID = node.ID
			s.conversation.CurrentNodeID = node.ID
		} else if node, ok := s.nodes[assistantID]; ok {
			node.Content = content.String()
		}
		s.mu.Unlock()

		if onDelta != nil {
			onDelta(delta)
		}
		return true
	})

	var reason models.StopReason
	var resultErr error
	switch {
	case createErr != nil:
		return "", createErr
	case s.isStopped():
		reason = models.StopReasonUserStopped
	case streamErr != nil:
		logging.Logger.Error().Err(streamErr).Str("parent_id", parentID).Msg("fail GenerateResponse")
		reason = models.StopReasonError
		resultErr = apperr.GenerationFailed(streamErr)
	default:
		reason = MapFinishReason(finishReason)
	}

	if assistantID == "" {
		return content.String(), resultErr
	}
	if err := s.finishAssistant(ctx, assistantID, reason); err != nil && resultErr == nil {
		resultErr = err
	}
	return content.String(), resultErr
}

func (s *ConversationService) finishAssistant(ctx context.Context, nodeID string, reason models.StopReason) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	node, ok := s.nodes[nodeID]
	if !ok {
		return nil
	}
	node.StopReason = reason
	position := 0
	if parent, ok := s.nodes[node.ParentID]; ok {
		position = indexOf(parent.ChildIDs, nodeID)
	}
	if err := s.repo.SaveNodes(ctx, s.conversation.ID, []*models.ChatNodeRecord{toNodeRecord(node, position)}); err != nil {
		logging.Logger.Error().Err(err).Str("node_id", nodeID).Msg("fail finishAssistant")
		return apperr.Unavailable(err, "save response")
	}
	if err := s.saveHeader(ctx, true); err != nil {
		return apperr.Unavailable(err, "save response")
	}
	return nil
}

func (s *ConversationService) beginGeneration(ctx context.Context) (context.Context, error) {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	if s.generating {
		return nil, apperr.ErrBusy
	}
	genCtx, cancel := context.WithCancel(ctx)
	s.generating = true
	s.stopped = false
	s.cancel = cancel
	return genCtx, nil
}

func (s *ConversationService) endGeneration() {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
	s.generating = false
	s.cancel = nil
}

func (s *ConversationService) isStopped() bool {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	return s.stopped
}

// StopGeneration asks the running generation to stop. It returns at once.
func (s *ConversationService) StopGeneration() {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	if !s.generating {
		return
	}
	s.stopped = true
	if s.cancel != nil {
		s.cancel()
	}
}

// IsGenerating reports whether a generation is in flight.
func (s *ConversationService) IsGenerating() bool {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	return s.generating
}

// DeleteNode removes a node and its whole subtree. The root cannot be
// deleted. When the current node is removed its parent becomes current.
func (s *ConversationService) DeleteNode(ctx context.Context, nodeID string) error {
	if s.IsGenerating() {
		return apperr.ErrBusy
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	node, ok := s.nodes[nodeID]
	if !ok {
		return apperr.NodeNotFound(nodeID)
	}
	if node.ParentID == "" || nodeID == s.conversation.RootNodeID {
		return apperr.Invalid("the root message cannot be deleted")
	}

	removed := s.subtree(nodeID)
	if err := s.repo.DeleteNodes(ctx, s.conversation.ID, removed); err != nil {
		logging.Logger.Error().Err(err).Str("node_id", nodeID).Msg("fail DeleteNode")
		return apperr.Unavailable(err, "delete node")
	}

	parent := s.nodes[node.ParentID]
	parent.ChildIDs = removeID(parent.ChildIDs, nodeID)
	gone := make(map[string]bool, len(removed))
	for _, id := range removed {
		gone[id] = true
		delete(s.nodes, id)
	}
	if gone[s.conversation.CurrentNodeID] {
		s.conversation.CurrentNodeID = parent.ID
	}

	// siblings after the removed node shift one position left
	var shifted []*models.ChatNodeRecord
	for i, id := range parent.ChildIDs {
		if sibling, ok := s.nodes[id]; ok {
			shifted = append(shifted, toNodeRecord(sibling, i))
		}
	}
	if err := s.repo.SaveNodes(ctx, s.conversation.ID, shifted); err != nil {
		logging.Logger.Error().Err(err).Str("node_id", nodeID).Msg("fail DeleteNode")
		return apperr.Unavailable(err, "delete node")
	}
	if err := s.saveHeader(ctx, true); err != nil {
		return apperr.Unavailable(err, "delete node")
	}
	logging.Logger.Info().Str("node_id", nodeID).Int("removed", len(removed)).Msg("node deleted")
	return nil
}

// subtree lists id and all of its descendants, breadth first. Caller holds s.mu.
func (s *ConversationService) subtree(id string) []string {
	var res []string
	queue := []string{id}
	seen := make(map[string]bool)
	for len(queue) > 0 {
		curr := queue[0]
		queue = queue[1:]
		if seen[curr] {
			continue
		}
		seen[curr] = true
		res = append(res, curr)
		if node, ok := s.nodes[curr]; ok {
			queue = append(queue, node.ChildIDs...)
		}
	}
	return res
}

// GetTree returns the whole loaded tree, built breadth first from the root.
func (s *ConversationService) GetTree() (*models.ChatTreeNode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.conversation == nil {
		return nil, apperr.Unavailable(errors.New("no conversation loaded"), "get tree")
	}
	rootNode, ok := s.nodes[s.conversation.RootNodeID]
	if !ok {
		return nil, apperr.NodeNotFound(s.conversation.RootNodeID)
	}
	root := toTreeNode(rootNode)
	queue := []*models.ChatTreeNode{root}
	for len(queue) > 0 {
		curr := queue[0]
		queue = queue[1:]
		for _, childID := range s.nodes[curr.ID].ChildIDs {
			child, ok := s.nodes[childID]
			if !ok {
				continue
			}
			childTree := toTreeNode(child)
			curr.Children = append(curr.Children, childTree)
			queue = append(queue, childTree)
		}
	}
	return root, nil
}

func toTreeNode(n *models.ConversationNode) *models.ChatTreeNode {
	return &models.ChatTreeNode{
		ID:         n.ID,
		Role:       n.Role,
		Content:    n.Content,
		StopReason: n.StopReason,
		Children:   []*models.ChatTreeNode{},
	}
}

func (s *ConversationService) GetModels(ctx context.Context) ([]string, error) {
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, err
	}
	ids, err := s.generator.ListModels(ctx, settings)
	if err != nil {
		return nil, apperr.Unavailable(err, "list models")
	}
	return ids, nil
}

// saveHeader persists the conversation header. Caller holds s.mu.
func (s *ConversationService) saveHeader(ctx context.Context, touch bool) error {
	if touch {
		s.conversation.UpdatedAt = s.now()
	}
	if err := s.repo.UpdateConversation(ctx, s.conversation); err != nil {
		logging.Logger.Error().Err(err).Str("conversation_id", s.conversation.ID).Msg("fail saveHeader")
		return err
	}
	return nil
}

func toNodeRecord(n *models.ConversationNode, position int) *models.ChatNodeRecord {
	return &models.ChatNodeRecord{
		ID:         n.ID,
		ParentID:   n.ParentID,
		Position:   position,
		Role:       string(n.Role),
		Content:    n.Content,
		StopReason: string(n.StopReason),
		CreatedAt:  n.Timestamp,
	}
}

func fromNodeRecord(r *models.ChatNodeRecord) *models.ConversationNode {
	reason := models.StopReason(r.StopReason)
	if reason == "" {
		reason = models.StopReasonNone
	}
	return &models.ConversationNode{
		ID:         r.ID,
		ParentID:   r.ParentID,
		ChildIDs:   []string{},
		Role:       models.Role(r.Role),
		Content:    r.Content,
		Timestamp:  r.CreatedAt,
		StopReason: reason,
	}
}

// titleFrom derives a title from a first message, without inline markup.
func titleFrom(text string) string {
	title := strings.Join(strings.Fields(markdown.PlainText(markdown.Tokenize(text))), " ")
	if utf8.RuneCountInString(title) <= maxTitleRunes {
		return title
	}
	runes := []rune(title)
	return string(runes[:maxTitleRunes]) + "…"
}

func indexOf(ids []string, id string) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}

func removeID(ids []string, id string) []string {
	res := make([]string, 0, len(ids))
	for _, v := range ids {
		if v != id {
			res = append(res, v)
		}
	}
	return res
}
