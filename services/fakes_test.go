package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"go_branch_chat/config"
	"go_branch_chat/models"
	"go_branch_chat/platform/cache"
	"go_branch_chat/repository"
)

// fakeGenerator replays scripted replies. Each call consumes the next entry
// of replies, falling back to deltas once they run out. hold blocks the
// producer even after cancellation.
type fakeGenerator struct {
	mu       sync.Mutex
	replies  [][]string
	deltas   []string
	finish   string
	err      error
	release  chan struct{}
	hold     chan struct{}
	calls    int
	messages []models.ConversationNode
	models   []string
}

func (g *fakeGenerator) Stream(ctx context.Context, _ models.LLMSettings, messages []models.ConversationNode, onDelta func(string) bool) (string, error) {
	g.mu.Lock()
	g.calls++
	g.messages = messages
	deltas := g.deltas
	if len(g.replies) > 0 {
		deltas = g.replies[0]
		g.replies = g.replies[1:]
	}
	g.mu.Unlock()

	for _, d := range deltas {
		if !onDelta(d) {
			return g.finish, nil
		}
	}
	if g.hold != nil {
		// keeps producing past a cancelled context
		<-g.hold
	}
	if g.release != nil {
		select {
		case <-g.release:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return g.finish, g.err
}

func (g *fakeGenerator) ListModels(context.Context, models.LLMSettings) ([]string, error) {
	return g.models, nil
}

func (g *fakeGenerator) lastMessages() []models.ConversationNode {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.messages
}

func testConfig() *config.Config {
	return &config.Config{
		LLMModel:        "test-model",
		LLMMaxTokens:    256,
		LLMTemperature:  0.7,
		LLMTopP:         1,
		LLMSystemPrompt: "You are a helpful assistant.",
	}
}

func newSettingsService(store repository.SettingsRepository) *SettingsService {
	return NewSettingsService(store, cache.NewCacheService(cache.InitL1Cache(), nil), testConfig())
}

func newConversationService(t *testing.T, gen Generator) (*ConversationService, *repository.MemoryStore) {
	t.Helper()
	store := repository.NewMemoryStore()
	svc := NewConversationService(store, newSettingsService(store), gen)
	require.NoError(t, svc.Initialize(context.Background()))
	return svc, store
}
