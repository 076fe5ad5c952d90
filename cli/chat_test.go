package cli

import (
	"context"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go_branch_chat/config"
	"go_branch_chat/models"
	"go_branch_chat/platform/cache"
	"go_branch_chat/platform/events"
	"go_branch_chat/render"
	"go_branch_chat/repository"
	"go_branch_chat/services"
)

// scriptedGenerator streams one scripted reply per call. When release is set
// it blocks after the deltas until released or cancelled.
type scriptedGenerator struct {
	mu      sync.Mutex
	replies [][]string
	release chan struct{}
}

func (g *scriptedGenerator) Stream(ctx context.Context, _ models.LLMSettings, _ []models.ConversationNode, onDelta func(string) bool) (string, error) {
	g.mu.Lock()
	deltas := []string{"ok"}
	if len(g.replies) > 0 {
		deltas = g.replies[0]
		g.replies = g.replies[1:]
	}
	release := g.release
	g.mu.Unlock()

	for _, d := range deltas {
		if !onDelta(d) {
			return "", nil
		}
	}
	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return "stop", nil
}

func (g *scriptedGenerator) ListModels(context.Context, models.LLMSettings) ([]string, error) {
	return []string{"m"}, nil
}

func newTestChatModel(t *testing.T, gen services.Generator) (*chatModel, <-chan *models.ChatEvent) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	bus := events.NewLocalPublisher()
	t.Cleanup(func() { _ = bus.Close() })
	sub, err := bus.Subscribe(ctx)
	require.NoError(t, err)

	cfg := &config.Config{LLMModel: "m", LLMMaxTokens: 64, LLMTopP: 1, LLMSystemPrompt: "sys"}
	store := repository.NewMemoryStore()
	settings := services.NewSettingsService(store, cache.NewCacheService(cache.InitL1Cache(), nil), cfg)
	conv := services.NewConversationService(store, settings, gen)
	require.NoError(t, conv.Initialize(ctx))
	chat := services.NewChatService(conv, bus, 10*time.Millisecond)
	require.NoError(t, chat.Init())

	return newChatModel(ctx, chat, conv, render.NewRenderer(nil, 40), sub), sub
}

// feedUntil passes events to the model until one of the wanted type arrives
// and returns the command produced for it.
func feedUntil(t *testing.T, m *chatModel, sub <-chan *models.ChatEvent, want models.ChatEventType, check func()) tea.Cmd {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev := <-sub:
			_, cmd := m.Update(chatEventMsg{event: ev})
			if check != nil {
				check()
			}
			if ev.Type == want {
				return cmd
			}
		case <-timeout:
			t.Fatalf("no %s event", want)
			return nil
		}
	}
}

func TestChatModelStreamsThenPrintsReply(t *testing.T) {
	gen := &scriptedGenerator{replies: [][]string{{"Hel", "lo!"}}, release: make(chan struct{})}
	m, sub := newTestChatModel(t, gen)

	done, ok := m.run("hi")().(commandDoneMsg)
	require.True(t, ok)
	require.NoError(t, done.err)

	feedUntil(t, m, sub, models.EventDelta, nil)
	feedUntil(t, m, sub, models.EventDelta, nil)
	assert.Equal(t, "Hello!", m.live.String())
	assert.Contains(t, m.View(), "Hello!")
	assert.Contains(t, m.View(), "Ctrl+C to stop")

	close(gen.release)
	cmd := feedUntil(t, m, sub, models.EventCompleted, nil)
	assert.NotNil(t, cmd)
	assert.Zero(t, m.live.Len())
	assert.NotContains(t, m.View(), "Hello!")
	assert.Contains(t, m.lastReply(), "Hello!")
	assert.Contains(t, m.lastReply(), "Assistant")
}

func TestChatModelCtrlCStopsThenQuits(t *testing.T) {
	gen := &scriptedGenerator{replies: [][]string{{"part"}}, release: make(chan struct{})}
	m, sub := newTestChatModel(t, gen)

	_, ok := m.run("hi")().(commandDoneMsg)
	require.True(t, ok)
	feedUntil(t, m, sub, models.EventDelta, nil)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	assert.Nil(t, cmd, "the first Ctrl+C only stops the reply")
	feedUntil(t, m, sub, models.EventStopped, nil)
	assert.Contains(t, m.lastReply(), "Stopped by user")
	assert.False(t, m.chat.Streaming())

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestChatModelCommands(t *testing.T) {
	gen := &scriptedGenerator{replies: [][]string{{"first"}, {"second"}}}
	m, sub := newTestChatModel(t, gen)

	out, err := m.handle("/help")
	require.NoError(t, err)
	assert.Contains(t, out, "/regen")

	_, err = m.handle("/bogus")
	assert.Error(t, err)
	_, err = m.handle("/regen")
	assert.Error(t, err, "nothing to regenerate yet")

	_, err = m.handle("hi")
	require.NoError(t, err)
	feedUntil(t, m, sub, models.EventCompleted, nil)

	_, err = m.handle("/regen")
	require.NoError(t, err)
	feedUntil(t, m, sub, models.EventCompleted, nil)
	assert.Contains(t, m.lastReply(), "second")
	assert.Contains(t, m.lastReply(), "2/2")

	out, err = m.handle("/prev")
	require.NoError(t, err)
	assert.Contains(t, out, "first")

	out, err = m.handle("/edit hi")
	require.NoError(t, err)
	assert.Equal(t, "unchanged", out)

	out, err = m.handle("/list")
	require.NoError(t, err)
	assert.Contains(t, out, "hi")
}

func TestChatModelShowsNoticeOnError(t *testing.T) {
	m, _ := newTestChatModel(t, &scriptedGenerator{})
	_, cmd := m.Update(commandDoneMsg{err: assert.AnError})
	assert.Nil(t, cmd)
	assert.Contains(t, m.View(), assert.AnError.Error())
}
