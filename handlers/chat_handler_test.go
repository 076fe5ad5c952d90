package handlers_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go_branch_chat/config"
	"go_branch_chat/handlers"
	"go_branch_chat/models"
	"go_branch_chat/platform/cache"
	"go_branch_chat/repository"
	"go_branch_chat/routes"
	"go_branch_chat/services"
)

type echoGenerator struct{}

func (echoGenerator) Stream(_ context.Context, _ models.LLMSettings, messages []models.ConversationNode, onDelta func(string) bool) (string, error) {
	last := messages[len(messages)-1].Content
	for _, part := range []string{"echo: ", last} {
		if !onDelta(part) {
			break
		}
	}
	return "stop", nil
}

func (echoGenerator) ListModels(context.Context, models.LLMSettings) ([]string, error) {
	return []string{"echo-1"}, nil
}

// keyRecorder lists models and remembers the key it was called with.
type keyRecorder struct {
	echoGenerator
	mu  sync.Mutex
	key string
}

func (g *keyRecorder) ListModels(_ context.Context, settings models.LLMSettings) ([]string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.key = settings.APIKey
	return []string{"echo-1"}, nil
}

func (g *keyRecorder) lastKey() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.key
}

func newTestApp(t *testing.T) *fiber.App {
	return newTestAppWith(t, echoGenerator{})
}

func newTestAppWith(t *testing.T, gen services.Generator) *fiber.App {
	t.Helper()
	cfg := &config.Config{LLMModel: "echo-1", LLMMaxTokens: 64, LLMTopP: 1, LLMSystemPrompt: "sys"}
	store := repository.NewMemoryStore()
	settings := services.NewSettingsService(store, cache.NewCacheService(cache.InitL1Cache(), nil), cfg)
	conv := services.NewConversationService(store, settings, gen)
	require.NoError(t, conv.Initialize(context.Background()))
	chat := services.NewChatService(conv, nil, 10*time.Millisecond)
	require.NoError(t, chat.Init())

	app := fiber.New()
	routes.RegisterChatRoutes(app, handlers.NewChatHandler(chat, conv, settings, nil))
	return app
}

func do(t *testing.T, app *fiber.App, method, target, body string) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]any{}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func nodes(body map[string]any) []map[string]any {
	raw, _ := body["nodes"].([]any)
	res := make([]map[string]any, 0, len(raw))
	for _, n := range raw {
		res = append(res, n.(map[string]any))
	}
	return res
}

func TestSendMessageThenPath(t *testing.T) {
	app := newTestApp(t)

	status, body := do(t, app, http.MethodPost, "/api/chat/messages", `{"content":"hi"}`)
	require.Equal(t, fiber.StatusAccepted, status)
	assert.GreaterOrEqual(t, len(nodes(body)), 2)

	require.Eventually(t, func() bool {
		_, body := do(t, app, http.MethodGet, "/api/chat/path", "")
		return body["streaming"] == false && len(nodes(body)) == 3
	}, 2*time.Second, 10*time.Millisecond)

	_, body = do(t, app, http.MethodGet, "/api/chat/path", "")
	list := nodes(body)
	last := list[2]
	assert.Equal(t, "echo: hi", last["content"])
	assert.Equal(t, "assistant", last["role"])
	assert.Equal(t, "stop", last["stop_reason"])
	assert.Equal(t, "1/1", last["variant_label"])
	blocks := last["blocks"].([]any)
	require.Len(t, blocks, 1)
	assert.Equal(t, "paragraph", blocks[0].(map[string]any)["type"])
}

func TestErrorsMapToStatus(t *testing.T) {
	app := newTestApp(t)

	status, body := do(t, app, http.MethodPost, "/api/chat/messages/ghost/activate", "")
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "The selected message no longer exists", body["error"])

	status, _ = do(t, app, http.MethodPost, "/api/chat/messages", `{"content":"   "}`)
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = do(t, app, http.MethodPost, "/api/chat/export", "")
	assert.Equal(t, fiber.StatusServiceUnavailable, status)
}

func TestJumpSlices(t *testing.T) {
	app := newTestApp(t)
	_, body := do(t, app, http.MethodGet, "/api/chat/path", "")
	list := nodes(body)
	require.Len(t, list, 1)

	status, body := do(t, app, http.MethodPost, "/api/chat/jump", `{"node_id":"unknown"}`)
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, nodes(body), 1)
}

func TestConversationsEndpoints(t *testing.T) {
	app := newTestApp(t)

	status, _ := do(t, app, http.MethodPost, "/api/conversations/", `{"title":"Second"}`)
	require.Equal(t, fiber.StatusCreated, status)

	status, body := do(t, app, http.MethodGet, "/api/conversations/", "")
	require.Equal(t, fiber.StatusOK, status)
	list := body["conversations"].([]any)
	require.Len(t, list, 2)
	current := body["current"].(string)
	assert.Equal(t, current, list[0].(map[string]any)["id"])

	status, body = do(t, app, http.MethodPatch, "/api/conversations/"+current, `{"title":"Renamed"}`)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "Renamed", body["conversations"].([]any)[0].(map[string]any)["title"])

	status, body = do(t, app, http.MethodDelete, "/api/conversations/"+current, "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, body["conversations"].([]any), 1)
}

func TestSettingsAndModels(t *testing.T) {
	app := newTestApp(t)

	status, body := do(t, app, http.MethodPut, "/api/chat/settings",
		`{"api_key":"sk-1234567890abcdef","model":"echo-2","max_tokens":32,"temperature":0.5,"top_p":1}`)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "sk-1***cdef", body["api_key"])

	_, body = do(t, app, http.MethodGet, "/api/chat/settings", "")
	assert.Equal(t, "echo-2", body["model"])

	status, _ = do(t, app, http.MethodPut, "/api/chat/settings", `{"model":"","max_tokens":1}`)
	assert.Equal(t, fiber.StatusBadRequest, status)

	_, body = do(t, app, http.MethodGet, "/api/chat/models", "")
	assert.Equal(t, []any{"echo-1"}, body["models"])
}

func TestSettingsRoundTripKeepsKey(t *testing.T) {
	gen := &keyRecorder{}
	app := newTestAppWith(t, gen)

	status, _ := do(t, app, http.MethodPut, "/api/chat/settings",
		`{"api_key":"sk-real-key-1234","model":"echo-1","max_tokens":32,"temperature":0.5,"top_p":1}`)
	require.Equal(t, fiber.StatusOK, status)

	_, body := do(t, app, http.MethodGet, "/api/chat/settings", "")
	assert.Equal(t, "sk-r***1234", body["api_key"])
	body["temperature"] = 0.9
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	status, body = do(t, app, http.MethodPut, "/api/chat/settings", string(raw))
	require.Equal(t, fiber.StatusOK, status)
	assert.InDelta(t, 0.9, body["temperature"], 1e-9)

	status, _ = do(t, app, http.MethodGet, "/api/chat/models", "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "sk-real-key-1234", gen.lastKey())

	status, _ = do(t, app, http.MethodPut, "/api/chat/settings",
		`{"api_key":"","model":"echo-1","max_tokens":32,"temperature":0.5,"top_p":1}`)
	require.Equal(t, fiber.StatusOK, status)
	do(t, app, http.MethodGet, "/api/chat/models", "")
	assert.Equal(t, "sk-real-key-1234", gen.lastKey())

	status, _ = do(t, app, http.MethodPut, "/api/chat/settings",
		`{"api_key":"sk-new-key-5678","model":"echo-1","max_tokens":32,"temperature":0.5,"top_p":1}`)
	require.Equal(t, fiber.StatusOK, status)
	do(t, app, http.MethodGet, "/api/chat/models", "")
	assert.Equal(t, "sk-new-key-5678", gen.lastKey())
}

func TestRenderMarkdown(t *testing.T) {
	app := newTestApp(t)
	status, body := do(t, app, http.MethodPost, "/api/markdown/render", `{"content":"# T\n- a\n- b\n`+"```"+`go\nx"}`)
	require.Equal(t, fiber.StatusOK, status)
	blocks := body["blocks"].([]any)
	require.Len(t, blocks, 3)
	assert.Equal(t, "heading", blocks[0].(map[string]any)["type"])
	assert.Equal(t, "list", blocks[1].(map[string]any)["type"])
	assert.Equal(t, "code", blocks[2].(map[string]any)["type"])
}
