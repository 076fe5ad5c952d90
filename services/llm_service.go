package services

import (
	"context"
	"io"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/sashabaranov/go-openai"

	"go_branch_chat/models"
	"go_branch_chat/pkg/logging"
)

// Generator streams one chat completion. onDelta is called in arrival order
// for every non-empty content delta; returning false stops consumption.
// The returned finish reason is the provider's raw value, empty when the
// stream ended without one.
type Generator interface {
	Stream(ctx context.Context, settings models.LLMSettings, messages []models.ConversationNode, onDelta func(string) bool) (string, error)
	ListModels(ctx context.Context, settings models.LLMSettings) ([]string, error)
}

// OpenAIGenerator talks to any OpenAI compatible endpoint.
type OpenAIGenerator struct{}

func NewOpenAIGenerator() *OpenAIGenerator {
	return &OpenAIGenerator{}
}

func (g *OpenAIGenerator) client(settings models.LLMSettings) *openai.Client {
	config := openai.DefaultConfig(settings.APIKey)
	if settings.BaseURL != "" {
		config.BaseURL = strings.TrimSuffix(settings.BaseURL, "/")
	}
	return openai.NewClientWithConfig(config)
}

func toChatMessages(nodes []models.ConversationNode) []openai.ChatCompletionMessage {
	res := make([]openai.ChatCompletionMessage, 0, len(nodes))
	for _, n := range nodes {
		if n.Content == "" {
			continue
		}
		role := openai.ChatMessageRoleUser
		switch n.Role {
		case models.RoleAssistant:
			role = openai.ChatMessageRoleAssistant
		case models.RoleSystem:
			role = openai.ChatMessageRoleSystem
		}
		res = append(res, openai.ChatCompletionMessage{Role: role, Content: n.Content})
	}
	return res
}

func (g *OpenAIGenerator) Stream(ctx context.Context, settings models.LLMSettings, messages []models.ConversationNode, onDelta func(string) bool) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       settings.Model,
		Messages:    toChatMessages(messages),
		MaxTokens:   settings.MaxTokens,
		Temperature: float32(settings.Temperature),
		TopP:        float32(settings.TopP),
		Stream:      true,
	}
	logging.Logger.Debug().
		Str("model", settings.Model).
		Str("api_key", MaskAPIKey(settings.APIKey)).
		Int("messages", len(req.Messages)).
		Msg("CreateChatCompletionStream")

	stream, err := g.client(settings).CreateChatCompletionStream(ctx, req)
	if err != nil {
		logging.Logger.Error().Err(err).Msg("fail CreateChatCompletionStream")
		return "", errors.Wrap(err, "create chat completion stream")
	}
	defer stream.Close()

	finishReason := ""
	for {
		response, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return finishReason, nil
		}
		if err != nil {
			logging.Logger.Error().Err(err).Msg("fail stream.Recv")
			return finishReason, errors.Wrap(err, "receive chat completion delta")
		}
		if len(response.Choices) == 0 {
			continue
		}
		choice := response.Choices[0]
		if choice.FinishReason != "" {
			finishReason = string(choice.FinishReason)
		}
		if choice.Delta.Content == "" {
			continue
		}
		if !onDelta(choice.Delta.Content) {
			return finishReason, nil
		}
	}
}

func (g *OpenAIGenerator) ListModels(ctx context.Context, settings models.LLMSettings) ([]string, error) {
	list, err := g.client(settings).ListModels(ctx)
	if err != nil {
		logging.Logger.Error().Err(err).Msg("fail ListModels")
		return nil, errors.Wrap(err, "list models")
	}
	ids := make([]string, 0, len(list.Models))
	for _, m := range list.Models {
		ids = append(ids, m.ID)
	}
	sort.Strings(ids)
	return ids, nil
}

// MapFinishReason converts a provider finish reason into a stop reason.
func MapFinishReason(reason string) models.StopReason {
	switch reason {
	case "":
		return models.StopReasonDone
	case string(openai.FinishReasonStop):
		return models.StopReasonStop
	case string(openai.FinishReasonLength):
		return models.StopReasonLength
	case string(openai.FinishReasonContentFilter):
		return models.StopReasonContentFilter
	default:
		return models.StopReasonError
	}
}

// MaskAPIKey hides all but the edges of a key for logs and responses.
func MaskAPIKey(apiKey string) string {
	if len(apiKey) <= 8 {
		return "***"
	}
	return apiKey[:4] + "***" + apiKey[len(apiKey)-4:]
}
