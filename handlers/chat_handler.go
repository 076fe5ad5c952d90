package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"go_branch_chat/models"
	"go_branch_chat/pkg/apperr"
	"go_branch_chat/pkg/logging"
	"go_branch_chat/services"
)

type ChatHandler struct {
	chat          *services.ChatService
	conversations *services.ConversationService
	settings      *services.SettingsService
	export        *services.ExportService
}

func NewChatHandler(chat *services.ChatService, conversations *services.ConversationService, settings *services.SettingsService, export *services.ExportService) *ChatHandler {
	return &ChatHandler{
		chat:          chat,
		conversations: conversations,
		settings:      settings,
		export:        export,
	}
}

func respondError(c *fiber.Ctx, err error) error {
	status := apperr.HTTPStatus(err)
	if status >= fiber.StatusInternalServerError {
		logging.Logger.Error().Err(err).Str("path", c.Path()).Msg("request failed")
	}
	return c.Status(status).JSON(fiber.Map{
		"error":  apperr.Notice(err),
		"detail": err.Error(),
	})
}

func (h *ChatHandler) pathResponse(c *fiber.Ctx, status int) error {
	info, _ := h.conversations.CurrentConversation()
	return c.Status(status).JSON(fiber.Map{
		"conversation": info,
		"streaming":    h.chat.Streaming(),
		"notice":       h.chat.Notice(),
		"nodes":        h.chat.Render(),
	})
}

func (h *ChatHandler) GetPath(c *fiber.Ctx) error {
	return h.pathResponse(c, fiber.StatusOK)
}

// Refresh re-fetches the path, e.g. when the page becomes visible again.
func (h *ChatHandler) Refresh(c *fiber.Ctx) error {
	if err := h.chat.Refresh(); err != nil {
		return respondError(c, err)
	}
	return h.pathResponse(c, fiber.StatusOK)
}

func (h *ChatHandler) SendMessage(c *fiber.Ctx) error {
	var req models.SendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, apperr.Invalid(err.Error()))
	}
	if _, err := h.chat.Send(context.Background(), req.Content); err != nil {
		return respondError(c, err)
	}
	return h.pathResponse(c, fiber.StatusAccepted)
}

func (h *ChatHandler) Regenerate(c *fiber.Ctx) error {
	if _, err := h.chat.Regenerate(c.Params("node_id")); err != nil {
		return respondError(c, err)
	}
	return h.pathResponse(c, fiber.StatusAccepted)
}

func (h *ChatHandler) EditMessage(c *fiber.Ctx) error {
	var req models.SendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, apperr.Invalid(err.Error()))
	}
	gen, err := h.chat.Edit(context.Background(), c.Params("node_id"), req.Content)
	if err != nil {
		return respondError(c, err)
	}
	if gen == nil {
		return h.pathResponse(c, fiber.StatusOK)
	}
	return h.pathResponse(c, fiber.StatusAccepted)
}

func (h *ChatHandler) DeleteMessage(c *fiber.Ctx) error {
	if h.chat.Streaming() {
		return respondError(c, apperr.ErrBusy)
	}
	if err := h.conversations.DeleteNode(c.UserContext(), c.Params("node_id")); err != nil {
		return respondError(c, err)
	}
	if err := h.chat.Refresh(); err != nil {
		return respondError(c, err)
	}
	return h.pathResponse(c, fiber.StatusOK)
}

func (h *ChatHandler) SwitchVariant(c *fiber.Ctx) error {
	var req models.SwitchVariantRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, apperr.Invalid(err.Error()))
	}
	if err := h.chat.SwitchVariant(c.Params("node_id"), req.Direction); err != nil {
		return respondError(c, err)
	}
	return h.pathResponse(c, fiber.StatusOK)
}

func (h *ChatHandler) SwitchToNode(c *fiber.Ctx) error {
	if err := h.chat.SwitchToNode(c.Params("node_id")); err != nil {
		return respondError(c, err)
	}
	return h.pathResponse(c, fiber.StatusOK)
}

func (h *ChatHandler) Stop(c *fiber.Ctx) error {
	h.chat.Stop()
	return c.SendStatus(fiber.StatusAccepted)
}

func (h *ChatHandler) Jump(c *fiber.Ctx) error {
	var req models.JumpRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, apperr.Invalid(err.Error()))
	}
	return c.JSON(fiber.Map{
		"node_id": req.NodeID,
		"nodes":   h.chat.Jump(req.NodeID),
	})
}

func (h *ChatHandler) GetTree(c *fiber.Ctx) error {
	tree, err := h.conversations.GetTree()
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(tree)
}

func (h *ChatHandler) GetSettings(c *fiber.Ctx) error {
	settings, err := h.settings.Get(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	settings.APIKey = services.MaskAPIKey(settings.APIKey)
	return c.JSON(settings)
}

func (h *ChatHandler) SaveSettings(c *fiber.Ctx) error {
	var req models.LLMSettings
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, apperr.Invalid(err.Error()))
	}
	saved, err := h.settings.Save(c.UserContext(), req)
	if err != nil {
		return respondError(c, err)
	}
	saved.APIKey = services.MaskAPIKey(saved.APIKey)
	return c.JSON(saved)
}

func (h *ChatHandler) GetModels(c *fiber.Ctx) error {
	ids, err := h.conversations.GetModels(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"models": ids})
}

func (h *ChatHandler) Export(c *fiber.Ctx) error {
	info, _ := h.conversations.CurrentConversation()
	resp, err := h.export.Export(c.UserContext(), info.Title, h.chat.DisplayPath())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(resp)
}
