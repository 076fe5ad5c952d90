package handlers

import (
	"github.com/gofiber/fiber/v2"

	"go_branch_chat/models"
	"go_branch_chat/pkg/apperr"
)

func (h *ChatHandler) ListConversations(c *fiber.Ctx) error {
	list, err := h.conversations.ListConversations(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	current, _ := h.conversations.CurrentConversation()
	return c.JSON(fiber.Map{
		"current":       current.ID,
		"conversations": list,
	})
}

func (h *ChatHandler) CreateConversation(c *fiber.Ctx) error {
	var req models.ConversationTitleRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return respondError(c, apperr.Invalid(err.Error()))
		}
	}
	if h.chat.Streaming() {
		return respondError(c, apperr.ErrBusy)
	}
	if _, err := h.conversations.CreateConversation(c.UserContext(), req.Title); err != nil {
		return respondError(c, err)
	}
	if err := h.chat.Refresh(); err != nil {
		return respondError(c, err)
	}
	return h.pathResponse(c, fiber.StatusCreated)
}

func (h *ChatHandler) LoadConversation(c *fiber.Ctx) error {
	if h.chat.Streaming() {
		return respondError(c, apperr.ErrBusy)
	}
	if err := h.conversations.LoadConversation(c.UserContext(), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	if err := h.chat.Refresh(); err != nil {
		return respondError(c, err)
	}
	return h.pathResponse(c, fiber.StatusOK)
}

func (h *ChatHandler) RenameConversation(c *fiber.Ctx) error {
	var req models.ConversationTitleRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, apperr.Invalid(err.Error()))
	}
	if err := h.conversations.RenameConversation(c.UserContext(), c.Params("id"), req.Title); err != nil {
		return respondError(c, err)
	}
	return h.ListConversations(c)
}

func (h *ChatHandler) DeleteConversation(c *fiber.Ctx) error {
	if h.chat.Streaming() {
		return respondError(c, apperr.ErrBusy)
	}
	if err := h.conversations.DeleteConversation(c.UserContext(), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	if err := h.chat.Refresh(); err != nil {
		return respondError(c, err)
	}
	return h.ListConversations(c)
}
