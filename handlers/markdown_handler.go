package handlers

import (
	"github.com/gofiber/fiber/v2"

	"go_branch_chat/markdown"
	"go_branch_chat/models"
	"go_branch_chat/pkg/apperr"
)

// RenderMarkdown returns the block model of arbitrary markdown. It never
// fails on malformed input.
func RenderMarkdown(c *fiber.Ctx) error {
	var req models.RenderRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, apperr.Invalid(err.Error()))
	}
	return c.JSON(fiber.Map{"blocks": markdown.Parse(req.Content)})
}
