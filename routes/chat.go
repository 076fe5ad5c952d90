package routes

import (
	"github.com/gofiber/fiber/v2"

	"go_branch_chat/handlers"
)

func RegisterChatRoutes(app *fiber.App, chatHandler *handlers.ChatHandler) {
	chat := app.Group("api/chat")
	chat.Get("/path", chatHandler.GetPath)
	chat.Post("/refresh", chatHandler.Refresh)
	chat.Get("/tree", chatHandler.GetTree)
	chat.Post("/messages", chatHandler.SendMessage)
	chat.Put("/messages/:node_id", chatHandler.EditMessage)
	chat.Delete("/messages/:node_id", chatHandler.DeleteMessage)
	chat.Post("/messages/:node_id/regenerate", chatHandler.Regenerate)
	chat.Post("/messages/:node_id/variant", chatHandler.SwitchVariant)
	chat.Post("/messages/:node_id/activate", chatHandler.SwitchToNode)
	chat.Post("/stop", chatHandler.Stop)
	chat.Post("/jump", chatHandler.Jump)
	chat.Post("/export", chatHandler.Export)

	chat.Get("/settings", chatHandler.GetSettings)
	chat.Put("/settings", chatHandler.SaveSettings)
	chat.Get("/models", chatHandler.GetModels)

	conversations := app.Group("api/conversations")
	conversations.Get("/", chatHandler.ListConversations)
	conversations.Post("/", chatHandler.CreateConversation)
	conversations.Post("/:id/load", chatHandler.LoadConversation)
	conversations.Patch("/:id", chatHandler.RenameConversation)
	conversations.Delete("/:id", chatHandler.DeleteConversation)

	app.Post("api/markdown/render", handlers.RenderMarkdown)
}
