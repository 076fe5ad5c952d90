package routes

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"go_branch_chat/handlers"
)

func SetupWebSocketRoutes(app *fiber.App, wsHandler *handlers.WSHandler) {
	ws := app.Group("/ws")

	ws.Use("/chat", wsHandler.WebSocketUpgrade)
	ws.Get("/chat", websocket.New(wsHandler.HandleChatEvents))
}
