package bootstrap

import (
	"github.com/gofiber/fiber/v2"

	"go_branch_chat/middleware"
	"go_branch_chat/routes"
)

// NewServer builds the fiber app with middleware and every route mounted.
func (a *App) NewServer() *fiber.App {
	app := fiber.New(fiber.Config{AppName: "branch-chat"})
	app.Use(middleware.Logger(a.Cfg.AppEnv))
	app.Use(middleware.CORS(a.Cfg.AllowOrigins))

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "streaming": a.Services.ChatService.Streaming()})
	})
	routes.RegisterChatRoutes(app, a.Handlers.ChatHandler)
	routes.SetupWebSocketRoutes(app, a.Handlers.WSHandler)
	return app
}
