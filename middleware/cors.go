package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"

	"go_branch_chat/pkg/logging"
)

func CORS(allowOrigins string) fiber.Handler {
	logging.Logger.Info().Str("allow_origins", allowOrigins).Msg("CORS configured")
	return cors.New(cors.Config{
		AllowOrigins: allowOrigins,
		AllowHeaders: "Origin, Content-Type, Accept",
		AllowMethods: "GET,POST,PUT,PATCH,DELETE,OPTIONS",
	})
}
