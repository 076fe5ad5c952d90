package handlers

import (
	"context"
	"encoding/json"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"go_branch_chat/pkg/logging"
	"go_branch_chat/platform/events"
)

type WSHandler struct {
	eventPublisher events.Publisher
}

func NewWSHandler(eventPublisher events.Publisher) *WSHandler {
	return &WSHandler{eventPublisher: eventPublisher}
}

func (h *WSHandler) WebSocketUpgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return c.Status(fiber.StatusUpgradeRequired).JSON(fiber.Map{"error": "Not a websocket request"})
}

// HandleChatEvents streams chat events (deltas, completion, notices, path
// changes, jumps) to one client until it disconnects.
func (h *WSHandler) HandleChatEvents(c *websocket.Conn) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	eventChan, err := h.eventPublisher.Subscribe(ctx)
	if err != nil {
		logging.Logger.Error().Err(err).Msg("Failed to subscribe to events")
		_ = c.WriteMessage(websocket.TextMessage, []byte(`{"error":"Failed to subscribe"}`))
		return
	}
	logging.Logger.Info().Str("remote", c.RemoteAddr().String()).Msg("WebSocket connected")

	if err := c.WriteJSON(fiber.Map{
		"type":    "connected",
		"message": "WebSocket connected successfully",
	}); err != nil {
		return
	}

	// a read error means the client went away
	go func() {
		defer cancel()
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case event, ok := <-eventChan:
			if !ok || event == nil {
				return
			}
			data, err := json.Marshal(event)
			if err != nil {
				continue
			}
			if err := c.WriteMessage(websocket.TextMessage, data); err != nil {
				logging.Logger.Error().Err(err).Msg("Failed to send WebSocket message")
				return
			}
			logging.Logger.Debug().Str("type", string(event.Type)).Msg("Event sent to client")
		case <-ctx.Done():
			return
		}
	}
}
