package server

import (
	"context"

	"harfzaar/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// BazmWebSocketHandler handles GET /api/ws/bazm.
// Frames are JSON {event, data}: join_room, send_message and typing in;
// receive_message, user_typing and error out.
// @Summary Bazm realtime socket
// @Tags chat
// @Security BearerAuth
// @Param token query string false "Access token when the Authorization header cannot be set"
// @Success 101
// @Failure 401 {object} models.ErrorResponse
// @Failure 426 {object} models.ErrorResponse
// @Router /ws/bazm [get]
func (s *Server) BazmWebSocketHandler() fiber.Handler {
	upgrade := websocket.New(func(conn *websocket.Conn) {
		userID, _ := conn.Locals(localUserID).(string)
		if userID == "" {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"error","data":{"message":"unauthorized"}}`))
			_ = conn.Close()
			return
		}

		client, err := s.bazmHub.Register(userID, conn)
		if err != nil {
			middleware.Logger.WarnContext(context.Background(), "bazm register failed", "user_id", userID, "error", err)
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"error","data":{"message":"`+err.Error()+`"}}`))
			_ = conn.Close()
			return
		}

		go client.WritePump()
		client.ReadPump()
	})

	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return c.Status(fiber.StatusUpgradeRequired).JSON(fiber.Map{
				"error": "websocket upgrade required",
			})
		}
		return upgrade(c)
	}
}
