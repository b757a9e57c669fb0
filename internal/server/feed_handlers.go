package server

import (
	"errors"
	"log/slog"

	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/notifications"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// RequireWebSocketUpgrade rejects plain HTTP requests to websocket routes.
func (s *Server) RequireWebSocketUpgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return models.RespondWithError(c, fiber.StatusUpgradeRequired,
			errors.New("websocket upgrade required"))
	}
	return c.Next()
}

// FeedHandler handles GET /ws/feed
// @Summary Live post feed
// @Description Websocket stream of post_created, post_updated and post_deleted events
// @Tags feed
// @Success 101
// @Failure 426 {object} models.ErrorResponse
// @Router /ws/feed [get]
func (s *Server) FeedHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		client, err := s.feedHub.Register(conn)
		if err != nil {
			if errors.Is(err, notifications.ErrFeedFull) {
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseTryAgainLater, err.Error()))
			}
			middleware.Logger.Warn("feed connection rejected", slog.String("error", err.Error()))
			_ = conn.Close()
			return
		}

		middleware.Logger.Debug("feed client connected", slog.Int("clients", s.feedHub.Count()))

		go client.WritePump()
		client.ReadPump()
	})
}
