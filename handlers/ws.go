package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/olahol/melody"

	"github.com/LovationAdmin/finance-api/events"
	"github.com/LovationAdmin/finance-api/middleware"
)

const sessionUserKey = "user_id"

// WSHandler pushes resource events to the websocket sessions of the
// user that owns the resource. It satisfies events.Publisher.
type WSHandler struct {
	M      *melody.Melody
	logger *slog.Logger
}

func NewWSHandler(logger *slog.Logger) *WSHandler {
	m := melody.New()
	m.Config.MaxMessageSize = 1024 * 1024

	// Keep-alive for proxies that drop idle connections.
	m.Config.PingPeriod = 30 * time.Second
	m.Config.PongWait = 60 * time.Second

	m.HandleConnect(func(s *melody.Session) {
		userID, _ := s.Get(sessionUserKey)
		logger.Debug("websocket connected", "user_id", userID)
	})
	m.HandleDisconnect(func(s *melody.Session) {
		userID, _ := s.Get(sessionUserKey)
		logger.Debug("websocket disconnected", "user_id", userID)
	})
	m.HandleError(func(s *melody.Session, err error) {
		logger.Warn("websocket error", "error", err)
	})

	return &WSHandler{M: m, logger: logger}
}

// HandleWS upgrades an authenticated request. The session is tagged with
// the caller's id before the connect handler runs.
func (h *WSHandler) HandleWS(c *gin.Context) {
	keys := map[string]any{sessionUserKey: middleware.GetUserID(c)}
	if err := h.M.HandleRequestWithKeys(c.Writer, c.Request, keys); err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
	}
}

func (h *WSHandler) Publish(_ context.Context, e events.Event) error {
	msg, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return h.M.BroadcastFilter(msg, func(s *melody.Session) bool {
		id, ok := s.Get(sessionUserKey)
		return ok && id == e.UserID
	})
}

func (h *WSHandler) Close() error {
	return h.M.Close()
}
