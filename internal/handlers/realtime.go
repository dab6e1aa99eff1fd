package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/maintrack/backend/internal/middleware"
	"github.com/maintrack/backend/internal/realtime"
	"github.com/maintrack/backend/internal/utils"
	"github.com/maintrack/backend/pkg/logger"
	"github.com/maintrack/backend/pkg/response"
)

// SnapshotSource produces the frame sent to a client right after it connects.
type SnapshotSource interface {
	SnapshotMessage(ctx context.Context) ([]byte, error)
}

// RealtimeHandler upgrades authenticated connections and registers them with the hub.
type RealtimeHandler struct {
	hub      *realtime.Hub
	snapshot SnapshotSource
	upgrader websocket.Upgrader
}

// NewRealtimeHandler builds the handler. snapshot may be nil when no database is configured.
func NewRealtimeHandler(hub *realtime.Hub, snapshot SnapshotSource, origins *middleware.OriginPolicy) *RealtimeHandler {
	return &RealtimeHandler{
		hub:      hub,
		snapshot: snapshot,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return origins.Allowed(r.Header.Get("Origin"))
			},
		},
	}
}

// Stream handles the WebSocket channel for dashboard updates
// GET /ws?token=
func (h *RealtimeHandler) Stream(c *gin.Context) {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		token, _ = middleware.BearerToken(c)
	}
	if token == "" {
		response.Unauthorized(c, "Missing token")
		return
	}
	claims, err := utils.ParseToken(token)
	if err != nil {
		response.Unauthorized(c, "Invalid or expired token")
		return
	}
	userID, _ := claims.UserID()

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// the upgrader has already written the HTTP error
		logger.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := realtime.NewClient(h.hub, conn, userID)
	h.hub.Register(client)
	logger.Debug().Str("client_id", client.ID).Uint("user_id", userID).Msg("real-time client connected")

	if h.snapshot != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		msg, err := h.snapshot.SnapshotMessage(ctx)
		cancel()
		if err != nil {
			logger.Warn().Err(err).Msg("initial dashboard snapshot failed")
		} else {
			h.hub.SendTo(client, msg)
		}
	}

	go client.WritePump()
	client.ReadPump()
}
