package handlers

import (
	"errors"
	"log/slog"
	"strings"

	"chat-relay/internal/websocket"

	"github.com/gin-gonic/gin"
	gorilla "github.com/gorilla/websocket"
)

type WSHandler struct {
	hub      *websocket.Hub
	upgrader *gorilla.Upgrader
}

func NewWSHandler(hub *websocket.Hub, allowedOrigins []string) *WSHandler {
	return &WSHandler{hub: hub, upgrader: websocket.NewUpgrader(allowedOrigins)}
}

// HandleWebSocket upgrades the request and hands the connection to the hub.
// The token is read from the "token" query parameter or the Authorization
// header. A rejected token closes the socket with a policy-violation frame.
func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		token = strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
	}

	conn, err := websocket.Upgrade(h.upgrader, c.Writer, c.Request)
	if err != nil {
		slog.Warn("WebSocket upgrade failed", "remoteAddr", c.ClientIP(), "error", err)
		return
	}

	client, err := h.hub.OnConnect(websocket.Handshake{
		Token:      token,
		Conn:       conn,
		RemoteAddr: c.ClientIP(),
	})
	if err != nil {
		reason := "server shutting down"
		var authErr *websocket.AuthError
		if errors.As(err, &authErr) {
			reason = "Authentication error"
		}
		websocket.RejectConnection(conn, reason)
		return
	}

	slog.Info("WebSocket connection established", "clientID", client.ID(), "userID", client.UserID(), "remoteAddr", c.ClientIP())
	client.Start()
}
