package handlers

import (
	"log"

	"github.com/gin-gonic/gin"

	"github.com/msu-robotics/uart-bridge/internal/ws"
)

// WebSocketHandler exposes the /ws attach endpoint.
type WebSocketHandler struct {
	wsHandler *ws.Handler
}

// NewWebSocketHandler creates a new WebSocketHandler.
func NewWebSocketHandler(wsHandler *ws.Handler) *WebSocketHandler {
	return &WebSocketHandler{wsHandler: wsHandler}
}

// Attach handles GET /ws - upgrades the connection and attaches the client
// to the bridge. Attaching succeeds even while the serial link is down; the
// initial info message reports connected:false in that case.
func (h *WebSocketHandler) Attach(c *gin.Context) {
	if err := h.wsHandler.HandleConnection(c.Writer, c.Request); err != nil {
		log.Printf("ws: upgrade failed: %v", err)
	}
}

// RegisterRoutes registers the WebSocket route on a Gin engine.
func (h *WebSocketHandler) RegisterRoutes(r *gin.Engine) {
	r.GET("/ws", h.Attach)
}
