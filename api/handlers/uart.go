// Package handlers provides the administrative HTTP API around the bridge.
package handlers

import (
	"encoding/hex"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/msu-robotics/uart-bridge/internal/config"
	"github.com/msu-robotics/uart-bridge/internal/model"
	"github.com/msu-robotics/uart-bridge/internal/ws"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error details.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// sendError sends an error response with the appropriate status code.
func sendError(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// UARTHandler serves the status, configuration and link-control endpoints.
type UARTHandler struct {
	cfg    *config.Config
	bridge *ws.Service
}

// NewUARTHandler creates a new UARTHandler.
func NewUARTHandler(cfg *config.Config, bridge *ws.Service) *UARTHandler {
	return &UARTHandler{
		cfg:    cfg,
		bridge: bridge,
	}
}

// Root handles GET / - the endpoint directory.
func (h *UARTHandler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"name":        "UART WebSocket Bridge",
		"version":     "1.0.0",
		"description": "Bidirectional relay between a serial device and WebSocket clients",
		"endpoints": gin.H{
			"websocket":      "/ws",
			"status":         "/api/status",
			"uart_info":      "/api/uart/info",
			"uart_reconnect": "/api/uart/reconnect",
			"uart_send":      "/api/uart/send",
			"uart_history":   "/api/uart/history",
			"config":         "/api/config",
		},
	})
}

// Health handles GET /health.
func (h *UARTHandler) Health(c *gin.Context) {
	connected := h.bridge.Link().IsConnected()

	status := "healthy"
	if !connected {
		status = "degraded"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":                status,
		"uart_connected":        connected,
		"websocket_connections": h.bridge.ClientCount(),
	})
}

// Status handles GET /api/status - the full system status.
func (h *UARTHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, model.SystemStatus{
		UART: h.bridge.Link().UARTStatus(),
		WebSocket: model.WebSocketStatus{
			ActiveConnections: h.bridge.ClientCount(),
			PingInterval:      int(h.cfg.WSPingInterval.Seconds()),
			MaxMessageSize:    h.cfg.WSMaxMessageSize,
		},
		Server: model.ServerStatus{
			Host:     h.cfg.HTTPHost,
			Port:     h.cfg.HTTPPort,
			LogLevel: h.cfg.LogLevel,
		},
		Timestamp: time.Now().UTC(),
	})
}

// Info handles GET /api/uart/info - the link status plus timeouts.
func (h *UARTHandler) Info(c *gin.Context) {
	status := h.bridge.Link().UARTStatus()
	c.JSON(http.StatusOK, gin.H{
		"connected":     status.Connected,
		"port":          status.Port,
		"baudrate":      status.BaudRate,
		"bytesize":      status.ByteSize,
		"stopbits":      status.StopBits,
		"parity":        status.Parity,
		"timeout":       h.cfg.UARTReadTimeout.Seconds(),
		"write_timeout": h.cfg.UARTWriteTimeout.Seconds(),
	})
}

// Reconnect handles POST /api/uart/reconnect - closes and reopens the link.
// Connected WebSocket clients are not dropped.
func (h *UARTHandler) Reconnect(c *gin.Context) {
	err := h.bridge.Reconnect()
	status := h.bridge.Link().UARTStatus()

	if err != nil {
		c.JSON(http.StatusOK, model.ReconnectResponse{
			Status:     "error",
			Message:    "failed to reconnect UART: " + err.Error(),
			UARTStatus: status,
		})
		return
	}

	c.JSON(http.StatusOK, model.ReconnectResponse{
		Status:     "success",
		Message:    "UART reconnected",
		UARTStatus: status,
	})
}

// Send handles POST /api/uart/send - forwards a hex-encoded payload to the
// serial link.
func (h *UARTHandler) Send(c *gin.Context) {
	var req model.SendDataRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body: "+err.Error())
		return
	}

	data, err := hex.DecodeString(req.Data)
	if err != nil {
		sendError(c, http.StatusBadRequest, "INVALID_HEX", "Invalid hex payload: "+err.Error())
		return
	}

	if err := h.bridge.Link().Write(data); err != nil {
		c.JSON(http.StatusOK, model.SendDataResponse{
			Status:  "error",
			Message: "UART write failed: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, model.SendDataResponse{
		Status:    "success",
		BytesSent: len(data),
		Message:   fmt.Sprintf("sent %d bytes to UART", len(data)),
	})
}

// History handles GET /api/uart/history - a hex dump of the most recent
// device output.
func (h *UARTHandler) History(c *gin.Context) {
	data := h.bridge.History()
	c.JSON(http.StatusOK, gin.H{
		"bytes": len(data),
		"data":  hex.EncodeToString(data),
	})
}

// Config handles GET /api/config - the sanitized running configuration.
func (h *UARTHandler) Config(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"http": gin.H{
			"host": h.cfg.HTTPHost,
			"port": h.cfg.HTTPPort,
		},
		"uart": gin.H{
			"port":          h.cfg.UARTPort,
			"baudrate":      h.cfg.UARTBaudRate,
			"bytesize":      h.cfg.UARTByteSize,
			"stopbits":      h.cfg.UARTStopBits,
			"parity":        h.cfg.UARTParity,
			"timeout":       h.cfg.UARTReadTimeout.Seconds(),
			"write_timeout": h.cfg.UARTWriteTimeout.Seconds(),
		},
		"websocket": gin.H{
			"ping_interval": int(h.cfg.WSPingInterval.Seconds()),
			"ping_timeout":  int(h.cfg.WSPingTimeout.Seconds()),
			"max_size":      h.cfg.WSMaxMessageSize,
		},
		"logging": gin.H{
			"level": h.cfg.LogLevel,
		},
	})
}

// RegisterRoutes registers the administrative routes on a Gin router group.
func (h *UARTHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/status", h.Status)
	rg.GET("/uart/info", h.Info)
	rg.POST("/uart/reconnect", h.Reconnect)
	rg.POST("/uart/send", h.Send)
	rg.GET("/uart/history", h.History)
	rg.GET("/config", h.Config)
}
