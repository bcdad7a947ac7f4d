// Package model defines the API and WebSocket message types shared across layers.
package model

import "time"

// ControlType classifies out-of-band JSON messages sent to WebSocket clients.
type ControlType string

const (
	ControlInfo    ControlType = "info"
	ControlWarning ControlType = "warning"
	ControlError   ControlType = "error"
)

// UARTStatus is a snapshot of the serial link state.
type UARTStatus struct {
	Connected bool   `json:"connected"`
	Port      string `json:"port"`
	BaudRate  int    `json:"baudrate"`
	ByteSize  int    `json:"bytesize"`
	StopBits  int    `json:"stopbits"`
	Parity    string `json:"parity"`
}

// ControlMessage is a structured non-binary message delivered to WebSocket
// clients, out-of-band from raw serial data frames.
type ControlMessage struct {
	Type       ControlType `json:"type"`
	Message    string      `json:"message"`
	UARTStatus *UARTStatus `json:"uartStatus,omitempty"`
	Timestamp  time.Time   `json:"timestamp"`
}

// NewControlMessage creates a ControlMessage stamped with the current time.
func NewControlMessage(kind ControlType, message string, status *UARTStatus) *ControlMessage {
	return &ControlMessage{
		Type:       kind,
		Message:    message,
		UARTStatus: status,
		Timestamp:  time.Now().UTC(),
	}
}

// WebSocketStatus describes the WebSocket side of the system status.
type WebSocketStatus struct {
	ActiveConnections int `json:"active_connections"`
	PingInterval      int `json:"ping_interval"`
	MaxMessageSize    int `json:"max_message_size"`
}

// ServerStatus describes the HTTP server side of the system status.
type ServerStatus struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	LogLevel string `json:"log_level"`
}

// SystemStatus is the response body of GET /api/status.
type SystemStatus struct {
	UART      UARTStatus      `json:"uart"`
	WebSocket WebSocketStatus `json:"websocket"`
	Server    ServerStatus    `json:"server"`
	Timestamp time.Time       `json:"timestamp"`
}

// SendDataRequest is the request body of POST /api/uart/send.
// Data is a hex string, e.g. "48656c6c6f" for "Hello".
type SendDataRequest struct {
	Data string `json:"data" binding:"required"`
}

// SendDataResponse is the response body of POST /api/uart/send.
type SendDataResponse struct {
	Status    string `json:"status"`
	BytesSent int    `json:"bytes_sent"`
	Message   string `json:"message"`
}

// ReconnectResponse is the response body of POST /api/uart/reconnect.
type ReconnectResponse struct {
	Status     string     `json:"status"`
	Message    string     `json:"message"`
	UARTStatus UARTStatus `json:"uart_status"`
}
