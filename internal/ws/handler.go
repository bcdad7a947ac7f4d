package ws

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/msu-robotics/uart-bridge/internal/config"
	"github.com/msu-robotics/uart-bridge/internal/model"
	"github.com/msu-robotics/uart-bridge/internal/uart"
)

// writeWait is the time allowed to write one message to the peer.
const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Origin filtering is left to the deployment (reverse proxy / CORS).
		return true
	},
}

// Handler upgrades HTTP requests to WebSocket connections and runs the
// per-connection inbound and outbound pumps.
type Handler struct {
	cfg     *config.Config
	link    *uart.Link
	hub     *Hub
	service *Service
}

// NewHandler creates a WebSocket handler bound to the given link and hub.
func NewHandler(cfg *config.Config, link *uart.Link, hub *Hub, service *Service) *Handler {
	return &Handler{
		cfg:     cfg,
		link:    link,
		hub:     hub,
		service: service,
	}
}

// HandleConnection upgrades the request and serves the client until it
// disconnects. The client immediately receives an info control message with
// the current link status, connected or not.
func (h *Handler) HandleConnection(w http.ResponseWriter, r *http.Request) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	client := NewClient(conn)
	h.hub.Register(client)
	log.Printf("ws: client %s connected from %s", client.ID(), conn.RemoteAddr())

	status := h.link.UARTStatus()
	client.SendControl(model.NewControlMessage(model.ControlInfo,
		"Connected to UART WebSocket Bridge", &status))

	go h.writePump(client)
	go h.readPump(client)

	return nil
}

// readPump relays binary frames from the client to the serial link. Write
// failures are reported to this client only, unless the link itself has
// degraded, in which case everyone is notified once. Non-binary payloads are
// answered with a warning and otherwise ignored.
func (h *Handler) readPump(client *Client) {
	conn := client.Conn()
	defer func() {
		h.hub.Unregister(client)
		conn.Close()
		log.Printf("ws: client %s disconnected", client.ID())
	}()

	pongWait := h.cfg.WSPingInterval + h.cfg.WSPingTimeout
	conn.SetReadLimit(int64(h.cfg.WSMaxMessageSize))
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		msgType, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Printf("ws: client %s read error: %v", client.ID(), err)
			}
			return
		}

		switch msgType {
		case websocket.BinaryMessage:
			h.handleFrame(client, message)
		case websocket.TextMessage:
			client.SendControl(model.NewControlMessage(model.ControlWarning,
				"expected binary frames, text message ignored", nil))
		}
	}
}

// handleFrame writes one client frame to the serial link.
func (h *Handler) handleFrame(client *Client, frame []byte) {
	err := h.link.Write(frame)
	if err == nil {
		return
	}

	status := h.link.UARTStatus()
	client.SendControl(model.NewControlMessage(model.ControlError,
		"failed to write to UART: "+err.Error(), &status))

	if h.link.Status() == uart.StatusError {
		h.service.notifyLinkDown(err)
	}
}

// writePump drains the client's outbound queue onto the wire and keeps the
// connection alive with pings. Each envelope goes out as its own frame so
// binary data and JSON control messages are never merged.
func (h *Handler) writePump(client *Client) {
	conn := client.Conn()
	ticker := time.NewTicker(h.cfg.WSPingInterval)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case e, ok := <-client.DataChan():
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(e.messageType, e.payload); err != nil {
				return
			}

			// Drain whatever queued up while we were writing.
			n := len(client.DataChan())
			for i := 0; i < n; i++ {
				queued, ok := <-client.DataChan()
				if !ok {
					return
				}
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteMessage(queued.messageType, queued.payload); err != nil {
					return
				}
			}
		case e := <-client.CtrlChan():
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(e.messageType, e.payload); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
