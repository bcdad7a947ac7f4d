package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/msu-robotics/uart-bridge/internal/model"
)

const (
	// DefaultDataQueueSize bounds each client's outbound frame queue. A
	// client that cannot drain this many frames is considered slow and
	// starts losing data (see Client.Send).
	DefaultDataQueueSize = 256

	// ctrlQueueSize bounds the out-of-band control message queue.
	ctrlQueueSize = 16
)

// envelope is one outbound WebSocket message.
type envelope struct {
	messageType int
	payload     []byte
}

// Client represents one WebSocket peer. Binary serial frames and JSON
// control messages travel through separate bounded queues, both drained by
// the client's write pump, so a congested data queue never blocks a warning
// from reaching the peer.
type Client struct {
	id          string
	conn        *websocket.Conn
	connectedAt time.Time
	data        chan envelope
	ctrl        chan envelope

	mu        sync.Mutex
	closed    bool
	congested bool
}

// NewClient creates a client for an upgraded connection.
func NewClient(conn *websocket.Conn) *Client {
	return &Client{
		id:          uuid.NewString(),
		conn:        conn,
		connectedAt: time.Now(),
		data:        make(chan envelope, DefaultDataQueueSize),
		ctrl:        make(chan envelope, ctrlQueueSize),
	}
}

// ID returns the client's opaque identifier.
func (c *Client) ID() string {
	return c.id
}

// ConnectedAt returns when the client connected.
func (c *Client) ConnectedAt() time.Time {
	return c.connectedAt
}

// Conn returns the underlying WebSocket connection.
func (c *Client) Conn() *websocket.Conn {
	return c.conn
}

// DataChan returns the outbound frame queue drained by the write pump.
func (c *Client) DataChan() <-chan envelope {
	return c.data
}

// CtrlChan returns the outbound control queue drained by the write pump.
func (c *Client) CtrlChan() <-chan envelope {
	return c.ctrl
}

// Send queues one binary serial frame. If the queue is full the frame is
// dropped for this client only and a single warning control message is sent
// instead; the warning re-arms once a frame goes through again. Other
// clients are never affected.
func (c *Client) Send(frame []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	select {
	case c.data <- envelope{websocket.BinaryMessage, frame}:
		c.congested = false
	default:
		if c.congested {
			return
		}
		c.congested = true
		c.enqueueControlLocked(model.NewControlMessage(model.ControlWarning,
			"client is not keeping up, dropping serial data", nil))
	}
}

// SendControl queues one JSON control message.
func (c *Client) SendControl(msg *model.ControlMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.enqueueControlLocked(msg)
}

func (c *Client) enqueueControlLocked(msg *model.ControlMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return
	}
	select {
	case c.ctrl <- envelope{websocket.TextMessage, payload}:
	default:
	}
}

// Close marks the client closed and closes its frame queue, which stops the
// write pump. Idempotent.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.data)
}

// IsClosed returns true once Close has been called.
func (c *Client) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Hub tracks the live set of WebSocket clients and fans out serial data.
// Registration, removal and broadcast are safe to call concurrently.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]bool
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[*Client]bool)}
}

// Register adds a client to the active set.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client] = true
}

// Unregister removes a client and closes it. Removing a client twice, or one
// that was never registered, is a no-op.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	delete(h.clients, client)
	h.mu.Unlock()

	client.Close()
}

// snapshot returns the current client set. Delivery happens outside the lock
// so a slow peer cannot stall registration.
func (h *Hub) snapshot() []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	return clients
}

// Broadcast queues a binary serial frame on every active client.
func (h *Hub) Broadcast(frame []byte) {
	for _, client := range h.snapshot() {
		client.Send(frame)
	}
}

// BroadcastControl queues a control message on every active client.
func (h *Hub) BroadcastControl(msg *model.ControlMessage) {
	for _, client := range h.snapshot() {
		client.SendControl(msg)
	}
}

// ClientCount returns the number of active clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close unregisters and closes every client.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.clients = make(map[*Client]bool)
	h.mu.Unlock()

	for _, client := range clients {
		client.Close()
	}
}
