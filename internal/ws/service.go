package ws

import (
	"log"
	"sync"

	"github.com/msu-robotics/uart-bridge/internal/buffer"
	"github.com/msu-robotics/uart-bridge/internal/config"
	"github.com/msu-robotics/uart-bridge/internal/model"
	"github.com/msu-robotics/uart-bridge/internal/uart"
)

// DefaultHistorySize is how much recent device output the bridge caches for
// the history endpoint (64 KiB).
const DefaultHistorySize = 64 * 1024

// Service is the bridge coordinator: it wires the serial link's read path
// into the hub's broadcast path and exposes the lifecycle operations the
// administrative API needs. One Service exists per process.
type Service struct {
	link    *uart.Link
	hub     *Hub
	handler *Handler
	history *buffer.RingBuffer

	mu          sync.Mutex
	errNotified bool
}

// NewService creates the bridge and installs the link callbacks. The link is
// not opened here; call Open.
func NewService(cfg *config.Config, link *uart.Link) *Service {
	s := &Service{
		link:    link,
		hub:     NewHub(),
		history: buffer.NewRingBuffer(DefaultHistorySize),
	}
	s.handler = NewHandler(cfg, link, s.hub, s)

	link.SetDataCallback(func(frame []byte) {
		s.history.Write(frame)
		s.hub.Broadcast(frame)
	})
	link.SetErrorCallback(func(err error) {
		s.notifyLinkDown(err)
	})

	return s
}

// Handler returns the WebSocket handler.
func (s *Service) Handler() *Handler {
	return s.handler
}

// Hub returns the client registry.
func (s *Service) Hub() *Hub {
	return s.hub
}

// Link returns the serial link.
func (s *Service) Link() *uart.Link {
	return s.link
}

// Open opens the serial link and starts relaying. An open failure leaves the
// bridge serving clients against a down link; they are told so on connect.
func (s *Service) Open() error {
	err := s.link.Open()
	if err == nil {
		s.resetErrorLatch()
	}
	return err
}

// Reconnect closes and reopens the serial link with the retained
// configuration. Connected WebSocket clients are kept and resume receiving
// data once the link is up again.
func (s *Service) Reconnect() error {
	err := s.link.Reconnect()
	if err != nil {
		return err
	}

	s.resetErrorLatch()
	status := s.link.UARTStatus()
	s.hub.BroadcastControl(model.NewControlMessage(model.ControlInfo,
		"UART link reconnected", &status))
	return nil
}

// notifyLinkDown broadcasts one error control message per link degradation.
// The latch prevents a burst of failing writes from flooding every client;
// it re-arms on the next successful open.
func (s *Service) notifyLinkDown(err error) {
	s.mu.Lock()
	if s.errNotified {
		s.mu.Unlock()
		return
	}
	s.errNotified = true
	s.mu.Unlock()

	log.Printf("bridge: uart link down: %v", err)
	status := s.link.UARTStatus()
	s.hub.BroadcastControl(model.NewControlMessage(model.ControlError,
		"UART link error: "+err.Error(), &status))
}

func (s *Service) resetErrorLatch() {
	s.mu.Lock()
	s.errNotified = false
	s.mu.Unlock()
}

// ClientCount returns the number of connected WebSocket clients.
func (s *Service) ClientCount() int {
	return s.hub.ClientCount()
}

// History returns a copy of the recent device output window.
func (s *Service) History() []byte {
	return s.history.Bytes()
}

// Close shuts the bridge down: all clients are dropped and the serial handle
// is released.
func (s *Service) Close() {
	s.hub.Close()
	if err := s.link.Close(); err != nil {
		log.Printf("bridge: error closing uart link: %v", err)
	}
}
