package ws

import (
	"bytes"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/msu-robotics/uart-bridge/internal/config"
	"github.com/msu-robotics/uart-bridge/internal/model"
	"github.com/msu-robotics/uart-bridge/internal/uart"
)

func bridgeTestConfig() *config.Config {
	return &config.Config{
		HTTPHost:         "127.0.0.1",
		HTTPPort:         8000,
		UARTPort:         "/dev/ttyFAKE0",
		UARTBaudRate:     115200,
		UARTByteSize:     8,
		UARTStopBits:     1,
		UARTParity:       "N",
		UARTReadTimeout:  20 * time.Millisecond,
		UARTWriteTimeout: 100 * time.Millisecond,
		WSPingInterval:   time.Second,
		WSPingTimeout:    time.Second,
		WSMaxMessageSize: 1024 * 1024,
		LogLevel:         "INFO",
	}
}

// stubPort is a minimal in-memory uart.Port for bridge-level tests.
type stubPort struct {
	readCh    chan []byte
	readErrCh chan error
	closeOnce sync.Once
	closedCh  chan struct{}

	mu      sync.Mutex
	written bytes.Buffer
}

func newStubPort() *stubPort {
	return &stubPort{
		readCh:    make(chan []byte, 16),
		readErrCh: make(chan error, 1),
		closedCh:  make(chan struct{}),
	}
}

func (s *stubPort) Read(p []byte) (int, error) {
	select {
	case data := <-s.readCh:
		return copy(p, data), nil
	case err := <-s.readErrCh:
		return 0, err
	case <-s.closedCh:
		return 0, errors.New("port closed")
	case <-time.After(10 * time.Millisecond):
		return 0, nil
	}
}

func (s *stubPort) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.written.Write(p)
}

func (s *stubPort) Close() error {
	s.closeOnce.Do(func() { close(s.closedCh) })
	return nil
}

func (s *stubPort) SetReadTimeout(d time.Duration) error { return nil }

func (s *stubPort) writtenBytes() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.written.Bytes()...)
}

func newTestBridge(t *testing.T, port *stubPort) (*Service, *uart.Link) {
	t.Helper()
	cfg := bridgeTestConfig()
	link := uart.NewLink(cfg, func(*config.Config) (uart.Port, error) {
		return port, nil
	})
	return NewService(cfg, link), link
}

func TestBridgeRelaysDeviceDataToAllClients(t *testing.T) {
	port := newStubPort()
	bridge, _ := newTestBridge(t, port)
	defer bridge.Close()

	if err := bridge.Open(); err != nil {
		t.Fatalf("open: %v", err)
	}

	client1 := NewClient(nil)
	client2 := NewClient(nil)
	bridge.Hub().Register(client1)
	bridge.Hub().Register(client2)

	payload := []byte{0x48, 0x65, 0x6C, 0x6C, 0x6F}
	port.readCh <- payload

	if got := receiveData(t, client1, time.Second); !bytes.Equal(got, payload) {
		t.Errorf("client1 received %v", got)
	}
	if got := receiveData(t, client2, time.Second); !bytes.Equal(got, payload) {
		t.Errorf("client2 received %v", got)
	}

	// The history window saw the same bytes.
	if !bytes.Equal(bridge.History(), payload) {
		t.Errorf("history mismatch: %v", bridge.History())
	}
}

func TestBridgeClientWritesReachDevice(t *testing.T) {
	port := newStubPort()
	bridge, link := newTestBridge(t, port)
	defer bridge.Close()

	if err := bridge.Open(); err != nil {
		t.Fatalf("open: %v", err)
	}

	if err := link.Write([]byte("at+gmr\r\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got := port.writtenBytes(); string(got) != "at+gmr\r\n" {
		t.Errorf("device received %q", got)
	}
}

func TestBridgeNotifiesLinkErrorOnce(t *testing.T) {
	port := newStubPort()
	bridge, link := newTestBridge(t, port)
	defer bridge.Close()

	if err := bridge.Open(); err != nil {
		t.Fatalf("open: %v", err)
	}

	client := NewClient(nil)
	bridge.Hub().Register(client)

	port.readErrCh <- errors.New("device unplugged")

	msg := receiveControl(t, client, time.Second)
	if msg.Type != model.ControlError {
		t.Fatalf("expected error control, got %s", msg.Type)
	}
	if msg.UARTStatus == nil || msg.UARTStatus.Connected {
		t.Error("expected a disconnected status snapshot")
	}

	// Repeated failures while degraded must not flood clients.
	bridge.notifyLinkDown(errors.New("still down"))
	bridge.notifyLinkDown(errors.New("still down"))
	select {
	case <-client.CtrlChan():
		t.Fatal("link error broadcast more than once")
	case <-time.After(50 * time.Millisecond):
	}

	if link.Status() != uart.StatusError {
		t.Errorf("expected error status, got %s", link.Status())
	}
}

func TestBridgeReconnectKeepsClientsAndResumesRelay(t *testing.T) {
	first := newStubPort()
	second := newStubPort()
	ports := []*stubPort{first, second}
	var mu sync.Mutex
	idx := 0

	cfg := bridgeTestConfig()
	link := uart.NewLink(cfg, func(*config.Config) (uart.Port, error) {
		mu.Lock()
		defer mu.Unlock()
		p := ports[idx]
		idx++
		return p, nil
	})
	bridge := NewService(cfg, link)
	defer bridge.Close()

	if err := bridge.Open(); err != nil {
		t.Fatalf("open: %v", err)
	}

	client := NewClient(nil)
	bridge.Hub().Register(client)

	first.readErrCh <- errors.New("transient fault")
	receiveControl(t, client, time.Second) // the degradation notice

	if err := bridge.Reconnect(); err != nil {
		t.Fatalf("reconnect: %v", err)
	}
	if bridge.ClientCount() != 1 {
		t.Errorf("reconnect dropped clients: %d left", bridge.ClientCount())
	}

	info := receiveControl(t, client, time.Second)
	if info.Type != model.ControlInfo {
		t.Errorf("expected reconnect info message, got %s", info.Type)
	}
	if info.UARTStatus == nil || !info.UARTStatus.Connected {
		t.Error("expected a connected status snapshot after reconnect")
	}

	// Data flows again from the new handle.
	second.readCh <- []byte("back")
	if got := receiveData(t, client, time.Second); string(got) != "back" {
		t.Errorf("expected resumed data, got %q", got)
	}
}

func TestBridgeOpenFailureLeavesProcessServing(t *testing.T) {
	cfg := bridgeTestConfig()
	link := uart.NewLink(cfg, func(*config.Config) (uart.Port, error) {
		return nil, errors.New("no such device")
	})
	bridge := NewService(cfg, link)
	defer bridge.Close()

	if err := bridge.Open(); err == nil {
		t.Fatal("expected open to fail")
	}

	// Clients can still attach and learn the link is down.
	client := NewClient(nil)
	bridge.Hub().Register(client)
	if bridge.ClientCount() != 1 {
		t.Errorf("expected registry to keep working, got %d clients", bridge.ClientCount())
	}

	status := link.UARTStatus()
	if status.Connected {
		t.Error("expected connected:false after failed open")
	}
}
