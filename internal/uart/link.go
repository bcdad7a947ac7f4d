// Package uart owns the exclusive handle to the serial device and serializes
// all access to it. The Link runs a single blocking read loop goroutine and
// hands incoming data to a callback; writes from any goroutine are serialized
// by a write mutex. Reconnect is always explicit — the link never retries a
// failing device on its own.
package uart

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/msu-robotics/uart-bridge/internal/config"
	"github.com/msu-robotics/uart-bridge/internal/model"
)

// Status is the lifecycle state of the serial link.
type Status string

const (
	StatusDisconnected Status = "disconnected"
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusError        Status = "error"
)

// DefaultReadBufferSize is the buffer size for each blocking read.
const DefaultReadBufferSize = 4096

// Link manages the single serial device handle. Exactly one Link exists per
// process.
type Link struct {
	cfg    *config.Config
	opener Opener

	// opMu serializes Open/Close/Reconnect so two readers can never race on
	// the same device path.
	opMu sync.Mutex

	// writeMu serializes writes so concurrent client frames never interleave.
	writeMu sync.Mutex

	// pending is the completion channel of a timed-out write that is still
	// inside port.Write. Guarded by writeMu. While set, new writes must not
	// enter the device.
	pending chan error

	mu      sync.RWMutex
	port    Port
	status  Status
	lastErr error
	stop    chan struct{}
	done    chan struct{}

	cbMu    sync.RWMutex
	onData  func([]byte)
	onError func(error)
}

// NewLink creates a Link for the given configuration. A nil opener selects
// the real serial driver.
func NewLink(cfg *config.Config, opener Opener) *Link {
	if opener == nil {
		opener = OpenSerial
	}
	return &Link{
		cfg:    cfg,
		opener: opener,
		status: StatusDisconnected,
	}
}

// SetDataCallback sets the function invoked with each chunk read from the
// device. Must be set before Open.
func (l *Link) SetDataCallback(cb func([]byte)) {
	l.cbMu.Lock()
	defer l.cbMu.Unlock()
	l.onData = cb
}

// SetErrorCallback sets the function invoked once when the read loop degrades
// the link to the error state.
func (l *Link) SetErrorCallback(cb func(error)) {
	l.cbMu.Lock()
	defer l.cbMu.Unlock()
	l.onError = cb
}

// Open opens the serial device and starts the read loop. If the link is
// already open, the existing handle is closed first, so Open is safe to call
// in any state.
func (l *Link) Open() error {
	l.opMu.Lock()
	defer l.opMu.Unlock()
	return l.openLocked()
}

func (l *Link) openLocked() error {
	if err := l.closeLocked(); err != nil {
		log.Printf("uart: error closing previous handle: %v", err)
	}

	l.setStatus(StatusConnecting, nil)

	port, err := l.opener(l.cfg)
	if err != nil {
		openErr := fmt.Errorf("%w: %v", model.ErrOpenFailed, err)
		l.setStatus(StatusError, openErr)
		log.Printf("uart: failed to open %s: %v", l.cfg.UARTPort, err)
		return openErr
	}

	stop := make(chan struct{})
	done := make(chan struct{})

	l.mu.Lock()
	l.port = port
	l.stop = stop
	l.done = done
	l.status = StatusConnected
	l.lastErr = nil
	l.mu.Unlock()

	go l.readLoop(port, stop, done)

	log.Printf("uart: opened %s @ %d baud", l.cfg.UARTPort, l.cfg.UARTBaudRate)
	return nil
}

// Close stops the read loop, waits for it to exit and releases the handle.
// It is idempotent and safe to call from any goroutine.
func (l *Link) Close() error {
	l.opMu.Lock()
	defer l.opMu.Unlock()
	return l.closeLocked()
}

func (l *Link) closeLocked() error {
	l.mu.Lock()
	port := l.port
	stop := l.stop
	done := l.done
	l.port = nil
	l.stop = nil
	l.done = nil
	l.mu.Unlock()

	if port == nil {
		l.setStatus(StatusDisconnected, nil)
		return nil
	}

	// Closing the handle unblocks the pending read; the stop channel tells
	// the loop the error it sees is ours, not the device's.
	close(stop)
	err := port.Close()
	<-done

	l.setStatus(StatusDisconnected, nil)
	log.Printf("uart: closed %s", l.cfg.UARTPort)
	return err
}

// Reconnect closes the current handle, waits for the read loop to terminate
// and reopens the device with the retained configuration.
func (l *Link) Reconnect() error {
	l.opMu.Lock()
	defer l.opMu.Unlock()
	log.Printf("uart: reconnecting %s", l.cfg.UARTPort)
	return l.openLocked()
}

// Write sends one frame to the device. Concurrent callers are serialized;
// frames never interleave. Fails fast when the link is not connected and
// enforces the configured write timeout.
func (l *Link) Write(frame []byte) error {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	// A previously timed-out write may still be inside the device. Only one
	// writer may touch the port at a time, so refuse new frames until it
	// drains.
	if l.pending != nil {
		select {
		case <-l.pending:
			l.pending = nil
		default:
			return model.ErrWriteTimeout
		}
	}

	l.mu.RLock()
	port := l.port
	status := l.status
	l.mu.RUnlock()

	if status != StatusConnected || port == nil {
		return model.ErrNotConnected
	}

	timeout := l.cfg.UARTWriteTimeout
	if timeout <= 0 {
		if _, err := port.Write(frame); err != nil {
			return fmt.Errorf("uart write: %w", err)
		}
		return nil
	}

	result := make(chan error, 1)
	go func() {
		_, err := port.Write(frame)
		result <- err
	}()

	select {
	case err := <-result:
		if err != nil {
			return fmt.Errorf("uart write: %w", err)
		}
		return nil
	case <-time.After(timeout):
		l.pending = result
		return model.ErrWriteTimeout
	}
}

// readLoop performs blocking reads until the link is closed or the device
// fails. A read timeout with no data just loops again; a hard I/O error
// degrades the link to the error state and exits — resuming requires an
// explicit Reconnect.
func (l *Link) readLoop(port Port, stop, done chan struct{}) {
	defer close(done)

	buf := make([]byte, DefaultReadBufferSize)
	for {
		select {
		case <-stop:
			return
		default:
		}

		n, err := port.Read(buf)
		if err != nil {
			select {
			case <-stop:
				return
			default:
			}
			readErr := fmt.Errorf("uart read: %w", err)
			l.setStatus(StatusError, readErr)
			log.Printf("uart: read loop terminated: %v", err)
			l.cbMu.RLock()
			onError := l.onError
			l.cbMu.RUnlock()
			if onError != nil {
				onError(readErr)
			}
			return
		}
		if n == 0 {
			// Read timeout with no data.
			continue
		}

		frame := make([]byte, n)
		copy(frame, buf[:n])

		l.cbMu.RLock()
		onData := l.onData
		l.cbMu.RUnlock()
		if onData != nil {
			onData(frame)
		}
	}
}

func (l *Link) setStatus(status Status, err error) {
	l.mu.Lock()
	l.status = status
	l.lastErr = err
	l.mu.Unlock()
}

// Status returns the current lifecycle state.
func (l *Link) Status() Status {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.status
}

// LastError returns the reason for the most recent error state, or nil.
func (l *Link) LastError() error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.lastErr
}

// IsConnected reports whether the device handle is open and healthy.
func (l *Link) IsConnected() bool {
	return l.Status() == StatusConnected
}

// UARTStatus returns a snapshot of the link state for status endpoints and
// control messages.
func (l *Link) UARTStatus() model.UARTStatus {
	return model.UARTStatus{
		Connected: l.IsConnected(),
		Port:      l.cfg.UARTPort,
		BaudRate:  l.cfg.UARTBaudRate,
		ByteSize:  l.cfg.UARTByteSize,
		StopBits:  l.cfg.UARTStopBits,
		Parity:    l.cfg.UARTParity,
	}
}
