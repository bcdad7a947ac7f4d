package uart

import (
	"fmt"
	"time"

	serial "go.bug.st/serial"

	"github.com/msu-robotics/uart-bridge/internal/config"
)

// Port abstracts the subset of go.bug.st/serial.Port the link depends on.
// Tests substitute an in-memory implementation through an Opener.
type Port interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
	SetReadTimeout(d time.Duration) error
}

// Opener opens the serial device described by cfg.
type Opener func(cfg *config.Config) (Port, error)

// OpenSerial is the default Opener, backed by go.bug.st/serial.
func OpenSerial(cfg *config.Config) (Port, error) {
	mode := &serial.Mode{
		BaudRate: cfg.UARTBaudRate,
		DataBits: cfg.UARTByteSize,
		Parity:   parityMode(cfg.UARTParity),
		StopBits: stopBitsMode(cfg.UARTStopBits),
	}

	port, err := serial.Open(cfg.UARTPort, mode)
	if err != nil {
		return nil, err
	}

	if err := port.SetReadTimeout(effectiveReadTimeout(cfg.UARTReadTimeout)); err != nil {
		port.Close()
		return nil, fmt.Errorf("set read timeout: %w", err)
	}

	return port, nil
}

// effectiveReadTimeout maps a non-positive configured timeout to blocking
// reads. A literal zero would make the driver non-blocking and the read loop
// would spin on empty reads.
func effectiveReadTimeout(d time.Duration) time.Duration {
	if d <= 0 {
		return serial.NoTimeout
	}
	return d
}

func parityMode(letter string) serial.Parity {
	switch letter {
	case "E":
		return serial.EvenParity
	case "O":
		return serial.OddParity
	case "M":
		return serial.MarkParity
	case "S":
		return serial.SpaceParity
	default:
		return serial.NoParity
	}
}

func stopBitsMode(bits int) serial.StopBits {
	if bits == 2 {
		return serial.TwoStopBits
	}
	return serial.OneStopBit
}
