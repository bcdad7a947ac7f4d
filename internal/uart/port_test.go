package uart

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	serial "go.bug.st/serial"
)

func TestEffectiveReadTimeout(t *testing.T) {
	// Zero would put the driver in non-blocking mode and spin the read loop.
	require.Equal(t, serial.NoTimeout, effectiveReadTimeout(0))
	require.Equal(t, serial.NoTimeout, effectiveReadTimeout(-time.Second))
	require.Equal(t, 250*time.Millisecond, effectiveReadTimeout(250*time.Millisecond))
}

func TestParityMode(t *testing.T) {
	require.Equal(t, serial.NoParity, parityMode("N"))
	require.Equal(t, serial.EvenParity, parityMode("E"))
	require.Equal(t, serial.OddParity, parityMode("O"))
	require.Equal(t, serial.MarkParity, parityMode("M"))
	require.Equal(t, serial.SpaceParity, parityMode("S"))
}

func TestStopBitsMode(t *testing.T) {
	require.Equal(t, serial.OneStopBit, stopBitsMode(1))
	require.Equal(t, serial.TwoStopBits, stopBitsMode(2))
}
