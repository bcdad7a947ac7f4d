// Package config loads and validates the bridge configuration from the
// environment. All values are read once at startup; invalid combinations are
// rejected before any component touches the serial device.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/msu-robotics/uart-bridge/internal/model"
)

// standardBaudRates are the UART baud rates accepted by Validate.
var standardBaudRates = map[int]bool{
	300: true, 600: true, 1200: true, 2400: true, 4800: true, 9600: true,
	14400: true, 19200: true, 28800: true, 38400: true, 57600: true,
	115200: true, 230400: true, 460800: true, 921600: true,
}

// validParities maps the accepted parity letters to their long names.
var validParities = map[string]string{
	"N": "none",
	"E": "even",
	"O": "odd",
	"M": "mark",
	"S": "space",
}

// Config holds all runtime configuration for the bridge.
type Config struct {
	// HTTP server
	HTTPHost string
	HTTPPort int

	// UART parameters
	UARTPort         string
	UARTBaudRate     int
	UARTByteSize     int
	UARTStopBits     int
	UARTParity       string // one of N, E, O, M, S
	UARTReadTimeout  time.Duration
	UARTWriteTimeout time.Duration

	// WebSocket parameters
	WSPingInterval   time.Duration
	WSPingTimeout    time.Duration
	WSMaxMessageSize int

	LogLevel string
}

// Load reads configuration from environment variables, applying defaults for
// anything unset, and validates the result.
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("http_host", "0.0.0.0")
	v.SetDefault("http_port", 8000)

	v.SetDefault("uart_port", "/dev/ttyUSB0")
	v.SetDefault("uart_baudrate", 115200)
	v.SetDefault("uart_bytesize", 8)
	v.SetDefault("uart_stopbits", 1)
	v.SetDefault("uart_parity", "N")
	v.SetDefault("uart_timeout", 1.0)
	v.SetDefault("uart_write_timeout", 1.0)

	v.SetDefault("ws_ping_interval", 30)
	v.SetDefault("ws_ping_timeout", 10)
	v.SetDefault("ws_max_size", 100*1024*1024)

	v.SetDefault("log_level", "INFO")

	cfg := &Config{
		HTTPHost:         v.GetString("http_host"),
		HTTPPort:         v.GetInt("http_port"),
		UARTPort:         v.GetString("uart_port"),
		UARTBaudRate:     v.GetInt("uart_baudrate"),
		UARTByteSize:     v.GetInt("uart_bytesize"),
		UARTStopBits:     v.GetInt("uart_stopbits"),
		UARTParity:       v.GetString("uart_parity"),
		UARTReadTimeout:  secondsToDuration(v.GetFloat64("uart_timeout")),
		UARTWriteTimeout: secondsToDuration(v.GetFloat64("uart_write_timeout")),
		WSPingInterval:   time.Duration(v.GetInt("ws_ping_interval")) * time.Second,
		WSPingTimeout:    time.Duration(v.GetInt("ws_ping_timeout")) * time.Second,
		WSMaxMessageSize: v.GetInt("ws_max_size"),
		LogLevel:         v.GetString("log_level"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// Validate checks all parameter combinations. It is a pure function of the
// receiver and reports the first problem found.
func (c *Config) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("%w: http port %d out of range", model.ErrInvalidConfig, c.HTTPPort)
	}
	if c.UARTPort == "" {
		return fmt.Errorf("%w: uart port must not be empty", model.ErrInvalidConfig)
	}
	if !standardBaudRates[c.UARTBaudRate] {
		return fmt.Errorf("%w: non-standard baud rate %d", model.ErrInvalidConfig, c.UARTBaudRate)
	}
	if c.UARTByteSize < 5 || c.UARTByteSize > 8 {
		return fmt.Errorf("%w: byte size %d (must be 5-8)", model.ErrInvalidConfig, c.UARTByteSize)
	}
	if c.UARTStopBits != 1 && c.UARTStopBits != 2 {
		return fmt.Errorf("%w: stop bits %d (must be 1 or 2)", model.ErrInvalidConfig, c.UARTStopBits)
	}
	if _, ok := validParities[c.UARTParity]; !ok {
		return fmt.Errorf("%w: parity %q (must be one of N, E, O, M, S)", model.ErrInvalidConfig, c.UARTParity)
	}
	if c.UARTReadTimeout < 0 || c.UARTWriteTimeout < 0 {
		return fmt.Errorf("%w: timeouts must not be negative", model.ErrInvalidConfig)
	}
	if c.WSPingInterval < time.Second {
		return fmt.Errorf("%w: ws ping interval below 1s", model.ErrInvalidConfig)
	}
	if c.WSPingTimeout < time.Second {
		return fmt.Errorf("%w: ws ping timeout below 1s", model.ErrInvalidConfig)
	}
	if c.WSMaxMessageSize < 1024 {
		return fmt.Errorf("%w: ws max message size below 1024 bytes", model.ErrInvalidConfig)
	}
	return nil
}

// ParityName returns the long form of the configured parity letter.
func (c *Config) ParityName() string {
	return validParities[c.UARTParity]
}
