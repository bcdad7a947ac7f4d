package config

import (
	"errors"
	"testing"
	"time"

	"github.com/msu-robotics/uart-bridge/internal/model"
)

func validConfig() *Config {
	return &Config{
		HTTPHost:         "0.0.0.0",
		HTTPPort:         8000,
		UARTPort:         "/dev/ttyUSB0",
		UARTBaudRate:     115200,
		UARTByteSize:     8,
		UARTStopBits:     1,
		UARTParity:       "N",
		UARTReadTimeout:  time.Second,
		UARTWriteTimeout: time.Second,
		WSPingInterval:   30 * time.Second,
		WSPingTimeout:    10 * time.Second,
		WSMaxMessageSize: 1024 * 1024,
		LogLevel:         "INFO",
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load with defaults: %v", err)
	}

	if cfg.UARTPort != "/dev/ttyUSB0" {
		t.Errorf("default uart port: %s", cfg.UARTPort)
	}
	if cfg.UARTBaudRate != 115200 {
		t.Errorf("default baud rate: %d", cfg.UARTBaudRate)
	}
	if cfg.UARTReadTimeout != time.Second {
		t.Errorf("default read timeout: %s", cfg.UARTReadTimeout)
	}
	if cfg.WSPingInterval != 30*time.Second {
		t.Errorf("default ping interval: %s", cfg.WSPingInterval)
	}
	if cfg.WSMaxMessageSize != 100*1024*1024 {
		t.Errorf("default max message size: %d", cfg.WSMaxMessageSize)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("UART_PORT", "/dev/ttyACM3")
	t.Setenv("UART_BAUDRATE", "9600")
	t.Setenv("UART_PARITY", "E")
	t.Setenv("UART_TIMEOUT", "0.5")
	t.Setenv("HTTP_PORT", "9000")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.UARTPort != "/dev/ttyACM3" {
		t.Errorf("uart port: %s", cfg.UARTPort)
	}
	if cfg.UARTBaudRate != 9600 {
		t.Errorf("baud rate: %d", cfg.UARTBaudRate)
	}
	if cfg.UARTParity != "E" {
		t.Errorf("parity: %s", cfg.UARTParity)
	}
	if cfg.UARTReadTimeout != 500*time.Millisecond {
		t.Errorf("read timeout: %s", cfg.UARTReadTimeout)
	}
	if cfg.HTTPPort != 9000 {
		t.Errorf("http port: %d", cfg.HTTPPort)
	}
}

func TestLoadRejectsInvalidEnvironment(t *testing.T) {
	t.Setenv("UART_BAUDRATE", "12345")

	if _, err := Load(); !errors.Is(err, model.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid defaults", func(c *Config) {}, false},
		{"all standard baud rates", func(c *Config) { c.UARTBaudRate = 921600 }, false},
		{"non-standard baud rate", func(c *Config) { c.UARTBaudRate = 12345 }, true},
		{"zero baud rate", func(c *Config) { c.UARTBaudRate = 0 }, true},
		{"byte size too small", func(c *Config) { c.UARTByteSize = 4 }, true},
		{"byte size too large", func(c *Config) { c.UARTByteSize = 9 }, true},
		{"five data bits", func(c *Config) { c.UARTByteSize = 5 }, false},
		{"three stop bits", func(c *Config) { c.UARTStopBits = 3 }, true},
		{"two stop bits", func(c *Config) { c.UARTStopBits = 2 }, false},
		{"unknown parity", func(c *Config) { c.UARTParity = "X" }, true},
		{"mark parity", func(c *Config) { c.UARTParity = "M" }, false},
		{"empty uart port", func(c *Config) { c.UARTPort = "" }, true},
		{"negative read timeout", func(c *Config) { c.UARTReadTimeout = -time.Second }, true},
		{"http port out of range", func(c *Config) { c.HTTPPort = 70000 }, true},
		{"http port zero", func(c *Config) { c.HTTPPort = 0 }, true},
		{"ping interval too small", func(c *Config) { c.WSPingInterval = 100 * time.Millisecond }, true},
		{"max message size too small", func(c *Config) { c.WSMaxMessageSize = 100 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				if !errors.Is(err, model.ErrInvalidConfig) {
					t.Errorf("expected ErrInvalidConfig, got %v", err)
				}
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestParityName(t *testing.T) {
	cfg := validConfig()
	if cfg.ParityName() != "none" {
		t.Errorf("got %s", cfg.ParityName())
	}
	cfg.UARTParity = "S"
	if cfg.ParityName() != "space" {
		t.Errorf("got %s", cfg.ParityName())
	}
}
