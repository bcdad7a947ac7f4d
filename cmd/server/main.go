package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/msu-robotics/uart-bridge/api/handlers"
	"github.com/msu-robotics/uart-bridge/internal/config"
	"github.com/msu-robotics/uart-bridge/internal/uart"
	"github.com/msu-robotics/uart-bridge/internal/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Initialize the serial link and the bridge
	link := uart.NewLink(cfg, nil)
	bridge := ws.NewService(cfg, link)
	defer bridge.Close()

	// Open the device at startup. Failure is not fatal: the HTTP surface and
	// WebSocket endpoint keep serving so an operator can diagnose and
	// trigger a reconnect.
	if err := bridge.Open(); err != nil {
		log.Printf("UART not available at startup: %v", err)
	}

	// Initialize handlers
	uartHandler := handlers.NewUARTHandler(cfg, bridge)
	wsHandler := handlers.NewWebSocketHandler(bridge.Handler())

	// Initialize Gin router
	r := gin.Default()

	// Enable CORS for development
	r.Use(corsMiddleware())

	r.GET("/", uartHandler.Root)
	r.GET("/health", uartHandler.Health)

	// API routes
	api := r.Group("/api")
	{
		uartHandler.RegisterRoutes(api)
	}

	// WebSocket route
	wsHandler.RegisterRoutes(r)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Println("Shutting down server...")
		bridge.Close()
		os.Exit(0)
	}()

	// Start server
	addr := fmt.Sprintf("%s:%d", cfg.HTTPHost, cfg.HTTPPort)
	log.Printf("Starting UART WebSocket Bridge on %s", addr)
	if err := r.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// corsMiddleware returns a CORS middleware for development.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
