package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"partner-portal/internal/config"
	"partner-portal/internal/server"
)

func main() {
	// Load environment variables from .env
	if err := godotenv.Load(); err != nil {
		log.Println("Portal: No .env file found, relying on system env vars")
	}

	cfg := config.Load()

	srv := server.NewServer(cfg)
	defer srv.Close()

	errCh := make(chan error, 1)

	go func() {
		log.Printf("Portal HTTP server starting on %s", cfg.HTTPAddr)
		if err := srv.StartHTTP(); err != nil {
			errCh <- err
		}
	}()

	// Graceful shutdown handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		log.Println("Shutting down portal server...")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.HTTP.Shutdown(ctx); err != nil {
			log.Printf("Failed to shutdown HTTP server: %v", err)
		}
	case err := <-errCh:
		log.Fatalf("Server error: %v", err)
	}
}
