package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pdf-annotator/internal/config"
	"pdf-annotator/internal/handler"

	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found or could not be loaded: %v", err)
	}
	// Wiring
	container, err := config.NewContainer()
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	cfg := container.Config

	// Handlers
	sessionHandler := handler.NewSessionHandler(
		container.SessionService,
		cfg.GetMaxFileSize(),
		container.Logger,
	)

	// Router
	router := handler.NewRouter(
		sessionHandler,
		cfg.GetAllowedOrigins(),
		container.Logger,
	)

	// start server
	server := &http.Server{
		Addr:              ":" + cfg.GetServerPort(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Expire idle sessions
	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	go purgeSessions(ctx, container, cfg.GetSessionTTL())

	// Run server
	go func() {
		container.Logger.Info("Server listening", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			container.Logger.Error("Server failed to start", err)
			os.Exit(1)
		}
	}()
	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	container.Logger.Info("Shutting down server...")
	stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.GetRenderTimeout())
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		container.Logger.Error("Graceful shutdown failed", err)
		_ = server.Close()
	}

	container.Logger.Info("Server exited")
}

func purgeSessions(ctx context.Context, container *config.Container, ttl time.Duration) {
	ticker := time.NewTicker(max(ttl/4, time.Minute))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			container.SessionService.PurgeExpired(ttl)
		}
	}
}
