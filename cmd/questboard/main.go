package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"questboard/internal/database"
	"questboard/internal/handler"
	"questboard/internal/logging"
	"questboard/internal/server"
)

func main() {
	// Load .env if present; real env vars take precedence.
	_ = godotenv.Load()

	logger := logging.Setup(os.Getenv("QUESTBOARD_LOG_LEVEL"))

	port := os.Getenv("QUESTBOARD_PORT")
	if port == "" {
		port = "8080"
	}

	dbPath := os.Getenv("QUESTBOARD_DB_PATH")
	if dbPath == "" {
		dbPath = "questboard.db"
	}

	db, err := database.Open(dbPath)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	srv := server.New(db, logger)

	adminUser := os.Getenv("QUESTBOARD_ADMIN_USER")
	if adminUser == "" {
		adminUser = "gamemaster"
	}
	adminPass := os.Getenv("QUESTBOARD_ADMIN_PASSWORD")
	if adminPass == "" {
		adminPass = "changeme"
		logger.Warn("QUESTBOARD_ADMIN_PASSWORD not set, using default password")
	}
	if err := handler.Bootstrap(srv.UserStore(), adminUser, adminPass, logger); err != nil {
		logger.Error("failed to bootstrap gamemaster account", "error", err)
		os.Exit(1)
	}

	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Periodic cleanup of expired sessions and stale rate-limit buckets.
	cleanupDone := make(chan struct{})
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n, err := srv.SessionStore().DeleteExpired(); err != nil {
					logger.Error("session cleanup failed", "error", err)
				} else if n > 0 {
					logger.Info("expired sessions removed", "count", n)
				}
				srv.RateLimiter().Cleanup()
			case <-cleanupDone:
				return
			}
		}
	}()

	go func() {
		fmt.Printf("Questboard running at http://localhost:%s\n", port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	fmt.Println("\nShutting down...")
	close(cleanupDone)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}
