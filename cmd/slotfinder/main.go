package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/dukerupert/slotfinder/internal/database"
	"github.com/dukerupert/slotfinder/internal/logging"
	"github.com/dukerupert/slotfinder/internal/middleware"
	"github.com/dukerupert/slotfinder/internal/server"
)

func main() {
	logger := logging.Setup(os.Getenv("SLOTFINDER_LOG_LEVEL"))

	port := os.Getenv("SLOTFINDER_PORT")
	if port == "" {
		port = "8080"
	}

	dbPath := os.Getenv("SLOTFINDER_DB_PATH")
	if dbPath == "" {
		dbPath = "slotfinder.db"
	}

	cfg := server.Config{QueryWindow: time.Minute}
	if v := os.Getenv("SLOTFINDER_QUERY_LIMIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			slog.Error("invalid SLOTFINDER_QUERY_LIMIT", "value", v)
			os.Exit(1)
		}
		cfg.QueryLimit = n
	}
	cfg.TrustProxy = os.Getenv("SLOTFINDER_TRUST_PROXY") == "true"
	if v := os.Getenv("SLOTFINDER_WS_ORIGINS"); v != "" {
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.WebSocketOrigins = append(cfg.WebSocketOrigins, o)
			}
		}
	}
	if key := os.Getenv("SLOTFINDER_API_KEY"); key != "" {
		hash, err := middleware.HashAPIKey(key)
		if err != nil {
			slog.Error("failed to hash api key", "error", err)
			os.Exit(1)
		}
		cfg.APIKeyHash = hash
	} else {
		slog.Warn("SLOTFINDER_API_KEY not set, API is unauthenticated")
	}

	db, err := database.Open(dbPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	srv := server.New(db, cfg, logger)

	httpServer := &http.Server{
		Addr:              ":" + port,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				srv.RateLimiter().Cleanup()
			case <-cleanupCtx.Done():
				return
			}
		}
	}()

	go func() {
		slog.Info("slotfinder starting", "addr", ":"+port, "db", dbPath)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down", "websocket_clients", srv.Hub().ClientCount())
	cleanupCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}
