package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/kkkkikiki/leadcrm/internal/config"
	"github.com/kkkkikiki/leadcrm/internal/database"
	"github.com/kkkkikiki/leadcrm/internal/httpapi"
	"github.com/kkkkikiki/leadcrm/internal/service"
)

func main() {
	ctx := context.Background()

	// Load configuration from environment variables
	cfg, err := config.Load(ctx)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	log.Printf("Starting leadcrm service in %s mode", cfg.App.Environment)

	// Initialize database connections
	db, err := database.NewDB(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Error closing database connections: %v", err)
		}
	}()

	leadService := service.NewLeadService(db.Postgres, service.LogNotifier{}, service.NewDBActivityLog(db.Postgres))
	campaignService := service.NewCampaignService(db.Postgres)

	// Staleness sweep runs off the request path on a cron schedule. The
	// sweeper's own limiter enforces the per-interval floor, so a noisy
	// schedule cannot re-trigger it early. When scaled horizontally each
	// instance sweeps on its own clock; the sweep updates are idempotent
	// so redundant passes are wasted work only.
	sweeper := service.NewSweeper(db.Postgres, cfg.Sweep.Interval())
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.Sweep.CronSpec, func() {
		sweepCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if _, ran, err := sweeper.Run(sweepCtx); err != nil {
			log.Printf("staleness sweep failed: %v", err)
		} else if !ran {
			log.Printf("staleness sweep skipped: interval not elapsed")
		}
	}); err != nil {
		log.Fatalf("Failed to schedule staleness sweep: %v", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	api := httpapi.New(db.Postgres, leadService, campaignService)

	// Create server with configuration optimized for high concurrency
	server := &http.Server{
		Addr:           cfg.Server.GetServerAddr(),
		ReadTimeout:    time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout:   time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:    120 * time.Second, // Keep connections alive longer
		MaxHeaderBytes: 1 << 20,           // 1MB
		// Use h2c so we can serve HTTP/2 without TLS
		Handler: h2c.NewHandler(api.Router(), &http2.Server{
			MaxConcurrentStreams: 1000, // Allow more concurrent streams
		}),
	}

	// Start server in goroutine
	go func() {
		log.Printf("Starting leadcrm service on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited gracefully")
}
