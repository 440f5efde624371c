package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"horizon/internal/infrastructure/docstore"
	"horizon/internal/shared/config"
	"horizon/internal/shared/telemetry"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Initialize telemetry (if enabled)
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.Init(context.Background(), telemetry.Config{
			ServiceName:  cfg.Telemetry.ServiceName,
			Environment:  cfg.PaymentRail.Environment,
			OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
			MetricsPort:  cfg.Telemetry.MetricsPort,
		})
		if err != nil {
			return err
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := shutdown(ctx); err != nil {
				log.Printf("Telemetry shutdown error: %v", err)
			}
		}()
	}

	// Apply schema migrations before anything touches the store
	if err := docstore.RunMigrations(cfg.Database.URL()); err != nil {
		return err
	}
	log.Println("Database migrations applied")

	// Initialize dependencies
	deps, err := NewDependencies(cfg)
	if err != nil {
		return err
	}
	defer deps.Close()

	// Set up routes and start servers
	srv := NewServer(SetupRoutes(deps, cfg), cfg)
	srv.Start()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	srv.Shutdown(30 * time.Second)
	return nil
}
