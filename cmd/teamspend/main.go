package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"teamspend/internal/amqp"
	"teamspend/internal/config"
	apphttp "teamspend/internal/http"
	applog "teamspend/internal/log"
	"teamspend/internal/service"
	"teamspend/internal/store"
	"teamspend/internal/store/local"
	"teamspend/internal/store/mysql"
)

func main() {
	// Load .env for local development; ignore errors in production.
	_ = godotenv.Load()

	applog.Setup()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		slog.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	localStore, err := local.New(cfg.LocalDBPath)
	if err != nil {
		slog.Error("Failed to open local store", "error", err, "path", cfg.LocalDBPath)
		os.Exit(1)
	}

	var gateway store.Store = localStore
	if cfg.MySQLDSN != "" {
		remote, err := mysql.New(cfg.MySQLDSN)
		if err != nil {
			// The gateway falls back per call anyway; an unreachable remote
			// at startup just means serving from the local store until it
			// comes back.
			slog.Warn("Remote store unavailable at startup, serving from local store", "error", err)
		} else {
			gateway = store.NewFailover(remote, localStore)
			slog.Info("Remote store connected")
		}
	} else {
		slog.Info("No MYSQL_DSN configured, using local store only")
	}
	defer gateway.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if ok, err := gateway.InitializeTeams(ctx); err != nil {
		slog.Error("Failed to initialize default teams", "error", err)
	} else if ok {
		slog.Info("Default teams ensured")
	}

	var events service.EventPublisher
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			slog.Warn("AMQP unavailable, change events disabled", "error", err)
		} else {
			defer amqpClient.Close()
			events = amqpClient
			slog.Info("AMQP connected", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	svc := service.NewExpenditureService(gateway, events)

	srv := apphttp.NewServer(":"+cfg.Port, gateway, svc, cfg.IngestAPIToken)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		slog.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	slog.Info("Starting teamspend server", "port", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	slog.Info("Server stopped gracefully")
}
