package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"teamspend/internal/amqp"
	"teamspend/internal/config"
	applog "teamspend/internal/log"
	gsheet "teamspend/internal/sheets/google"
	"teamspend/internal/worker"
)

func main() {
	// Load .env for local development; ignore errors in production.
	_ = godotenv.Load()

	applog.Setup()
	slog.Info("Starting teamspend-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		slog.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	if cfg.AMQPURL == "" {
		slog.Error("AMQP_URL is required for the ledger worker")
		os.Exit(1)
	}
	if cfg.GoogleSpreadsheetID == "" {
		slog.Error("GOOGLE_SPREADSHEET_ID is required for the ledger worker")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sheetsClient, err := gsheet.NewFromEnv(ctx)
	if err != nil {
		slog.Error("Failed to initialize Google Sheets client", "error", err)
		os.Exit(1)
	}
	slog.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		slog.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	ledgerWorker := worker.NewLedgerWorker(sheetsClient)

	go func() {
		if err := amqpClient.ConsumeExpenditureEvents(ctx, ledgerWorker.HandleEvent); err != nil {
			if !errors.Is(err, context.Canceled) {
				slog.Error("Event consumption failed", "error", err)
			}
			cancel()
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigChan:
		slog.Info("Shutdown signal received", "signal", sig.String())
		cancel()
	case <-ctx.Done():
	}

	slog.Info("Worker stopped")
}
