package main

import (
	"context"
	"errors"
	"os"
	"time"

	"kobo/internal/cache"
	"kobo/internal/cli"
	"kobo/internal/export/sheets"
	"kobo/internal/facade"
	"kobo/internal/log"
	"kobo/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		log.New(log.DefaultConfig()).Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	logger := cli.SetupLogger(cfg, log.ComponentWorker)
	logger.Info("Starting kobo-worker")

	if err := cfg.ValidateExport(); err != nil {
		logger.Error("Export configuration invalid", log.FieldError, err)
		os.Exit(1)
	}

	ctx := context.Background()
	store, err := cli.OpenStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to open store", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer store.Cleanup()

	sheetsClient, err := sheets.New(ctx, sheets.Config{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetName:       cfg.GoogleSheetName,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
	})
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	amqpClient, err := cli.OpenAMQP(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	exporter := worker.NewExportWorker(facade.LocalFetcher{Store: store.Store}, sheetsClient, logger.Logger)

	caches := cache.NewManager(logger.Logger)
	caches.Register(exporter.Exported())
	caches.StartCleanup(10 * time.Minute)
	defer caches.Stop()

	runCtx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	go func() {
		err := amqpClient.ConsumeChanges(runCtx, exporter.HandleChange)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Message consumption failed", log.FieldError, err)
			os.Exit(1)
		}
	}()

	cli.WaitForShutdown(runCtx, done)
	logger.Info("Worker stopped")
}
