package main

import (
	"context"
	"errors"
	"os"

	"golang.org/x/sync/errgroup"

	"szamlazo/internal/amqp"
	"szamlazo/internal/cli"
	"szamlazo/internal/journal"
	gjournal "szamlazo/internal/journal/google"
	mem "szamlazo/internal/journal/memory"
	"szamlazo/internal/log"
	"szamlazo/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentWorker)
	cfg := cli.LoadAndValidateConfig(logger)

	if !cfg.AMQPEnabled() {
		logger.Error("AMQP_URL is required for the worker", log.FieldErrorType, log.ErrorTypeConfiguration)
		os.Exit(1)
	}

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	var sink journal.Writer
	if cfg.SheetsEnabled() {
		credFile := cfg.GoogleServiceAccountFile
		if credFile == "" {
			credFile = cfg.GoogleApplicationCredentials
		}
		client, err := gjournal.New(ctx, cfg.GoogleSpreadsheetID, cfg.GoogleSheetName, gjournal.Credentials{
			JSON: cfg.GoogleServiceAccountJSON,
			File: credFile,
		})
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", log.FieldError, err, log.FieldErrorType, log.ErrorTypeConfiguration)
			os.Exit(1)
		}
		if err := client.EnsureHeader(ctx); err != nil {
			logger.Error("Failed to prepare journal sheet", log.FieldError, err, log.FieldErrorType, log.ErrorTypeNetwork)
			os.Exit(1)
		}
		sink = client
		logger.Info("Journaling invoice events to Google Sheets",
			"spreadsheet_id", cfg.GoogleSpreadsheetID,
			"sheet", cfg.GoogleSheetName)
	} else {
		sink = mem.New(logger.WithComponent(log.ComponentJournal).Logger, mem.DefaultCapacity)
		logger.Info("Google Sheets disabled - journaling to the log only")
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err, log.FieldErrorType, log.ErrorTypeNetwork)
		os.Exit(1)
	}
	defer amqpClient.Close()

	journalWorker := worker.NewJournalWorker(sink)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Consuming invoice events", "queue", cfg.AMQPQueue, log.FieldOperation, log.OpConsume)
		err := amqpClient.ConsumeInvoiceEvents(gctx, journalWorker.HandleInvoiceEvent)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	if err := g.Wait(); err != nil {
		logger.Error("Message consumption failed", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker stopped", log.FieldOperation, log.OpShutdown)
}
