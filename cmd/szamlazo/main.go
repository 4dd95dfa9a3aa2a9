package main

import (
	"context"
	"errors"
	"net/http"
	"os"

	"github.com/pkg/browser"
	"golang.org/x/sync/errgroup"

	"szamlazo/internal/amqp"
	"szamlazo/internal/cli"
	apphttp "szamlazo/internal/http"
	"szamlazo/internal/log"
	"szamlazo/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	// Left as a nil interface when AMQP is off; services skip publishing then.
	var events services.EventPublisher
	if cfg.AMQPEnabled() {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client",
				log.FieldError, err,
				log.FieldErrorType, log.ErrorTypeNetwork)
			os.Exit(1)
		}
		defer client.Close()
		events = client
		logger.Info("Publishing invoice events", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	srv := apphttp.NewServer(cfg.Addr(), apphttp.Dependencies{
		Invoices:        services.NewInvoiceService(repo, events, cfg.DefaultCurrency, cfg.DefaultDueDays),
		Companies:       services.NewCompanyService(repo),
		Owner:           services.NewOwnerService(repo),
		Statistics:      services.NewStatisticsService(repo, cfg.DefaultCurrency),
		DB:              repo,
		MaxUploadBytes:  cfg.MaxUploadBytes,
		ImportRateLimit: cfg.ImportRateLimit,
		Logger:          logger,
	})

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting szamlazo server", "addr", cfg.Addr(), log.FieldOperation, log.OpStartup)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if cfg.OpenBrowser {
		url := cfg.BaseURL()
		if err := browser.OpenURL(url); err != nil {
			logger.Warn("Could not open browser", log.FieldError, err, "url", url)
		}
	}

	if err := g.Wait(); err != nil {
		logger.Error("Server error", log.FieldError, err, "addr", cfg.Addr())
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully", log.FieldOperation, log.OpShutdown)
}
