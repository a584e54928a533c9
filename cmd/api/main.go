package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"github.com/centavoapp/centavo/internal/api"
	"github.com/centavoapp/centavo/internal/config"
	"github.com/centavoapp/centavo/internal/currency"
	"github.com/centavoapp/centavo/internal/dashboard"
	"github.com/centavoapp/centavo/internal/importer"
	"github.com/centavoapp/centavo/internal/jobs/inmemory"
	"github.com/centavoapp/centavo/internal/ledger"
	"github.com/centavoapp/centavo/internal/logger"
	"github.com/centavoapp/centavo/internal/scheduler"
	"github.com/centavoapp/centavo/internal/store"
	"github.com/centavoapp/centavo/internal/store/memory"
	"github.com/centavoapp/centavo/internal/store/postgres"
)

func main() {
	envFile := flag.String("env", "", "path to a .env file (default: ./.env if present)")
	flag.Parse()

	log := logger.New("api")

	cfg, err := config.Load(*envFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	ctx := context.Background()

	// Persistence: Postgres in production, in-memory for development.
	var st store.Store
	var pg *postgres.Store
	if cfg.InMemory {
		log.Warn().Msg("Using the in-memory store - data is lost on restart")
		st = memory.New()
	} else {
		pg, err = postgres.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Postgres")
		}
		defer pg.Close()
		st = pg
	}

	// Exchange rates: file if configured, otherwise the database table.
	var rates *currency.Table
	if cfg.RatesFile != "" {
		rates, err = currency.LoadFile(cfg.RatesFile)
	} else {
		var raw map[string]decimal.Decimal
		raw, err = pg.LoadRates(ctx)
		if err == nil {
			rates, err = currency.NewTable(cfg.ReferenceCurrency, raw)
		}
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load exchange rates")
	}
	log.Info().Strs("currencies", rates.Codes()).Str("reference", rates.Reference()).Msg("Exchange rates loaded")

	// Services.
	ledgerSvc := ledger.NewService(st, log)
	dashboardSvc := dashboard.NewService(st, rates, log)
	sched := scheduler.New(st, log, scheduler.WithInterval(time.Duration(cfg.SchedulerIntervalMinutes)*time.Minute))

	// Import job infrastructure.
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(cfg.ImportQueueSize, cfg.ImportWorkers, jobStore)
	importWorker := importer.NewWorker(ledgerSvc, st, log)

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	go func() {
		if err := jobQueue.Start(workerCtx, importWorker.Handler()); err != nil {
			log.Error().Err(err).Msg("Import worker stopped with error")
		}
	}()
	go sched.Start(workerCtx)

	handler := api.NewRouter(api.Deps{
		Store:     st,
		Rates:     rates,
		Ledger:    ledgerSvc,
		Dashboard: dashboardSvc,
		Scheduler: sched,
		Publisher: jobQueue,
		JobStore:  jobStore,
		Log:       log,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	cancelWorker()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}
	if err := jobQueue.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close job queue")
	}

	log.Info().Msg("Server exited")
}
