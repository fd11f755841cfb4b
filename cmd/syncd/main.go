package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/wycenapp/wycena-sync/api/routes"
	"github.com/wycenapp/wycena-sync/internal/clients"
	"github.com/wycenapp/wycena-sync/internal/connectivity"
	"github.com/wycenapp/wycena-sync/internal/quotes"
	"github.com/wycenapp/wycena-sync/internal/remote"
	"github.com/wycenapp/wycena-sync/internal/store"
	"github.com/wycenapp/wycena-sync/internal/syncqueue"
	"github.com/wycenapp/wycena-sync/pkg/config"
	"github.com/wycenapp/wycena-sync/pkg/db"
	"github.com/wycenapp/wycena-sync/pkg/logger"
	"github.com/wycenapp/wycena-sync/pkg/metrics"
	"github.com/wycenapp/wycena-sync/pkg/migrate"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "syncd"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "syncd",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRun(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run migrations", err)
		os.Exit(1)
	}

	remoteClient, err := remote.NewHTTPClient(cfg.Remote)
	if err != nil {
		logg.Error(context.Background(), "failed to build remote client", err)
		os.Exit(1)
	}

	st := store.NewStore(dbClient.DB())
	syncMetrics := metrics.NewSyncMetrics(prometheus.DefaultRegisterer)

	engine, err := syncqueue.NewEngine(syncqueue.Params{
		Store:       st,
		Remote:      remoteClient,
		Logger:      logg,
		Metrics:     syncMetrics,
		MaxAttempts: cfg.Sync.MaxAttempts,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create sync engine", err)
		os.Exit(1)
	}
	if err := engine.RefreshPending(context.Background()); err != nil {
		logg.Error(context.Background(), "failed to count pending mutations", err)
		os.Exit(1)
	}

	monitor, err := connectivity.NewMonitor(connectivity.Params{
		Syncer:        engine,
		Prober:        remoteClient,
		Logger:        logg,
		OwnerID:       cfg.Sync.OwnerID,
		ProbeInterval: cfg.Sync.ProbeInterval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create connectivity monitor", err)
		os.Exit(1)
	}

	quoteService, err := quotes.NewService(st, remoteClient, engine, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create quotes service", err)
		os.Exit(1)
	}
	clientService, err := clients.NewService(st, remoteClient, engine, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create clients service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	go func() {
		if err := monitor.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logg.Error(ctx, "connectivity monitor stopped unexpectedly", err)
		}
	}()

	addr := "127.0.0.1:" + cfg.App.Port
	logCtx := logg.WithFields(ctx, map[string]any{
		"env":   cfg.App.Env,
		"addr":  addr,
		"owner": cfg.Sync.OwnerID,
	})
	logg.Info(logCtx, "starting sync daemon")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, st, engine, monitor, quoteService, clientService),
	}

	go func() {
		<-ctx.Done()
		if err := server.Shutdown(context.Background()); err != nil {
			logg.Error(logCtx, "error shutting down server", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logg.Error(logCtx, "sync daemon stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(logCtx, "sync daemon shutting down gracefully")
}
