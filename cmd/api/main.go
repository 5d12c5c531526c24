package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/baharkarakas/hodl-ledger/internal/api"
	"github.com/baharkarakas/hodl-ledger/internal/auth"
	"github.com/baharkarakas/hodl-ledger/internal/config"
	"github.com/baharkarakas/hodl-ledger/internal/ledger"
	"github.com/baharkarakas/hodl-ledger/internal/logger"
	"github.com/baharkarakas/hodl-ledger/internal/metrics"
	"github.com/baharkarakas/hodl-ledger/internal/services"
	"github.com/baharkarakas/hodl-ledger/internal/storage"
	"github.com/baharkarakas/hodl-ledger/internal/worker"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.Env, cfg.LogLevel)
	slog.SetDefault(log)

	if err := cfg.Validate(); err != nil {
		log.Error("config", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := storage.Open(ctx, cfg, log)
	if err != nil {
		log.Error("store", "err", err)
		os.Exit(1)
	}
	defer closeStore()

	// one worker: transfers reach the ledger in the order they were accepted
	wp := worker.NewPool(1, 1024)

	tm := auth.NewTokenManager(cfg.JWTAccessSecret, cfg.JWTRefreshSecret, cfg.JWTIssuer, cfg.AccessTTL, cfg.RefreshTTL)
	transferSvc := services.NewTransferService(store, ledger.NewUpdater(cfg.Ledger), wp, log)
	scoreSvc := services.NewScoreService(store, cfg.Ledger)
	if _, err := transferSvc.RecoverPending(ctx); err != nil {
		log.Error("recover pending transfers", "err", err)
		os.Exit(1)
	}

	metrics.Init()
	r := api.NewRouter(cfg, tm, transferSvc, scoreSvc)

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("server starting",
			"port", cfg.HTTPPort,
			"store", cfg.StoreDriver,
			"bucket_size", cfg.Ledger.BucketSize,
			"sentinel", cfg.Ledger.Sentinel)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)

	// finish what was accepted before closing the store
	wp.Stop()
	log.Info("stopped")
}
