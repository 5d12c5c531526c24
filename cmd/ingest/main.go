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

	"github.com/baharkarakas/hodl-ledger/internal/config"
	"github.com/baharkarakas/hodl-ledger/internal/feed"
	"github.com/baharkarakas/hodl-ledger/internal/ledger"
	"github.com/baharkarakas/hodl-ledger/internal/logger"
	"github.com/baharkarakas/hodl-ledger/internal/metrics"
	"github.com/baharkarakas/hodl-ledger/internal/retry"
	"github.com/baharkarakas/hodl-ledger/internal/services"
	"github.com/baharkarakas/hodl-ledger/internal/storage"
)

// ingest folds the Redis transfer stream into the ledger. Run exactly one
// per stream; a second consumer would break event order.
func main() {
	cfg := config.Load()
	log := logger.New(cfg.Env, cfg.LogLevel).With("component", "ingest")
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

	rdb, err := feed.NewClient(ctx, feed.ClientConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, log)
	if err != nil {
		log.Error("redis", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	// Apply is called inline by the consumer, so no worker pool is needed.
	transferSvc := services.NewTransferService(store, ledger.NewUpdater(cfg.Ledger), nil, log)
	proc := feed.NewProcessor(transferSvc, retry.DefaultConfig(), log)

	consumer, err := feed.NewConsumer(rdb, feed.ConsumerConfig{
		Stream:   cfg.RedisStream,
		Group:    cfg.RedisGroup,
		Consumer: cfg.RedisConsumer,
	}, log)
	if err != nil {
		log.Error("consumer", "err", err)
		os.Exit(1)
	}

	metrics.Init()
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("ok")) })
	srv := &http.Server{Addr: ":" + cfg.HTTPPort, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server", "err", err)
		}
	}()

	log.Info("consuming", "stream", cfg.RedisStream, "group", cfg.RedisGroup, "consumer", cfg.RedisConsumer)
	if err := consumer.Run(ctx, proc.Handle); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("consumer stopped", "err", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	log.Info("stopped")
}
