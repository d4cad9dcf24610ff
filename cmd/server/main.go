package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alaiso/hubd/internal/api"
	"github.com/alaiso/hubd/internal/campsync"
	"github.com/alaiso/hubd/internal/config"
	"github.com/alaiso/hubd/internal/store"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		log.Error("failed to open database", "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}

	syncer := campsync.NewSyncer(st, log, campsync.Config{
		BaseURL:     cfg.InstantlyBaseURL,
		Workers:     cfg.SyncWorkers,
		QueueSize:   cfg.SyncQueueSize,
		JobTTL:      cfg.JobTTL,
		Interval:    cfg.SyncInterval,
		StatsWindow: cfg.StatsWindow,
	})
	syncer.Start(ctx)

	srv := api.NewServer(st, syncer, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		// Drain in-flight requests before the syncer stops accepting jobs.
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		syncer.Stop()
		st.Close()
	}()

	log.Info("starting hubd", "port", cfg.Port)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
