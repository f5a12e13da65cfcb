// Package main runs the offline-first app core: local sqlite storage, a
// durable mutation queue and the background sync machinery, ready for a
// UI shell to drive.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"aicopilot/core/internal/config"
	"aicopilot/core/internal/db"
	"aicopilot/core/internal/logging"
	"aicopilot/core/internal/query"
	syncpkg "aicopilot/core/internal/sync"
	"aicopilot/core/internal/sync/realtime"
	"aicopilot/core/internal/sync/scheduler"
)

// Version is set at build time.
var Version = "0.1.0"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Load()
	logger := logging.New(os.Stderr, cfg.LogLevel)
	logger.Info("app core starting", "version", Version, "data_dir", cfg.DataDir)

	database, err := db.Open(cfg.DataDir)
	if err != nil {
		return err
	}
	defer database.Close()

	store := db.NewStore(database)
	queries := query.NewService(store, logger)

	token := func() string { return cfg.AuthToken }
	client := syncpkg.NewClient(cfg.APIBaseURL, cfg.RequestTimeout, token, logger)
	engine := syncpkg.NewEngine(store, client, cfg.MaxRetries, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sched := scheduler.New(engine, scheduler.Config{
		Interval:   cfg.SyncInterval,
		BackoffMin: cfg.BackoffMin,
		BackoffMax: cfg.BackoffMax,
	}, logger)
	sched.Start(ctx)
	defer sched.Stop()

	var listener *realtime.Listener
	if cfg.RealtimeURL != "" {
		listener = realtime.New(realtime.Config{
			URL:          cfg.RealtimeURL,
			Token:        token,
			ReconnectMin: cfg.BackoffMin,
			ReconnectMax: cfg.BackoffMax,
		}, func(ev realtime.Event) {
			logger.Debug("realtime event", "type", ev.Type, "entity", ev.EntityID)
			sched.TriggerSync()
		}, logger)
		listener.Start(ctx)
		defer listener.Stop()
	}

	if pending, err := queries.UnsyncedCount(); err == nil && pending > 0 {
		logger.Info("unsynced entities found at startup", "count", pending)
		sched.TriggerSync()
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	s := <-sig
	logger.Info("shutting down", "signal", s.String())
	return nil
}
