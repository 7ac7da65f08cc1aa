package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lysyi3m/rent-comb/app/api"
	"github.com/lysyi3m/rent-comb/app/cache"
	"github.com/lysyi3m/rent-comb/app/cfg"
	"github.com/lysyi3m/rent-comb/app/database"
	"github.com/lysyi3m/rent-comb/app/fetch"
	"github.com/lysyi3m/rent-comb/app/listing"
	"github.com/lysyi3m/rent-comb/app/notify"
	"github.com/lysyi3m/rent-comb/app/tasks"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown
		return
	}

	setupLogger(appCfg.Debug)

	if err := run(); err != nil {
		slog.Error("Rent Comb stopped with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	appCfg := cfg.Get()
	slog.Info("Starting Rent Comb", "version", appCfg.Version, "store", appCfg.Store, "profile", appCfg.Profile)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	profile, err := listing.LoadProfile(appCfg.Profile)
	if err != nil {
		return fmt.Errorf("failed to load profile: %w", err)
	}

	store, err := openStore(ctx, appCfg)
	if err != nil {
		return err
	}
	defer store.Close()

	orchestrator, err := fetch.NewOrchestrator(profile, fetch.Options{
		UserAgent: appCfg.UserAgent,
		Workers:   appCfg.WorkerCount,
		RateLimit: appCfg.RateLimit,
		RetryMax:  appCfg.RetryMax,
	})
	if err != nil {
		return fmt.Errorf("failed to create orchestrator: %w", err)
	}

	gate := notify.NewGate(store, newNotifier(appCfg), profile.FloorThreshold())

	scheduler := tasks.NewScheduler(profile, orchestrator, cache.NewListingCache(), gate, appCfg.PollIntervalDuration())
	scheduler.Start()
	slog.Info("Poll loop started", "profile", profile.Name, "interval", appCfg.PollIntervalDuration(),
		"workers", appCfg.WorkerCount, "floor_threshold", profile.FloorThreshold())

	handler := api.NewHandler(scheduler, store, appCfg.Version)
	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      api.NewServer(handler, appCfg.APIAccessKey),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		slog.Info("Shutdown signal received")
	case runErr = <-serverErrChan:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	scheduler.Stop()
	slog.Info("Rent Comb shutdown complete")

	return runErr
}

func openStore(ctx context.Context, appCfg *cfg.Cfg) (database.RecordStore, error) {
	if appCfg.Store == cfg.StoreRedis {
		store, err := database.NewRedisRecordStore(ctx, appCfg.RedisAddr, appCfg.RedisPassword, appCfg.RedisDB)
		if err != nil {
			return nil, fmt.Errorf("failed to open redis store: %w", err)
		}
		return store, nil
	}

	db, err := database.NewConnection(appCfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	slog.Info("Database ready", "path", appCfg.DBPath, "migration_version", version, "dirty", dirty)

	return database.NewRecordRepository(db), nil
}

func newNotifier(appCfg *cfg.Cfg) notify.Notifier {
	if !appCfg.TelegramEnabled() {
		slog.Warn("Telegram not configured, notifications will only be logged")
		return notify.NewLogNotifier()
	}
	return notify.NewTelegramNotifier(appCfg.TelegramAPIURL, appCfg.TelegramToken, appCfg.TelegramChatID, appCfg.RetryMax)
}

func setupLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))
}
