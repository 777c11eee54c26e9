package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/singleflight"

	"github.com/theresaanna/sentiment-analyzer-sub001/internal/api"
	"github.com/theresaanna/sentiment-analyzer-sub001/internal/config"
	"github.com/theresaanna/sentiment-analyzer-sub001/internal/dashboard"
	"github.com/theresaanna/sentiment-analyzer-sub001/internal/httpapi"
	"github.com/theresaanna/sentiment-analyzer-sub001/internal/jobs"
	"github.com/theresaanna/sentiment-analyzer-sub001/internal/notify"
	"github.com/theresaanna/sentiment-analyzer-sub001/internal/persistence"
	"github.com/theresaanna/sentiment-analyzer-sub001/internal/preload"
	"github.com/theresaanna/sentiment-analyzer-sub001/pkg/log"
)

var maintenanceGroup singleflight.Group

func main() {
	_ = godotenv.Load()

	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatal("Failed to load configuration: %v", err)
	}
	log.InitLogger(log.ParseLevel(cfg.System.LogLevel))

	var kv persistence.KeyValueStore
	if cfg.Storage.DBPath == "" {
		log.Warn("DB_PATH is empty, running without cross-session persistence")
		kv = persistence.NewMemoryStore()
	} else {
		store, err := persistence.NewSQLiteStore(cfg.Storage.DBPath)
		if err != nil {
			log.Fatal("Failed to open local store: %v", err)
		}
		defer func() { _ = store.Close() }()
		kv = store
	}

	client, err := api.NewClient(api.Config{
		BaseURL: cfg.API.BaseURL,
		Timeout: cfg.API.Timeout,
	})
	if err != nil {
		log.Fatal("Failed to create backend client: %v", err)
	}

	preloadCache := preload.NewCache(kv, client,
		preload.WithTTL(time.Duration(cfg.Preload.TTLHours)*time.Hour))
	jobStore := jobs.NewStore(kv, client, preloadCache,
		jobs.WithPollInterval(time.Duration(cfg.Poller.IntervalSeconds)*time.Second))
	defer jobStore.Stop()

	toasts := notify.NewCenter()
	service := dashboard.NewService(client, jobStore, preloadCache, toasts)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// One-shot hydrate of already-running jobs; opportunistic, may fail.
	loadCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	jobStore.InitialLoad(loadCtx)
	cancel()

	scheduler := cron.New()
	_, err = scheduler.AddFunc(cfg.Preload.SyncCronExpr, func() {
		_, _, _ = maintenanceGroup.Do("sync", func() (any, error) {
			syncCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			preloadCache.SyncWithServer(syncCtx)
			return nil, nil
		})
	})
	if err != nil {
		log.Fatal("Failed to schedule preload sync: %v", err)
	}
	_, err = scheduler.AddFunc(cfg.Preload.CleanCronExpr, func() {
		_, _, _ = maintenanceGroup.Do("clean", func() (any, error) {
			if preloadCache.CleanExpired() {
				log.Info("Removed expired preload records")
			}
			return nil, nil
		})
	})
	if err != nil {
		log.Fatal("Failed to schedule preload cleanup: %v", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	server := httpapi.NewServer(service, jobStore, httpapi.WithToastCenter(toasts))
	errCh := make(chan error, 1)
	go func() {
		log.Info("Dashboard API listening on %s", cfg.HTTP.Addr)
		errCh <- server.ListenAndServe(cfg.HTTP.Addr)
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server failed: %v", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("HTTP shutdown: %v", err)
	}
}
