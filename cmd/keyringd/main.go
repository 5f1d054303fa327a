package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/better-wallet/keyring/internal/api"
	"github.com/better-wallet/keyring/internal/app"
	"github.com/better-wallet/keyring/internal/config"
	"github.com/better-wallet/keyring/internal/logger"
	"github.com/better-wallet/keyring/internal/metrics"
	"github.com/better-wallet/keyring/internal/seal"
	"github.com/better-wallet/keyring/internal/storage"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := logger.Init(); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	ctx := context.Background()

	// Initialize the state store based on backend type
	store, closeStore, err := newStore(ctx, cfg)
	if err != nil {
		slog.Error("failed to initialize state store", "backend", cfg.StateBackend, "error", err)
		os.Exit(1)
	}
	defer closeStore()

	slog.Info("state store ready", "backend", cfg.StateBackend, "seal", cfg.SealBackend)

	// Load the persisted state
	state, err := app.LoadState(ctx, store)
	if err != nil {
		slog.Error("failed to load state", "error", err)
		os.Exit(1)
	}

	// Initialize metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	m := metrics.New(registry)

	keyring := app.New(state, store, app.Options{
		UniqueNames: cfg.UniqueNames,
		OnPersist:   func(bytes int) { m.PersistedBytes.Set(float64(bytes)) },
	})

	// Initialize API server
	server := api.NewServer(cfg, keyring, m)

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- server.Start(registry)
	}()

	slog.Info("keyring daemon started", "port", cfg.Port)

	// Setup signal handling for graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Wait for either server error or shutdown signal
	select {
	case err := <-serverErrors:
		slog.Error("server error", "error", err)
		os.Exit(1)

	case sig := <-shutdown:
		slog.Info("received shutdown signal", "signal", sig.String())

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("error during shutdown", "error", err)
			slog.Warn("forcing shutdown")
		}
	}

	slog.Info("keyring daemon stopped")
}

// newStore builds the configured state store, optionally wrapped with a
// sealer. The returned func releases backend resources.
func newStore(ctx context.Context, cfg *config.Config) (storage.StateStore, func(), error) {
	var (
		store storage.StateStore
		done  = func() {}
	)

	switch cfg.StateBackend {
	case config.StateBackendMemory:
		store = storage.NewMemoryStore()
	case config.StateBackendFile:
		store = storage.NewFileStore(cfg.StateFilePath)
	case config.StateBackendPostgres:
		pg, err := storage.NewPostgresStore(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		store = pg
		done = pg.Close
	case config.StateBackendVault:
		vs, err := storage.NewVaultStore(&storage.VaultConfig{
			Address: cfg.VaultAddress,
			Token:   cfg.VaultToken,
			KVMount: cfg.VaultKVMount,
			KVPath:  cfg.VaultKVPath,
		})
		if err != nil {
			return nil, nil, err
		}
		store = vs
	}

	if cfg.SealBackend == config.SealBackendKMS {
		sealer, err := seal.NewKMSSealer(ctx, cfg.KMSKeyID, cfg.KMSRegion)
		if err != nil {
			done()
			return nil, nil, err
		}
		store = storage.NewSealedStore(store, sealer)
	}

	return store, done, nil
}
