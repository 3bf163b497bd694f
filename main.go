// Copyright 2025 Certen Protocol
//
// Trusted-Setup Ceremony Coordinator
// Long-running server that admits external contributors, serializes them
// into a global round sequence, exchanges artifacts via presigned
// object-store URLs and verifies each contribution before advancing.

package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/certen/ceremony-coordinator/pkg/config"
	"github.com/certen/ceremony-coordinator/pkg/coordinator"
	"github.com/certen/ceremony-coordinator/pkg/metrics"
	"github.com/certen/ceremony-coordinator/pkg/objectstore"
	"github.com/certen/ceremony-coordinator/pkg/server"
	"github.com/certen/ceremony-coordinator/pkg/tokens"
)

func main() {
	logger := log.New(log.Writer(), "[Ceremony] ", log.LstdFlags)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("Invalid configuration: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Object-store gateway
	gateway, err := objectstore.NewGateway(ctx, objectstore.GatewayConfig{
		Bucket:          cfg.S3Bucket,
		Region:          cfg.S3Region,
		Endpoint:        cfg.S3Endpoint,
		Production:      cfg.S3Production,
		PresignLifetime: cfg.PresignLifetime,
	}, nil)
	if err != nil {
		logger.Fatalf("Failed to create the object-store gateway: %v", err)
	}

	// Metrics
	registry := prometheus.NewRegistry()
	ceremonyMetrics := metrics.New(registry)
	gateway.SetRetryHook(func(op string) {
		ceremonyMetrics.ObjectStoreRetries.WithLabelValues(op).Inc()
	})

	// Cohort token store
	store := tokens.NewStore(tokens.StoreConfig{
		ZipPath:        cfg.TokensZipFile,
		ExtractPath:    cfg.TokensPath,
		CohortDuration: cfg.CohortDuration,
	}, nil)
	if err := bootstrapTokens(ctx, store, gateway, logger); err != nil {
		logger.Fatalf("Failed to load the admission tokens: %v", err)
	}

	// Coordinator state
	storage, err := coordinator.NewDiskStorage(cfg.StoragePath)
	if err != nil {
		logger.Fatalf("Failed to open ceremony storage: %v", err)
	}
	coord, err := coordinator.New(coordinator.Options{
		Storage:            storage,
		HeartbeatTimeout:   cfg.HeartbeatTimeout,
		InitialReliability: cfg.InitialReliability,
	})
	if err != nil {
		logger.Fatalf("Failed to create the coordinator: %v", err)
	}
	if err := coord.Initialize(); err != nil {
		logger.Fatalf("Failed to initialize the coordinator: %v", err)
	}

	// Periodic driver and request pipeline
	driver := server.NewDriver(coord, gateway, ceremonyMetrics, cfg.UpdateInterval, nil)
	pipeline := server.NewServer(server.Config{
		AccessSecret:       cfg.AccessSecret,
		VerifierKey:        cfg.VerifierKey,
		HealthPath:         cfg.HealthPath,
		InitialReliability: cfg.InitialReliability,
		DebugEndpoints:     cfg.DebugEndpoints,
	}, coord, gateway, store, driver, ceremonyMetrics, registry, nil)

	httpServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: pipeline.Routes(),
	}

	shutdown := make(chan struct{}, 1)
	pipeline.SetStopFunc(func() {
		select {
		case shutdown <- struct{}{}:
		default:
		}
	})

	go driver.Run(ctx)

	go func() {
		logger.Printf("Ceremony coordinator listening on %s", cfg.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server failed: %v", err)
		}
	}()

	// Wait for a termination signal or a /stop request
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-signals:
		logger.Printf("Received signal %v, shutting down", sig)
		if err := coord.Shutdown(); err != nil && !errors.Is(err, coordinator.ErrShutdown) {
			logger.Printf("Error while shutting the coordinator down: %v", err)
		}
	case <-shutdown:
		logger.Printf("Stop requested, shutting down")
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Printf("Error while shutting the HTTP server down: %v", err)
	}

	logger.Printf("Ceremony coordinator stopped")
}

// bootstrapTokens loads the cohort sets from the local archive when one is
// present, and falls back to fetching the archive from the bucket.
func bootstrapTokens(ctx context.Context, store *tokens.Store, gateway *objectstore.Gateway, logger *log.Logger) error {
	if err := store.LoadFromDisk(); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		logger.Printf("Local token archive unreadable: %v", err)
	}

	logger.Printf("Fetching the token archive from the bucket")
	archive, err := gateway.GetTokens(ctx)
	if err != nil {
		return err
	}
	return store.LoadArchive(archive)
}
