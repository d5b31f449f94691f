package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"bridgelink/internal/bridge"
	"bridgelink/internal/config"
	"bridgelink/internal/remote"
	"bridgelink/internal/status"

	"github.com/gin-gonic/gin"
)

func main() {
	// Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	// Setup structured logging
	logger := cfg.NewLogger()
	slog.SetDefault(logger)

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Snapshot cache is optional; the controller runs without it
	var store *status.SnapshotStore
	if cfg.RedisURL != "" {
		store, err = status.NewSnapshotStore(cfg.RedisURL, cfg.RedisPassword, cfg.SnapshotTTL)
		if err != nil {
			logger.Warn("snapshot_cache_disabled", "error", err.Error())
			store = nil
		}
	}

	router := bridge.NewRouter(logger)
	bridge.RegisterBuiltins(router)

	manager := remote.NewConnectionManager(router.Dispatch, remote.Options{
		BindHost:     cfg.BindHost,
		CommandPort:  cfg.CommandPort,
		PushPort:     cfg.PushPort,
		PollInterval: cfg.PollInterval,
		MaxFrameSize: cfg.MaxFrameSize,
		WriteTimeout: cfg.WriteTimeout,
		PushBuffer:   cfg.PushBuffer,
		CommandRate:  cfg.CommandRate,
		CommandBurst: cfg.CommandBurst,
		Logger:       logger,
	})

	pusher := status.NewMirroredPusher(manager, store, logger)
	sim := bridge.NewSimulation(pusher, bridge.SimulationOptions{
		StatusInterval: cfg.StatusInterval,
		Logger:         logger,
	})
	sim.Register(router)

	logger.Info("starting_bridge_controller",
		"bind_host", cfg.BindHost,
		"command_port", cfg.CommandPort,
		"push_port", cfg.PushPort,
		"http_port", cfg.HTTPPort,
		"commands", router.Names(),
	)

	if err := manager.Open(cfg.APSSID, cfg.APPassword); err != nil {
		logger.Error("failed_to_open_connection_manager", "error", err.Error())
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		sim.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		status.RecordState(ctx, sim, store, cfg.StatusInterval, logger)
	}()

	// Status API
	errChan := make(chan error, 1)
	var httpServer *http.Server
	if cfg.HTTPPort > 0 {
		handler := status.NewHandler(manager, pusher, sim, store, logger)
		httpServer = &http.Server{
			Addr:              fmt.Sprintf("%s:%d", cfg.BindHost, cfg.HTTPPort),
			Handler:           status.NewRouter(handler, logger),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.Info("status_api_listening", "addr", httpServer.Addr)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- err
			}
		}()
	}

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	exitCode := 0
	select {
	case <-sigChan:
		logger.Info("received_shutdown_signal")
	case err := <-errChan:
		logger.Error("status_api_error", "error", err.Error())
		exitCode = 1
	}

	if httpServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("status_api_shutdown_failed", "error", err.Error())
		}
		shutdownCancel()
	}

	cancel()
	wg.Wait()
	manager.Close()

	store.Close()

	logger.Info("bridge_controller_stopped", "stats", manager.Stats())
	if exitCode != 0 {
		os.Exit(exitCode)
	}
}
