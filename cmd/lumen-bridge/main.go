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

	"github.com/saaga0h/lumen-platform/internal/bridge"
	"github.com/saaga0h/lumen-platform/internal/settings"
	"github.com/saaga0h/lumen-platform/pkg/config"
	"github.com/saaga0h/lumen-platform/pkg/health"
	"github.com/saaga0h/lumen-platform/pkg/mqtt"
	"github.com/saaga0h/lumen-platform/pkg/postgres"
	"github.com/saaga0h/lumen-platform/pkg/redis"
)

func main() {
	// Load configuration with hierarchy: defaults → env → flags
	cfg := config.NewConfig()
	cfg.LoadFromEnv()
	cfg.LoadFromFlags()

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	logLevel := parseLogLevel(cfg.LogLevel)
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Load the settings record, falling back to platform defaults
	store := settings.NewStore(cfg.SettingsPath, logger)
	s, found, err := store.LoadOrDefaults(settings.DetectPlatform())
	if err != nil {
		logger.Error("Failed to load settings", "path", store.Path(), "error", err)
		os.Exit(1)
	}
	if !found {
		logger.Warn("No settings saved yet, using defaults", "path", store.Path())
	}
	if err := s.Validate(); err != nil {
		logger.Error("Invalid settings", "path", store.Path(), "error", err)
		os.Exit(1)
	}

	logger.Info("Starting lumen bridge",
		"service_name", cfg.ServiceName,
		"device", cfg.DeviceName,
		"mqtt_server", s.MQTTServer,
		"mqtt_topic", s.MQTTTopic,
		"telemetry", cfg.EnableTelemetry,
		"journal", cfg.EnableJournal,
		"log_level", cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	var redisClient redis.Client
	if cfg.EnableTelemetry {
		redisClient = redis.NewClient(cfg, logger)
	}
	var postgresClient postgres.Client
	if cfg.EnableJournal {
		postgresClient = postgres.NewClient(cfg, logger)
	}

	agent := bridge.NewAgent(cfg, s, mqtt.NewFactory(logger), redisClient, postgresClient, logger)

	healthChecker := health.NewChecker(agent.BrokerStatus(), agent.Capture(), redisClient, postgresClient, logger)
	httpServer := startHealthServer(cfg.HealthPort, healthChecker, logger)

	agentErr := make(chan error, 1)
	go func() {
		if err := agent.Start(ctx); err != nil {
			agentErr <- err
		}
	}()

	// Wait for shutdown signal or agent error; SIGHUP reloads settings
	running := true
	for running {
		select {
		case sig := <-sigChan:
			if sig == syscall.SIGHUP {
				reloadSettings(store, agent, logger)
				continue
			}
			logger.Info("Shutdown signal received", "signal", sig.String())
			running = false
		case err := <-agentErr:
			logger.Error("Bridge failed", "error", err)
			running = false
		}
	}

	logger.Info("Initiating graceful shutdown")
	cancel()

	if err := agent.Stop(); err != nil {
		logger.Error("Error stopping bridge", "error", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error shutting down health server", "error", err)
	}

	logger.Info("Lumen bridge shutdown complete")
}

func reloadSettings(store *settings.Store, agent *bridge.Agent, logger *slog.Logger) {
	s, err := store.Load()
	if errors.Is(err, settings.ErrNoSettings) {
		logger.Warn("No settings saved, nothing to reload", "path", store.Path())
		return
	}
	if err != nil {
		logger.Error("Failed to reload settings", "path", store.Path(), "error", err)
		return
	}
	if err := agent.ApplySettings(s); err != nil {
		logger.Error("Failed to apply settings", "error", err)
		return
	}
	logger.Info("Settings reloaded", "gamma", s.Gamma)
}

func startHealthServer(port int, checker *health.Checker, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", checker.HandlerFunc())
	mux.HandleFunc("/health/detailed", checker.DetailedHandlerFunc())

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	go func() {
		logger.Info("Starting health check server", "port", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Health server error", "error", err)
		}
	}()

	return server
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
