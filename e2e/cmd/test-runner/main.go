package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/saaga0h/lumen-platform/e2e/internal/executor"
	"github.com/saaga0h/lumen-platform/e2e/internal/reporter"
	"github.com/saaga0h/lumen-platform/e2e/internal/scenario"
	"github.com/saaga0h/lumen-platform/pkg/config"
	"github.com/saaga0h/lumen-platform/pkg/mqtt"
	"github.com/saaga0h/lumen-platform/pkg/redis"
)

func main() {
	// Redis settings follow the bridge: defaults → env → flags
	cfg := config.NewConfig()
	cfg.LoadFromEnv()

	fs := pflag.NewFlagSet("test-runner", pflag.ExitOnError)
	scenarioPath := fs.String("scenario", "", "Path to YAML scenario file (required)")
	mqttBroker := fs.String("mqtt-broker", "tcp://mosquitto:1883", "MQTT broker URL")
	outputDir := fs.String("output-dir", "./test-output", "Output directory for test artifacts")
	verbose := fs.Bool("verbose", false, "Enable verbose logging")
	fs.StringVar(&cfg.RedisHost, "redis-host", cfg.RedisHost, "Redis hostname")
	fs.IntVar(&cfg.RedisPort, "redis-port", cfg.RedisPort, "Redis port")
	fs.StringVar(&cfg.RedisPassword, "redis-password", cfg.RedisPassword, "Redis password")
	fs.IntVar(&cfg.RedisDB, "redis-db", cfg.RedisDB, "Redis database number")
	fs.Parse(os.Args[1:])

	if *scenarioPath == "" {
		fmt.Fprintf(os.Stderr, "Error: --scenario is required\n")
		fs.Usage()
		os.Exit(1)
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	logger.Info("Loading scenario", "path", *scenarioPath)
	scen, err := scenario.LoadScenario(*scenarioPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load scenario: %v\n", err)
		os.Exit(1)
	}

	// Only status checks need Redis
	var redisClient redis.Client
	if needsRedis(scen) {
		redisClient = redis.NewClient(cfg, logger)
		defer redisClient.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runner := executor.NewRunner(*mqttBroker, mqtt.NewFactory(logger), redisClient, logger)
	result, timelineEvents, err := runner.Run(ctx, scen)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Test execution failed: %v\n", err)
		os.Exit(1)
	}

	scenarioName := strings.TrimSuffix(filepath.Base(*scenarioPath), filepath.Ext(*scenarioPath))

	timeline := reporter.GenerateTimeline(result, timelineEvents)
	fmt.Println(timeline)

	timelinePath := filepath.Join(*outputDir, "timelines", scenarioName+".txt")
	if err := reporter.SaveTimeline(timeline, timelinePath); err != nil {
		logger.Warn("Failed to save timeline", "error", err)
	} else {
		logger.Info("Timeline saved", "path", timelinePath)
	}

	summaryPath := filepath.Join(*outputDir, "summaries", scenarioName+".json")
	if err := reporter.SaveSummary(result, summaryPath); err != nil {
		logger.Warn("Failed to save summary", "error", err)
	} else {
		logger.Info("Summary saved", "path", summaryPath)
	}

	if !result.Passed {
		os.Exit(1)
	}
}

func needsRedis(s *scenario.Scenario) bool {
	for _, exp := range s.Expectations {
		if len(exp.Status) > 0 {
			return true
		}
	}
	return false
}
