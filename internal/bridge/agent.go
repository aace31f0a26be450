// Package bridge assembles the lumen bridge service: broker connection,
// capture loop and the optional telemetry, journal and daylight components.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/saaga0h/lumen-platform/internal/broker"
	"github.com/saaga0h/lumen-platform/internal/capture"
	"github.com/saaga0h/lumen-platform/internal/daylight"
	"github.com/saaga0h/lumen-platform/internal/journal"
	"github.com/saaga0h/lumen-platform/internal/settings"
	"github.com/saaga0h/lumen-platform/internal/telemetry"
	"github.com/saaga0h/lumen-platform/pkg/config"
	"github.com/saaga0h/lumen-platform/pkg/health"
	"github.com/saaga0h/lumen-platform/pkg/mqtt"
	"github.com/saaga0h/lumen-platform/pkg/postgres"
	"github.com/saaga0h/lumen-platform/pkg/redis"
)

const statsInterval = time.Second

// Agent runs the bridge
type Agent struct {
	cfg      *config.Config
	settings *settings.Settings
	logger   *slog.Logger

	manager   *broker.Manager
	capture   *capture.Controller
	scheduler *daylight.Scheduler

	redis    redis.Client
	postgres postgres.Client

	wg sync.WaitGroup
}

// NewAgent builds the bridge from the service config and the settings record.
// redisClient and postgresClient may be nil to disable telemetry and the
// journal.
func NewAgent(cfg *config.Config, s *settings.Settings, factory mqtt.Factory, redisClient redis.Client, postgresClient postgres.Client, logger *slog.Logger) *Agent {
	a := &Agent{
		cfg:      cfg,
		settings: s,
		logger:   logger,
		redis:    redisClient,
		postgres: postgresClient,
	}

	streaming := s.MQTTEnable && (s.MQTTStream || cfg.StreamEnabled)
	var sink capture.FrameSink
	forward := &managerSink{}
	if streaming {
		sink = forward
	}
	a.capture = capture.NewController(capture.NewPatternSource(s), sink, cfg.CaptureFPS, s.Gamma, logger)

	opts := broker.OptionsFromSettings(s, cfg.DeviceName)
	opts.ConnectTimeout = cfg.ConnectTimeout
	opts.ReconnectInterval = cfg.ReconnectInterval
	a.manager = broker.NewManager(opts, factory, a.capture, logAlerter{logger: logger}, logger)
	forward.manager = a.manager

	if cfg.EnableDaylightSchedule {
		a.scheduler = daylight.NewScheduler(a.capture, cfg.Latitude, cfg.Longitude, cfg.DaylightCheckInterval, logger)
	}

	return a
}

// managerSink forwards frames to the broker stream channel
type managerSink struct {
	manager *broker.Manager
}

func (s *managerSink) Stream(payload []byte) {
	s.manager.Stream(payload)
}

// Start connects the stores and the broker and runs until ctx is cancelled.
// A failed broker connection does not stop the bridge.
func (a *Agent) Start(ctx context.Context) error {
	if a.redis != nil {
		if err := a.redis.Ping(ctx); err != nil {
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}
		store := telemetry.NewStore(a.redis, a.cfg.DeviceName, a.logger)
		a.manager.AddObserver(store)
		a.capture.AddObserver(store)
	}

	if a.postgres != nil {
		if err := a.postgres.Connect(ctx); err != nil {
			return fmt.Errorf("failed to connect to Postgres: %w", err)
		}
		j := journal.New(a.postgres, a.cfg.DeviceName, a.logger)
		if err := j.Migrate(ctx); err != nil {
			return err
		}
		a.manager.AddObserver(j)
	}

	if a.settings.MQTTEnable {
		if err := a.manager.Connect(ctx); err != nil {
			a.logger.Warn("Remote control disabled", "error", err)
		}
	} else {
		a.logger.Info("MQTT disabled in settings")
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.capture.RunStats(ctx, statsInterval)
	}()

	if a.scheduler != nil {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			a.scheduler.Run(ctx)
		}()
	}

	a.logger.Info("Bridge started",
		"device", a.cfg.DeviceName,
		"topic", a.settings.MQTTTopic,
		"leds", a.settings.TotalLEDs())

	<-ctx.Done()
	a.wg.Wait()
	return nil
}

// ApplySettings applies the parts of a new settings record that can change
// while running
func (a *Agent) ApplySettings(s *settings.Settings) error {
	if err := a.capture.SetGamma(s.Gamma); err != nil {
		return fmt.Errorf("failed to apply gamma: %w", err)
	}
	return nil
}

// Stop closes the broker connection, stops capture and releases the stores
func (a *Agent) Stop() error {
	a.manager.Close()
	a.capture.StopCapture()

	var errs []error
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close Redis: %w", err))
		}
	}
	if a.postgres != nil {
		if err := a.postgres.Disconnect(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Broker returns the broker connection manager
func (a *Agent) Broker() *broker.Manager {
	return a.manager
}

// BrokerStatus returns the broker for health reporting, or nil when MQTT is
// disabled in the settings
func (a *Agent) BrokerStatus() health.BrokerStatus {
	if !a.settings.MQTTEnable {
		return nil
	}
	return a.manager
}

// Capture returns the capture controller
func (a *Agent) Capture() *capture.Controller {
	return a.capture
}
