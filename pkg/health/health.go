package health

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/saaga0h/lumen-platform/pkg/postgres"
	"github.com/saaga0h/lumen-platform/pkg/redis"
)

const dependencyTimeout = time.Second

// Service states reported by the detailed handler
const (
	StatusConnected    = "connected"
	StatusDisconnected = "disconnected"
	StatusDisabled     = "disabled"
	StatusRunning      = "running"
	StatusStopped      = "stopped"
)

// BrokerStatus exposes the broker connection state
type BrokerStatus interface {
	IsConnected() bool
	CommunicationError() bool
}

// CaptureStatus exposes whether the capture loop runs
type CaptureStatus interface {
	Running() bool
}

// Checker provides health check functionality for the bridge
type Checker struct {
	broker   BrokerStatus
	capture  CaptureStatus
	redis    redis.Client
	postgres postgres.Client
	logger   *slog.Logger
}

// NewChecker creates a new health checker. broker is nil when remote control
// is off; redisClient and postgresClient may be nil when telemetry or the
// journal are disabled.
func NewChecker(broker BrokerStatus, capture CaptureStatus, redisClient redis.Client, postgresClient postgres.Client, logger *slog.Logger) *Checker {
	return &Checker{
		broker:   broker,
		capture:  capture,
		redis:    redisClient,
		postgres: postgresClient,
		logger:   logger,
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp string    `json:"timestamp"`
	Services  *Services `json:"services,omitempty"`
}

// Services represents the status of the bridge and its dependencies
type Services struct {
	MQTT               string `json:"mqtt"`
	CommunicationError bool   `json:"communication_error"`
	Capture            string `json:"capture"`
	Redis              string `json:"redis"`
	Postgres           string `json:"postgres"`
}

// HandlerFunc returns 200 while the process is alive, without checking
// dependencies
func (h *Checker) HandlerFunc() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response := HealthResponse{
			Status:    "ok",
			Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		}
		h.write(w, http.StatusOK, response)
	}
}

// DetailedHandlerFunc returns a handler that reports every dependency. It
// answers 503 when the broker or an enabled store is unreachable.
func (h *Checker) DetailedHandlerFunc() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), dependencyTimeout)
		defer cancel()

		services := &Services{
			MQTT:     StatusDisabled,
			Capture:  StatusStopped,
			Redis:    StatusDisabled,
			Postgres: StatusDisabled,
		}

		if h.broker != nil {
			services.MQTT = StatusDisconnected
			if h.broker.IsConnected() {
				services.MQTT = StatusConnected
			}
			services.CommunicationError = h.broker.CommunicationError()
		}

		if h.capture != nil && h.capture.Running() {
			services.Capture = StatusRunning
		}

		if h.redis != nil {
			services.Redis = StatusConnected
			if err := h.redis.Ping(ctx); err != nil {
				h.logger.Debug("Redis health check failed", "error", err)
				services.Redis = StatusDisconnected
			}
		}

		if h.postgres != nil {
			services.Postgres = StatusDisconnected
			status, err := h.postgres.HealthCheck(ctx)
			if err == nil && status.Connected {
				services.Postgres = StatusConnected
			} else if err != nil {
				h.logger.Debug("Postgres health check failed", "error", err)
			}
		}

		status := "healthy"
		statusCode := http.StatusOK

		if services.MQTT == StatusDisconnected ||
			services.Redis == StatusDisconnected ||
			services.Postgres == StatusDisconnected {
			status = "degraded"
			statusCode = http.StatusServiceUnavailable
		}

		response := HealthResponse{
			Status:    status,
			Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
			Services:  services,
		}
		h.write(w, statusCode, response)
	}
}

func (h *Checker) write(w http.ResponseWriter, code int, response HealthResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("Failed to encode health response", "error", err)
	}
}
