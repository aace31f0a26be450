// Package telemetry publishes the live status of a bridge to Redis so other
// tools can read it without talking to the bridge.
package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/saaga0h/lumen-platform/internal/broker"
	"github.com/saaga0h/lumen-platform/internal/capture"
	"github.com/saaga0h/lumen-platform/pkg/redis"
)

const (
	// StatusTTL expires the status of a bridge that stopped reporting
	StatusTTL = 2 * time.Minute
	// MaxEvents is the length of the recent events list
	MaxEvents = 50

	writeTimeout = 2 * time.Second
)

// Hash fields of the status key
const (
	FieldBrokerState        = "broker_state"
	FieldCommunicationError = "communication_error"
	FieldCapturing          = "capturing"
	FieldProducerFPS        = "fps_producer"
	FieldConsumerFPS        = "fps_consumer"
	FieldGamma              = "gamma"
	FieldUpdatedAt          = "updated_at"
)

// ErrNoStatus is returned when no status has been recorded for a device
var ErrNoStatus = errors.New("no status recorded")

// Status is the live status of one bridge
type Status struct {
	BrokerState        string    `json:"broker_state"`
	CommunicationError bool      `json:"communication_error"`
	Capturing          bool      `json:"capturing"`
	ProducerFPS        float64   `json:"fps_producer"`
	ConsumerFPS        float64   `json:"fps_consumer"`
	Gamma              float64   `json:"gamma"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// EventRecord is one entry of the recent events list
type EventRecord struct {
	At     time.Time `json:"at"`
	Kind   string    `json:"kind"`
	State  string    `json:"state"`
	Detail string    `json:"detail,omitempty"`
}

// Store writes and reads bridge status
type Store struct {
	client redis.Client
	device string
	logger *slog.Logger
	now    func() time.Time

	mu     sync.Mutex
	status Status
}

// NewStore creates a store for a device
func NewStore(client redis.Client, device string, logger *slog.Logger) *Store {
	return &Store{
		client: client,
		device: device,
		logger: logger,
		now:    time.Now,
		status: Status{BrokerState: broker.StateDisconnected.String()},
	}
}

// HandleBrokerEvent records a broker transition
func (s *Store) HandleBrokerEvent(e broker.Event) {
	s.mu.Lock()
	s.status.BrokerState = e.State.String()
	s.status.CommunicationError = e.CommunicationError
	status := s.stampLocked()
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	if err := s.write(ctx, status); err != nil {
		s.logger.Warn("Failed to write bridge status", "device", s.device, "error", err)
	}
	if err := s.pushEvent(ctx, e); err != nil {
		s.logger.Warn("Failed to record bridge event", "device", s.device, "kind", e.Kind, "error", err)
	}
}

// HandleCaptureStats records capture throughput
func (s *Store) HandleCaptureStats(cs capture.Stats) {
	s.mu.Lock()
	s.status.Capturing = cs.Running
	s.status.ProducerFPS = cs.ProducerFPS
	s.status.ConsumerFPS = cs.ConsumerFPS
	s.status.Gamma = cs.Gamma
	status := s.stampLocked()
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	if err := s.write(ctx, status); err != nil {
		s.logger.Warn("Failed to write capture stats", "device", s.device, "error", err)
	}
}

func (s *Store) stampLocked() Status {
	s.status.UpdatedAt = s.now().UTC()
	return s.status
}

func (s *Store) write(ctx context.Context, status Status) error {
	key := redis.StatusKey(s.device)
	fields := map[string]interface{}{
		FieldBrokerState:        status.BrokerState,
		FieldCommunicationError: strconv.FormatBool(status.CommunicationError),
		FieldCapturing:          strconv.FormatBool(status.Capturing),
		FieldProducerFPS:        strconv.FormatFloat(status.ProducerFPS, 'f', 1, 64),
		FieldConsumerFPS:        strconv.FormatFloat(status.ConsumerFPS, 'f', 1, 64),
		FieldGamma:              strconv.FormatFloat(status.Gamma, 'f', -1, 64),
		FieldUpdatedAt:          status.UpdatedAt.Format(time.RFC3339Nano),
	}

	if err := s.client.HSet(ctx, key, fields); err != nil {
		return err
	}
	return s.client.Expire(ctx, key, StatusTTL)
}

func (s *Store) pushEvent(ctx context.Context, e broker.Event) error {
	data, err := json.Marshal(EventRecord{
		At:     e.At.UTC(),
		Kind:   string(e.Kind),
		State:  e.State.String(),
		Detail: e.Detail,
	})
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	key := redis.EventsKey(s.device)
	if err := s.client.LPush(ctx, key, string(data)); err != nil {
		return err
	}
	return s.client.LTrim(ctx, key, 0, MaxEvents-1)
}

// Snapshot reads the recorded status of the device
func (s *Store) Snapshot(ctx context.Context) (*Status, error) {
	fields, err := s.client.HGetAll(ctx, redis.StatusKey(s.device))
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, ErrNoStatus
	}
	return parseStatus(fields)
}

// RecentEvents returns up to n events, newest first
func (s *Store) RecentEvents(ctx context.Context, n int) ([]EventRecord, error) {
	if n <= 0 || n > MaxEvents {
		n = MaxEvents
	}
	raw, err := s.client.LRange(ctx, redis.EventsKey(s.device), 0, int64(n-1))
	if err != nil {
		return nil, err
	}

	events := make([]EventRecord, 0, len(raw))
	for _, item := range raw {
		var rec EventRecord
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			s.logger.Debug("Skipping malformed event", "error", err)
			continue
		}
		events = append(events, rec)
	}
	return events, nil
}

func parseStatus(fields map[string]string) (*Status, error) {
	status := &Status{BrokerState: fields[FieldBrokerState]}

	var err error
	if status.CommunicationError, err = parseBool(fields, FieldCommunicationError); err != nil {
		return nil, err
	}
	if status.Capturing, err = parseBool(fields, FieldCapturing); err != nil {
		return nil, err
	}
	if status.ProducerFPS, err = parseFloat(fields, FieldProducerFPS); err != nil {
		return nil, err
	}
	if status.ConsumerFPS, err = parseFloat(fields, FieldConsumerFPS); err != nil {
		return nil, err
	}
	if status.Gamma, err = parseFloat(fields, FieldGamma); err != nil {
		return nil, err
	}
	if v, ok := fields[FieldUpdatedAt]; ok && v != "" {
		if status.UpdatedAt, err = time.Parse(time.RFC3339Nano, v); err != nil {
			return nil, fmt.Errorf("invalid %s: %w", FieldUpdatedAt, err)
		}
	}
	return status, nil
}

func parseBool(fields map[string]string, name string) (bool, error) {
	v, ok := fields[name]
	if !ok || v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", name, err)
	}
	return b, nil
}

func parseFloat(fields map[string]string, name string) (float64, error) {
	v, ok := fields[name]
	if !ok || v == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	return f, nil
}
