// Package journal persists broker events to Postgres.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/saaga0h/lumen-platform/internal/broker"
	"github.com/saaga0h/lumen-platform/pkg/postgres"
)

const writeTimeout = 5 * time.Second

var schema = []string{
	`CREATE TABLE IF NOT EXISTS bridge_events (
		id          UUID PRIMARY KEY,
		device      TEXT NOT NULL,
		occurred_at TIMESTAMPTZ NOT NULL,
		kind        TEXT NOT NULL,
		state       TEXT NOT NULL,
		detail      TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS bridge_events_device_time
		ON bridge_events (device, occurred_at DESC)`,
}

// Entry is one journal row
type Entry struct {
	ID         uuid.UUID
	Device     string
	OccurredAt time.Time
	Kind       string
	State      string
	Detail     string
}

// Journal records broker events for one device
type Journal struct {
	db     postgres.Client
	device string
	logger *slog.Logger
	newID  func() uuid.UUID
}

// New creates a journal
func New(db postgres.Client, device string, logger *slog.Logger) *Journal {
	return &Journal{
		db:     db,
		device: device,
		logger: logger,
		newID:  uuid.New,
	}
}

// Migrate creates the journal table
func (j *Journal) Migrate(ctx context.Context) error {
	err := j.db.Transaction(ctx, func(tx *sql.Tx) error {
		for _, stmt := range schema {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to migrate journal: %w", err)
	}
	return nil
}

// HandleBrokerEvent writes the event. Failed reconnection attempts repeat
// every poll interval and are not journaled.
func (j *Journal) HandleBrokerEvent(e broker.Event) {
	if e.Kind == broker.EventReconnectFailed {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	if err := j.Record(ctx, e); err != nil {
		j.logger.Warn("Failed to journal broker event", "kind", e.Kind, "error", err)
	}
}

// Record inserts one event
func (j *Journal) Record(ctx context.Context, e broker.Event) error {
	at := e.At
	if at.IsZero() {
		at = time.Now()
	}

	_, err := j.db.Exec(ctx,
		`INSERT INTO bridge_events (id, device, occurred_at, kind, state, detail)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		j.newID(), j.device, at.UTC(), string(e.Kind), e.State.String(), e.Detail)
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

// Recent returns the latest entries of the device, newest first
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := j.db.Query(ctx,
		`SELECT id, device, occurred_at, kind, state, detail
		 FROM bridge_events
		 WHERE device = $1
		 ORDER BY occurred_at DESC
		 LIMIT $2`,
		j.device, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Device, &e.OccurredAt, &e.Kind, &e.State, &e.Detail); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read events: %w", err)
	}
	return entries, nil
}
