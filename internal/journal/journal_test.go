package journal

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saaga0h/lumen-platform/internal/broker"
	"github.com/saaga0h/lumen-platform/pkg/config"
	"github.com/saaga0h/lumen-platform/pkg/postgres"
)

type execCall struct {
	query string
	args  []interface{}
}

// mockPostgres records statements; it cannot produce rows
type mockPostgres struct {
	execs        []execCall
	transactions int
	execErr      error
	txErr        error
}

func (m *mockPostgres) Connect(ctx context.Context) error { return nil }
func (m *mockPostgres) Disconnect() error                 { return nil }

func (m *mockPostgres) Exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	m.execs = append(m.execs, execCall{query: query, args: args})
	return nil, m.execErr
}

func (m *mockPostgres) Query(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return nil, errors.New("not supported")
}

func (m *mockPostgres) Transaction(ctx context.Context, fn func(*sql.Tx) error) error {
	m.transactions++
	return m.txErr
}

func (m *mockPostgres) HealthCheck(ctx context.Context) (*postgres.HealthStatus, error) {
	return &postgres.HealthStatus{Connected: true}, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestRecord(t *testing.T) {
	db := &mockPostgres{}
	j := New(db, "desk", testLogger())
	id := uuid.MustParse("6f1c1f7e-3d0b-4b8e-9d43-0f0f5b0b6a11")
	j.newID = func() uuid.UUID { return id }

	at := time.Date(2025, 11, 3, 20, 15, 0, 0, time.FixedZone("EET", 2*3600))
	err := j.Record(context.Background(), broker.Event{
		Kind:   broker.EventCommand,
		State:  broker.StateConnected,
		Detail: "START",
		At:     at,
	})
	require.NoError(t, err)

	require.Len(t, db.execs, 1)
	assert.Contains(t, db.execs[0].query, "INSERT INTO bridge_events")
	assert.Equal(t, []interface{}{id, "desk", at.UTC(), "command", "connected", "START"}, db.execs[0].args)
}

func TestRecord_Error(t *testing.T) {
	db := &mockPostgres{execErr: errors.New("connection reset")}
	j := New(db, "desk", testLogger())

	err := j.Record(context.Background(), broker.Event{Kind: broker.EventClosed})
	assert.ErrorContains(t, err, "failed to insert event")
}

func TestHandleBrokerEvent(t *testing.T) {
	tests := []struct {
		kind     broker.EventKind
		recorded bool
	}{
		{broker.EventConnected, true},
		{broker.EventConnectFailed, true},
		{broker.EventConnectionLost, true},
		{broker.EventReconnectFailed, false},
		{broker.EventReconnected, true},
		{broker.EventCommand, true},
		{broker.EventClosed, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			db := &mockPostgres{}
			j := New(db, "desk", testLogger())

			j.HandleBrokerEvent(broker.Event{Kind: tt.kind, At: time.Now()})

			if tt.recorded {
				assert.Len(t, db.execs, 1)
			} else {
				assert.Empty(t, db.execs)
			}
		})
	}
}

func TestHandleBrokerEvent_ErrorIsLogged(t *testing.T) {
	db := &mockPostgres{execErr: errors.New("down")}
	j := New(db, "desk", testLogger())

	assert.NotPanics(t, func() {
		j.HandleBrokerEvent(broker.Event{Kind: broker.EventConnected})
	})
}

func TestMigrate(t *testing.T) {
	db := &mockPostgres{}
	j := New(db, "desk", testLogger())

	require.NoError(t, j.Migrate(context.Background()))
	assert.Equal(t, 1, db.transactions)

	db.txErr = errors.New("permission denied")
	err := j.Migrate(context.Background())
	assert.ErrorContains(t, err, "failed to migrate journal")
}

func TestJournal_Integration(t *testing.T) {
	if os.Getenv("LUMEN_POSTGRES_INTEGRATION") == "" {
		t.Skip("set LUMEN_POSTGRES_INTEGRATION to run against a live database")
	}

	cfg := config.NewConfig()
	cfg.LoadFromEnv()
	db := postgres.NewClient(cfg, testLogger())
	ctx := context.Background()
	require.NoError(t, db.Connect(ctx))
	defer db.Disconnect()

	device := "it-" + uuid.NewString()[:8]
	j := New(db, device, testLogger())
	require.NoError(t, j.Migrate(ctx))

	require.NoError(t, j.Record(ctx, broker.Event{Kind: broker.EventConnected, State: broker.StateConnected, At: time.Now().Add(-time.Second)}))
	require.NoError(t, j.Record(ctx, broker.Event{Kind: broker.EventCommand, State: broker.StateConnected, Detail: "STOP", At: time.Now()}))

	entries, err := j.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "command", entries[0].Kind)
	assert.Equal(t, "STOP", entries[0].Detail)
	assert.Equal(t, "connected", entries[1].Kind)
}
