package postgres

import (
	"context"
	"database/sql"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saaga0h/lumen-platform/pkg/config"
)

func TestClient_NotConnected(t *testing.T) {
	cfg := config.NewConfig()
	cfg.PostgresDB = "lumen_test"
	c := NewClient(cfg, nil)
	ctx := context.Background()

	_, err := c.Exec(ctx, "SELECT 1")
	assert.ErrorIs(t, err, ErrNotConnected)

	_, err = c.Query(ctx, "SELECT 1")
	assert.ErrorIs(t, err, ErrNotConnected)

	err = c.Transaction(ctx, func(*sql.Tx) error { return nil })
	assert.ErrorIs(t, err, ErrNotConnected)

	status, err := c.HealthCheck(ctx)
	require.NoError(t, err)
	assert.False(t, status.Connected)
	assert.Equal(t, "lumen_test", status.Database)
	assert.Equal(t, "not connected", status.Error)

	assert.NoError(t, c.Disconnect())
}

func TestClient_Integration(t *testing.T) {
	if os.Getenv("LUMEN_POSTGRES_INTEGRATION") == "" {
		t.Skip("set LUMEN_POSTGRES_INTEGRATION to run against a live database")
	}

	cfg := config.NewConfig()
	cfg.LoadFromEnv()
	c := NewClient(cfg, nil)
	ctx := context.Background()

	require.NoError(t, c.Connect(ctx))
	defer c.Disconnect()

	status, err := c.HealthCheck(ctx)
	require.NoError(t, err)
	assert.True(t, status.Connected)
	assert.NotEmpty(t, status.ServerVersion)
}
