package main

import (
	"bytes"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saaga0h/lumen-platform/internal/bridge"
	"github.com/saaga0h/lumen-platform/internal/settings"
	"github.com/saaga0h/lumen-platform/pkg/config"
	"github.com/saaga0h/lumen-platform/pkg/mqtt"
)

func newTestAgent(t *testing.T, logger *slog.Logger) *bridge.Agent {
	t.Helper()
	s := settings.Defaults(settings.Platform{OS: "linux", ScreenWidth: 1920, ScreenHeight: 1080, ScaleFactor: 1})
	factory := func(mqtt.Options) mqtt.Client {
		t.Fatal("broker should not be built")
		return nil
	}
	return bridge.NewAgent(config.NewConfig(), s, factory, nil, nil, logger)
}

func TestReloadSettings_NoSavedRecord(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	agent := newTestAgent(t, logger)
	store := settings.NewStore(filepath.Join(t.TempDir(), "settings.yaml"), logger)

	reloadSettings(store, agent, logger)

	assert.Contains(t, logs.String(), "level=WARN")
	assert.Contains(t, logs.String(), "No settings saved, nothing to reload")
	assert.NotContains(t, logs.String(), "level=ERROR")
	assert.Equal(t, 2.2, agent.Capture().Gamma())
}

func TestReloadSettings_AppliesGamma(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	agent := newTestAgent(t, logger)
	store := settings.NewStore(filepath.Join(t.TempDir(), "settings.yaml"), logger)

	saved := settings.Defaults(settings.Platform{OS: "linux", ScreenWidth: 1920, ScreenHeight: 1080, ScaleFactor: 1})
	saved.Gamma = 1.8
	require.NoError(t, store.Save(saved))

	reloadSettings(store, agent, logger)

	assert.Equal(t, 1.8, agent.Capture().Gamma())
	assert.Contains(t, logs.String(), "Settings reloaded")
}
