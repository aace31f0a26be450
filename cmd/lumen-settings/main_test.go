package main

import (
	"bytes"
	"context"
	"encoding/json"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saaga0h/lumen-platform/internal/settings"
	"github.com/saaga0h/lumen-platform/internal/telemetry"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &out
	err := app.Run(context.Background(), append([]string{"lumen-settings"}, args...))
	return out.String(), err
}

func TestInitAndShow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")

	out, err := run(t, "--settings", path, "init", "--width", "2560", "--height", "1440")
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote default settings")

	out, err = run(t, "--settings", path, "init")
	require.NoError(t, err)
	assert.Contains(t, out, "already exist")

	out, err = run(t, "--settings", path, "show")
	require.NoError(t, err)
	assert.Contains(t, out, "screen-width      2560")
	assert.Contains(t, out, "mqtt-host         tcp://192.168.1.3")
	assert.Contains(t, out, "mqtt-port         1883")
	assert.NotContains(t, out, "no settings saved")
}

func TestShow_Defaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")

	out, err := run(t, "--settings", path, "show")
	require.NoError(t, err)
	assert.Contains(t, out, "no settings saved")
	assert.Contains(t, out, "top-led           33")

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "show must not write")
}

func TestSet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")

	_, err := run(t, "--settings", path, "set", "top-led=4a0", "mqtt-port=18 83x", "gamma=1.8", "mqtt-password=secret")
	require.NoError(t, err)

	s, err := settings.NewStore(path, testLogger()).Load()
	require.NoError(t, err)
	assert.Equal(t, 40, s.TopLED)
	assert.Equal(t, "tcp://192.168.1.3:1883", s.MQTTServer)
	assert.Equal(t, 1.8, s.Gamma)

	out, err := run(t, "--settings", path, "show")
	require.NoError(t, err)
	assert.Contains(t, out, "mqtt-password     ********")
	assert.NotContains(t, out, "secret")
}

func TestShow_JSONMasksPassword(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")

	_, err := run(t, "--settings", path, "set", "mqtt-password=hunter2", "top-led=40")
	require.NoError(t, err)

	out, err := run(t, "--settings", path, "show", "--json")
	require.NoError(t, err)
	assert.NotContains(t, out, "hunter2")

	var shown map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &shown))
	assert.Equal(t, "********", shown["mqtt_password"])
	assert.Equal(t, float64(40), shown["top_led"])
	assert.NotContains(t, shown, "MQTTPassword")

	// The saved record keeps the real password
	s, err := settings.NewStore(path, testLogger()).Load()
	require.NoError(t, err)
	assert.Equal(t, "hunter2", s.MQTTPassword)
}

func TestSet_Errors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")

	_, err := run(t, "--settings", path, "set", "top-led")
	assert.ErrorContains(t, err, "expected field=value")

	_, err = run(t, "--settings", path, "set", "brightness=10")
	assert.ErrorContains(t, err, "unknown settings field")

	_, err = run(t, "--settings", path, "set", "mqtt-enable=sometimes")
	assert.Error(t, err)

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "failed set must not write")
}

func TestApplyAssignments_EmptyNumeric(t *testing.T) {
	s := settings.Defaults(settings.Platform{OS: "linux", ScreenWidth: 1920, ScreenHeight: 1080, ScaleFactor: 1})

	_, err := applyAssignments(s, []string{"screen-width=abc"})
	assert.Error(t, err, "a numeric field stripped to nothing is rejected")
}

func TestPreview(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")
	output := filepath.Join(dir, "preview.png")

	out, err := run(t, "--settings", path, "preview", "--width", "1280", "--height", "720", "-o", output)
	require.NoError(t, err)
	assert.Contains(t, out, "1280x720")
	assert.Contains(t, out, "95 LEDs")

	f, err := os.Open(output)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 1280, img.Bounds().Dx())
	assert.Equal(t, 720, img.Bounds().Dy())
}

func TestFields(t *testing.T) {
	out, err := run(t, "fields")
	require.NoError(t, err)
	for _, name := range settings.FieldNames() {
		assert.Contains(t, out, name)
	}
	assert.Contains(t, out, "top-led           number")
}

func TestPrintStatus(t *testing.T) {
	now := time.Date(2025, 11, 3, 20, 0, 30, 0, time.UTC)
	status := &telemetry.Status{
		BrokerState: "connected",
		Capturing:   true,
		ProducerFPS: 30,
		ConsumerFPS: 29.5,
		Gamma:       2.2,
		UpdatedAt:   now.Add(-5 * time.Second),
	}
	events := []telemetry.EventRecord{
		{At: now.Add(-time.Minute), Kind: "command", State: "connected", Detail: "START"},
	}

	var out bytes.Buffer
	printStatus(&out, "desk", status, events, now)

	text := out.String()
	assert.Contains(t, text, "Broker:              connected")
	assert.Contains(t, text, "Consuming FPS:       29.5")
	assert.Contains(t, text, "Updated:             5s ago")
	assert.True(t, strings.Contains(text, "command") && strings.Contains(text, "START"))
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}
