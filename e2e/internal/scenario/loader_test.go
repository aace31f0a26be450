package scenario

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const remoteStartStop = `
name: Remote start and stop
description: START begins streaming, STOP ends it
setup:
  device: lumen-bridge
  topic: lights/glowwormluciferin
  startup: 2
commands:
  - time: 0
    payload: START
    description: Start capture
  - time: 5
    payload: STOP
    description: Stop capture
expectations:
  - time: 4
    description: Streaming
    status:
      broker_state: connected
      capturing: "true"
    min_frames: 30
    leds: 95
  - time: 8
    description: Stopped
    status:
      capturing: "false"
    max_frames: 0
`

func TestLoadScenarioFromBytes(t *testing.T) {
	s, err := LoadScenarioFromBytes([]byte(remoteStartStop))
	require.NoError(t, err)

	assert.Equal(t, "Remote start and stop", s.Name)
	assert.Equal(t, "lumen-bridge", s.Setup.Device)
	assert.Equal(t, 2, s.Setup.Startup)
	require.Len(t, s.Commands, 2)
	assert.Equal(t, "STOP", s.Commands[1].Payload)

	require.Len(t, s.Expectations, 2)
	assert.Equal(t, "true", s.Expectations[0].Status["capturing"])
	require.NotNil(t, s.Expectations[0].MinFrames)
	assert.Equal(t, 30, *s.Expectations[0].MinFrames)
	assert.Nil(t, s.Expectations[0].MaxFrames)
	assert.Equal(t, 95, s.Expectations[0].LEDs)
	require.NotNil(t, s.Expectations[1].MaxFrames)
	assert.Equal(t, 0, *s.Expectations[1].MaxFrames)
}

func TestLoadScenario_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(remoteStartStop), 0o644))

	s, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, "Remote start and stop", s.Name)

	_, err = LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func intPtr(n int) *int { return &n }

func validScenario() *Scenario {
	return &Scenario{
		Name:        "s",
		Description: "d",
		Setup:       SetupConfig{Device: "desk", Topic: "lights/desk"},
		Commands:    []Command{{Time: 0, Payload: "START", Description: "go"}},
		Expectations: []Expectation{
			{Time: 2, Status: map[string]string{"capturing": "true"}},
		},
	}
}

func TestValidateScenario(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Scenario)
		wantErr string
	}{
		{"valid", func(s *Scenario) {}, ""},
		{"no name", func(s *Scenario) { s.Name = "" }, "name is required"},
		{"no device", func(s *Scenario) { s.Setup.Device = "" }, "setup.device"},
		{"no topic", func(s *Scenario) { s.Setup.Topic = "" }, "setup.topic"},
		{"empty payload", func(s *Scenario) { s.Commands[0].Payload = "" }, "payload is required"},
		{"negative time", func(s *Scenario) {
			s.Commands = append(s.Commands, Command{Time: -1, Payload: "STOP", Description: "x"})
		}, "time cannot be negative"},
		{"commands out of order", func(s *Scenario) {
			s.Commands = []Command{{Time: 5, Payload: "START", Description: "a"}, {Time: 1, Payload: "STOP", Description: "b"}}
		}, "chronological"},
		{"no expectations", func(s *Scenario) { s.Expectations = nil }, "at least one expectation"},
		{"empty expectation", func(s *Scenario) { s.Expectations[0].Status = nil }, "nothing to check"},
		{"min above max", func(s *Scenario) {
			s.Expectations[0].MinFrames = intPtr(10)
			s.Expectations[0].MaxFrames = intPtr(5)
		}, "min_frames"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validScenario()
			tt.modify(s)
			err := ValidateScenario(s)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestBundledScenarios(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("..", "..", "scenarios", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			s, err := LoadScenario(path)
			require.NoError(t, err)
			assert.NoError(t, ValidateScenario(s))
		})
	}
}
