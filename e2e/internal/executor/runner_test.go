package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saaga0h/lumen-platform/e2e/internal/scenario"
	"github.com/saaga0h/lumen-platform/pkg/mqtt"
)

// bridgeDouble answers START by streaming frames, like a bridge would
type bridgeDouble struct {
	mu         sync.Mutex
	connectErr error
	handlers   map[string]mqtt.MessageHandler
	commands   []string
	leds       int
}

func (b *bridgeDouble) Connect(ctx context.Context) error { return b.connectErr }
func (b *bridgeDouble) Disconnect()                       {}
func (b *bridgeDouble) IsConnected() bool                 { return true }

func (b *bridgeDouble) Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.handlers == nil {
		b.handlers = make(map[string]mqtt.MessageHandler)
	}
	b.handlers[topic] = handler
	return nil
}

func (b *bridgeDouble) Publish(topic string, qos byte, retained bool, payload []byte) error {
	b.mu.Lock()
	b.commands = append(b.commands, string(payload))
	handler := b.handlers[mqtt.StreamTopic(topic)]
	b.mu.Unlock()

	if strings.Contains(string(payload), "START") && handler != nil {
		leds := make([]string, b.leds*3)
		for i := range leds {
			leds[i] = "0"
		}
		frame := fmt.Sprintf(`{"lednum":%d,"gamma":2.2,"leds":[%s]}`, b.leds, strings.Join(leds, ","))
		for i := 0; i < 5; i++ {
			handler(&streamMessage{payload: []byte(frame)})
		}
	}
	return nil
}

type streamMessage struct {
	payload []byte
}

func (m *streamMessage) Topic() string   { return "lights/desk/stream" }
func (m *streamMessage) Payload() []byte { return m.payload }
func (m *streamMessage) Ack()            {}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func intPtr(n int) *int { return &n }

func TestPlan_CommandsFirst(t *testing.T) {
	s := &scenario.Scenario{
		Commands: []scenario.Command{
			{Time: 0, Payload: "START"},
			{Time: 5, Payload: "STOP"},
		},
		Expectations: []scenario.Expectation{
			{Time: 5, Description: "after stop"},
			{Time: 3, Description: "running"},
		},
	}

	steps := plan(s)
	require.Len(t, steps, 4)
	assert.Equal(t, "START", steps[0].command.Payload)
	assert.Equal(t, "running", steps[1].expectation.Description)
	assert.Equal(t, "STOP", steps[2].command.Payload)
	assert.Equal(t, "after stop", steps[3].expectation.Description)
}

func TestStreamWatcher(t *testing.T) {
	w := NewStreamWatcher()
	w.Handle(&streamMessage{payload: []byte(`{"lednum":1,"leds":[1,2,3]}`)})
	w.Handle(&streamMessage{payload: []byte(`{"lednum":2,"leds":[1,2,3]}`)})
	w.Handle(&streamMessage{payload: []byte(`not json`)})

	window := w.Take()
	assert.Equal(t, 3, window.Frames)
	assert.Equal(t, 2, window.Malformed)
	assert.Equal(t, map[int]int{1: 1}, window.LEDCounts)

	assert.Equal(t, 0, w.Take().Frames, "a new window starts empty")
	assert.Equal(t, 3, w.Total())
}

func TestRun(t *testing.T) {
	double := &bridgeDouble{leds: 4}
	factory := func(opts mqtt.Options) mqtt.Client {
		assert.True(t, strings.HasPrefix(opts.ClientID, "lumen-e2e-"))
		return double
	}
	runner := NewRunner("tcp://localhost:1883", factory, nil, testLogger())

	s := &scenario.Scenario{
		Name:  "start streams",
		Setup: scenario.SetupConfig{Device: "desk", Topic: "lights/desk"},
		Commands: []scenario.Command{
			{Time: 0, Payload: "START", Description: "start"},
		},
		Expectations: []scenario.Expectation{
			{Time: 0, Description: "frames arrive", MinFrames: intPtr(5), LEDs: 4},
			{Time: 1, Description: "quiet afterwards", MaxFrames: intPtr(0)},
			{Time: 1, Description: "status", Status: map[string]string{"capturing": "true"}},
		},
	}

	result, timeline, err := runner.Run(context.Background(), s)
	require.NoError(t, err)

	assert.Equal(t, []string{"START"}, double.commands)
	require.Len(t, result.Expectations, 3)
	assert.True(t, result.Expectations[0].Passed, result.Expectations[0].Reason)
	assert.True(t, result.Expectations[1].Passed, result.Expectations[1].Reason)
	assert.False(t, result.Expectations[2].Passed, "status checks fail without Redis")
	assert.Equal(t, "status", result.Expectations[2].Layer)
	assert.Equal(t, 2, result.PassedCount)
	assert.Equal(t, 1, result.FailedCount)
	assert.False(t, result.Passed)
	assert.Len(t, timeline, 4)
}

func TestRun_ConnectFailure(t *testing.T) {
	double := &bridgeDouble{connectErr: errors.New("refused")}
	runner := NewRunner("tcp://localhost:1883", func(mqtt.Options) mqtt.Client { return double }, nil, testLogger())

	_, _, err := runner.Run(context.Background(), &scenario.Scenario{Setup: scenario.SetupConfig{Topic: "lights/desk"}})
	assert.ErrorContains(t, err, "failed to connect")
}

func TestWaitUntil_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := WaitUntil(ctx, start, 60)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}
