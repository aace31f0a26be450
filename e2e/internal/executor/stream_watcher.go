package executor

import (
	"encoding/json"
	"sync"

	"github.com/saaga0h/lumen-platform/e2e/internal/checker"
	"github.com/saaga0h/lumen-platform/pkg/mqtt"
)

type framePayload struct {
	LEDNum int   `json:"lednum"`
	LEDs   []int `json:"leds"`
}

// StreamWatcher counts frames arriving on the stream topic
type StreamWatcher struct {
	mu     sync.Mutex
	window checker.FrameWindow
	total  int
}

// NewStreamWatcher creates an empty watcher
func NewStreamWatcher() *StreamWatcher {
	return &StreamWatcher{window: newWindow()}
}

func newWindow() checker.FrameWindow {
	return checker.FrameWindow{LEDCounts: make(map[int]int)}
}

// Handle is the MQTT handler for the stream topic
func (w *StreamWatcher) Handle(msg mqtt.Message) {
	var frame framePayload
	err := json.Unmarshal(msg.Payload(), &frame)

	w.mu.Lock()
	defer w.mu.Unlock()

	w.total++
	w.window.Frames++
	if err != nil || len(frame.LEDs) != frame.LEDNum*3 {
		w.window.Malformed++
		return
	}
	w.window.LEDCounts[frame.LEDNum]++
}

// Take returns the frames seen since the previous call and starts a new
// window
func (w *StreamWatcher) Take() checker.FrameWindow {
	w.mu.Lock()
	defer w.mu.Unlock()
	window := w.window
	w.window = newWindow()
	return window
}

// Total returns every frame seen
func (w *StreamWatcher) Total() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.total
}
