// Package capture runs the frame loop that feeds the LED controller.
//
// A producer pulls frames from a FrameSource at a fixed rate and queues them;
// a consumer applies gamma, encodes each frame and hands it to the sink. The
// controller is the target of remote START/STOP commands.
package capture

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

const queueDepth = 8

// Stats is a snapshot of the capture loop throughput
type Stats struct {
	Running     bool
	ProducerFPS float64
	ConsumerFPS float64
	Gamma       float64
}

// StatsObserver receives a Stats snapshot on every stats tick
type StatsObserver interface {
	HandleCaptureStats(Stats)
}

// Controller starts and stops the capture loop
type Controller struct {
	source FrameSource
	sink   FrameSink
	fps    int
	logger *slog.Logger

	mu        sync.Mutex
	running   bool
	cancel    context.CancelFunc
	done      chan struct{}
	gamma     float64
	table     *gammaTable
	stats     Stats
	observers []StatsObserver

	produced atomic.Int64
	consumed atomic.Int64
}

// NewController creates a stopped controller. sink may be nil when streaming
// is disabled; frames are then produced and counted but not sent.
func NewController(source FrameSource, sink FrameSink, fps int, gamma float64, logger *slog.Logger) *Controller {
	if fps <= 0 {
		fps = 30
	}
	if gamma <= 0 {
		gamma = 1.0
	}
	return &Controller{
		source: source,
		sink:   sink,
		fps:    fps,
		logger: logger,
		gamma:  gamma,
		table:  newGammaTable(gamma),
	}
}

// AddObserver registers a stats observer
func (c *Controller) AddObserver(o StatsObserver) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, o)
}

// StartCapture starts the loop if it is not running
func (c *Controller) StartCapture() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		c.logger.Debug("Capture already running")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.done = make(chan struct{})
	c.running = true

	c.logger.Info("Starting capture", "fps", c.fps, "streaming", c.sink != nil)
	go c.run(ctx, c.done)
}

// StopCapture stops the loop and waits for it to exit
func (c *Controller) StopCapture() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	cancel, done := c.cancel, c.done
	c.running = false
	c.cancel = nil
	c.done = nil
	c.mu.Unlock()

	cancel()
	<-done
	c.logger.Info("Capture stopped")
}

// Running reports whether the loop is running
func (c *Controller) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// SetGamma changes gamma while the loop runs
func (c *Controller) SetGamma(gamma float64) error {
	if gamma <= 0 {
		return fmt.Errorf("gamma must be positive, got %v", gamma)
	}
	table := newGammaTable(gamma)

	c.mu.Lock()
	c.gamma = gamma
	c.table = table
	c.mu.Unlock()

	c.logger.Info("Gamma changed", "gamma", gamma)
	return nil
}

// Gamma returns the current gamma
func (c *Controller) Gamma() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gamma
}

// Stats returns the last computed throughput snapshot
func (c *Controller) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.Running = c.running
	s.Gamma = c.gamma
	return s
}

func (c *Controller) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	queue := make(chan Frame, queueDepth)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.consume(ctx, queue)
	}()

	c.produce(ctx, queue)
	wg.Wait()
}

func (c *Controller) produce(ctx context.Context, queue chan<- Frame) {
	ticker := time.NewTicker(time.Second / time.Duration(c.fps))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		frame, err := c.source.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Warn("Failed to capture frame", "error", err)
			continue
		}
		c.produced.Add(1)

		select {
		case queue <- frame:
		default:
			c.logger.Debug("Frame queue full, dropping frame")
		}
	}
}

func (c *Controller) consume(ctx context.Context, queue <-chan Frame) {
	for {
		select {
		case <-ctx.Done():
			return
		case frame := <-queue:
			c.mu.Lock()
			gamma, table := c.gamma, c.table
			c.mu.Unlock()

			payload, err := encodeFrame(frame, gamma, table)
			if err != nil {
				c.logger.Error("Failed to encode frame", "error", err)
				continue
			}
			if c.sink != nil {
				c.sink.Stream(payload)
			}
			c.consumed.Add(1)
		}
	}
}

// RunStats turns the frame counters into per-second rates every interval and
// notifies observers, until ctx is cancelled
func (c *Controller) RunStats(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.recordStats(interval)
		}
	}
}

func (c *Controller) recordStats(interval time.Duration) {
	produced := c.produced.Swap(0)
	consumed := c.consumed.Swap(0)
	seconds := interval.Seconds()

	c.mu.Lock()
	c.stats.ProducerFPS = float64(produced) / seconds
	c.stats.ConsumerFPS = float64(consumed) / seconds
	s := c.stats
	s.Running = c.running
	s.Gamma = c.gamma
	observers := make([]StatsObserver, len(c.observers))
	copy(observers, c.observers)
	c.mu.Unlock()

	c.logger.Debug("Capture stats", "producing_fps", s.ProducerFPS, "consuming_fps", s.ConsumerFPS)
	for _, o := range observers {
		o.HandleCaptureStats(s)
	}
}
