// Package daylight starts ambient capture when the sun sets and stops it
// after sunrise.
package daylight

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/sixdouglas/suncalc"
)

// Capturer is the capture collaborator driven by the schedule
type Capturer interface {
	StartCapture()
	StopCapture()
}

// Scheduler polls the sun altitude and acts on dusk and dawn
type Scheduler struct {
	capture   Capturer
	latitude  float64
	longitude float64
	interval  time.Duration
	logger    *slog.Logger
	now       func() time.Time

	mu       sync.Mutex
	observed bool
	dark     bool
}

// NewScheduler creates a scheduler for the given coordinates
func NewScheduler(capture Capturer, latitude, longitude float64, interval time.Duration, logger *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Scheduler{
		capture:   capture,
		latitude:  latitude,
		longitude: longitude,
		interval:  interval,
		logger:    logger,
		now:       time.Now,
	}
}

// SunAltitude returns the altitude of the sun in degrees
func SunAltitude(t time.Time, latitude, longitude float64) float64 {
	position := suncalc.GetPosition(t, latitude, longitude)
	return position.Altitude * (180.0 / math.Pi)
}

// Run checks the sun immediately and then once per interval until ctx is
// cancelled
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info("Daylight schedule started",
		"latitude", s.latitude,
		"longitude", s.longitude,
		"interval", s.interval)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.Check()
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Daylight schedule stopped")
			return
		case <-ticker.C:
			s.Check()
		}
	}
}

// Check samples the sun once. Capture is started when the sun goes below the
// horizon and stopped when it comes back up. The first sample only starts
// capture if it is already dark.
func (s *Scheduler) Check() {
	altitude := SunAltitude(s.now(), s.latitude, s.longitude)
	dark := altitude <= 0

	s.mu.Lock()
	first := !s.observed
	changed := first || dark != s.dark
	s.observed = true
	s.dark = dark
	s.mu.Unlock()

	if !changed {
		return
	}

	switch {
	case dark:
		s.logger.Info("Sun is down, starting capture", "altitude", altitude)
		s.capture.StartCapture()
	case !first:
		s.logger.Info("Sun is up, stopping capture", "altitude", altitude)
		s.capture.StopCapture()
	default:
		s.logger.Debug("Sun is up", "altitude", altitude)
	}
}

// Dark reports the last observed state
func (s *Scheduler) Dark() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dark
}
