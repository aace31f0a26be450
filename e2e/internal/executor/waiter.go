package executor

import (
	"context"
	"time"
)

// WaitUntil waits until a number of seconds after start, or until ctx ends
func WaitUntil(ctx context.Context, startTime time.Time, targetSeconds int) error {
	targetTime := startTime.Add(time.Duration(targetSeconds) * time.Second)
	wait := time.Until(targetTime)
	if wait <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// GetElapsed returns elapsed seconds since start
func GetElapsed(startTime time.Time) float64 {
	return time.Since(startTime).Seconds()
}
