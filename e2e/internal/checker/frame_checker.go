package checker

import (
	"fmt"

	"github.com/saaga0h/lumen-platform/e2e/internal/scenario"
)

// FrameWindow summarises the stream frames seen between two checkpoints
type FrameWindow struct {
	Frames int
	// LEDCounts holds every distinct lednum value seen
	LEDCounts map[int]int
	Malformed int
}

// CheckFrameExpectation validates the frames seen since the previous
// checkpoint
func CheckFrameExpectation(window FrameWindow, exp scenario.Expectation) (bool, string, interface{}) {
	if window.Malformed > 0 {
		return false, fmt.Sprintf("%d malformed frames", window.Malformed), window
	}

	if exp.MinFrames != nil && window.Frames < *exp.MinFrames {
		return false, fmt.Sprintf("expected at least %d frames, got %d", *exp.MinFrames, window.Frames), window
	}

	if exp.MaxFrames != nil && window.Frames > *exp.MaxFrames {
		return false, fmt.Sprintf("expected at most %d frames, got %d", *exp.MaxFrames, window.Frames), window
	}

	if exp.LEDs > 0 {
		for leds, count := range window.LEDCounts {
			if leds != exp.LEDs {
				return false, fmt.Sprintf("expected %d LEDs per frame, %d frames had %d", exp.LEDs, count, leds), window
			}
		}
	}

	return true, "", window
}
