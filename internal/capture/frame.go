package capture

import (
	"context"
	"encoding/json"
	"image/color"
	"math"

	"github.com/saaga0h/lumen-platform/internal/preview"
	"github.com/saaga0h/lumen-platform/internal/settings"
)

// Frame is one set of LED colours in strip order
type Frame struct {
	LEDs []color.RGBA
}

// FrameSource produces frames for the capture loop
type FrameSource interface {
	Next(ctx context.Context) (Frame, error)
}

// FrameSink receives encoded frames
type FrameSink interface {
	Stream(payload []byte)
}

// PatternSource always returns the calibration pattern: each LED shows the
// colour it has in the preview image
type PatternSource struct {
	frame Frame
}

// NewPatternSource builds the calibration pattern for the settings
func NewPatternSource(s *settings.Settings) *PatternSource {
	leds := make([]color.RGBA, 0, s.TotalLEDs())
	for _, seg := range preview.Layout(s) {
		leds = append(leds, seg.Color)
	}
	return &PatternSource{frame: Frame{LEDs: leds}}
}

// Next returns the pattern
func (p *PatternSource) Next(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}
	return p.frame, nil
}

// framePayload is the wire format of the stream channel
type framePayload struct {
	LEDNum int     `json:"lednum"`
	Gamma  float64 `json:"gamma"`
	LEDs   []int   `json:"leds"`
}

// gammaTable maps 8-bit channel values through a gamma curve
type gammaTable [256]uint8

func newGammaTable(gamma float64) *gammaTable {
	var t gammaTable
	for i := range t {
		t[i] = uint8(math.Round(255 * math.Pow(float64(i)/255, gamma)))
	}
	return &t
}

// encodeFrame applies gamma and encodes the frame as r,g,b triples
func encodeFrame(f Frame, gamma float64, table *gammaTable) ([]byte, error) {
	leds := make([]int, 0, len(f.LEDs)*3)
	for _, c := range f.LEDs {
		leds = append(leds, int(table[c.R]), int(table[c.G]), int(table[c.B]))
	}
	return json.Marshal(framePayload{
		LEDNum: len(f.LEDs),
		Gamma:  gamma,
		LEDs:   leds,
	})
}
