// Package preview lays out and renders the LED calibration image: one
// coloured block per LED around the screen border, numbered in strip order.
package preview

import (
	"fmt"
	"image"
	"image/color"

	"github.com/saaga0h/lumen-platform/internal/settings"
)

// Edge identifies a side of the screen a segment sits on
type Edge string

const (
	EdgeBottomRight Edge = "bottom_right"
	EdgeRight       Edge = "right"
	EdgeTop         Edge = "top"
	EdgeLeft        Edge = "left"
	EdgeBottomLeft  Edge = "bottom_left"
)

// Segment is one LED block on the calibration canvas
type Segment struct {
	// Index is the 1-based position along the strip
	Index int
	Label string
	Edge  Edge
	Rect  image.Rectangle
	Color color.RGBA
}

var (
	red   = color.RGBA{R: 255, A: 255}
	green = color.RGBA{G: 255, A: 255}
	blue  = color.RGBA{B: 255, A: 255}
)

// ColorFor returns the calibration colour of the LED at a 1-based index.
// Colours repeat red, green, blue along the strip.
func ColorFor(index int) color.RGBA {
	switch index % 3 {
	case 1:
		return red
	case 2:
		return green
	default:
		return blue
	}
}

// LabelFor returns the number printed on the LED at a 1-based index.
// Clockwise strips are numbered down from the total.
func LabelFor(index, total int, orientation string) string {
	if orientation == settings.OrientationClockwise {
		return fmt.Sprintf("#%d", total-(index-1))
	}
	return fmt.Sprintf("#%d", index)
}

// Scale converts a physical pixel count to logical pixels for an OS scaling
// percentage
func Scale(n, scaling int) int {
	if scaling <= 0 {
		return n
	}
	return n * 100 / scaling
}

// CanvasSize returns the logical canvas size for the settings
func CanvasSize(s *settings.Settings) (width, height int) {
	return Scale(s.ScreenWidth, s.OSScaling), Scale(s.ScreenHeight, s.OSScaling)
}

// Layout places every LED of the strip on the canvas. The strip starts at the
// bottom centre, runs right along the bottom, up the right side, right to
// left across the top, down the left side and back to the bottom centre.
func Layout(s *settings.Settings) []Segment {
	w, h := CanvasSize(s)
	side := w / 12
	band := h / 12
	if side < 1 {
		side = 1
	}
	if band < 1 {
		band = 1
	}

	total := s.TotalLEDs()
	segments := make([]Segment, 0, total)
	index := 0

	add := func(edge Edge, r image.Rectangle) {
		index++
		segments = append(segments, Segment{
			Index: index,
			Label: LabelFor(index, total, s.Orientation),
			Edge:  edge,
			Rect:  r,
			Color: ColorFor(index),
		})
	}

	// Bottom right: centre to right corner
	for i := 0; i < s.BottomRightLED; i++ {
		x0, x1 := split(w/2, w, i, s.BottomRightLED)
		add(EdgeBottomRight, image.Rect(x0, h-band, x1, h))
	}

	// Right: bottom to top, between the bands
	for i := 0; i < s.RightLED; i++ {
		y0, y1 := split(band, h-band, s.RightLED-1-i, s.RightLED)
		add(EdgeRight, image.Rect(w-side, y0, w, y1))
	}

	// Top: right to left
	for i := 0; i < s.TopLED; i++ {
		x0, x1 := split(0, w, s.TopLED-1-i, s.TopLED)
		add(EdgeTop, image.Rect(x0, 0, x1, band))
	}

	// Left: top to bottom
	for i := 0; i < s.LeftLED; i++ {
		y0, y1 := split(band, h-band, i, s.LeftLED)
		add(EdgeLeft, image.Rect(0, y0, side, y1))
	}

	// Bottom left: left corner to centre
	for i := 0; i < s.BottomLeftLED; i++ {
		x0, x1 := split(0, w/2, i, s.BottomLeftLED)
		add(EdgeBottomLeft, image.Rect(x0, h-band, x1, h))
	}

	return segments
}

// split returns the bounds of slot i of n equal slots in [from, to), leaving
// a gap of a tenth of the slot at its far end
func split(from, to, i, n int) (int, int) {
	span := to - from
	start := from + i*span/n
	end := from + (i+1)*span/n
	gap := (end - start) / 10
	return start, end - gap
}
