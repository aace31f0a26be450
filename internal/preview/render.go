package preview

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/saaga0h/lumen-platform/internal/settings"
)

const title = "LUMEN"

// Render draws the calibration image for the settings
func Render(s *settings.Settings) *image.RGBA {
	w, h := CanvasSize(s)
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.Black}, image.Point{}, draw.Src)

	face := basicfont.Face7x13
	for _, seg := range Layout(s) {
		draw.Draw(img, seg.Rect, &image.Uniform{C: seg.Color}, image.Point{}, draw.Src)
		drawText(img, face, seg.Label, seg.Rect.Min.X+2, seg.Rect.Min.Y+face.Ascent+2, color.White)
	}

	// Title in the middle of the screen
	titleWidth := font.MeasureString(face, title).Ceil()
	drawText(img, face, title, w/2-titleWidth/2, h/2, color.RGBA{R: 210, G: 105, B: 30, A: 255})

	return img
}

// WritePNG renders the calibration image and encodes it as PNG
func WritePNG(w io.Writer, s *settings.Settings) error {
	if err := png.Encode(w, Render(s)); err != nil {
		return fmt.Errorf("failed to encode preview: %w", err)
	}
	return nil
}

func drawText(dst draw.Image, face font.Face, text string, x, y int, c color.Color) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}
