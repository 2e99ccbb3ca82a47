package transcoder

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"strconv"
	"strings"
)

// ParseHexColor parses #rrggbb or rrggbb
func ParseHexColor(s string) (color.RGBA, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) != 6 {
		return color.RGBA{}, fmt.Errorf("invalid color %q", s)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}

// Gradient renders a vertical two-color gradient of exactly w x h
func Gradient(w, h int, top, bottom color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		t := 0.0
		if h > 1 {
			t = float64(y) / float64(h-1)
		}
		row := color.RGBA{
			R: lerp(top.R, bottom.R, t),
			G: lerp(top.G, bottom.G, t),
			B: lerp(top.B, bottom.B, t),
			A: 0xff,
		}
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, row)
		}
	}
	return img
}

func lerp(a, b uint8, t float64) uint8 {
	return uint8(float64(a) + (float64(b)-float64(a))*t + 0.5)
}

// WriteGradient renders the gradient to a PNG file
func WriteGradient(path string, w, h int, top, bottom color.RGBA) error {
	if w <= 0 || h <= 0 {
		return fmt.Errorf("%w: gradient %dx%d", ErrInvalidGeometry, w, h)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create gradient file: %w", err)
	}

	if err := png.Encode(file, Gradient(w, h, top, bottom)); err != nil {
		file.Close()
		os.Remove(path)
		return fmt.Errorf("failed to encode gradient: %w", err)
	}

	return file.Close()
}
