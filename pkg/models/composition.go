package models

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// CompositionSpec is the geometry and timing contract an assembled video must satisfy
type CompositionSpec struct {
	Width     int     `json:"width"`
	Height    int     `json:"height"`
	FrameRate float64 `json:"frame_rate"`
	Duration  float64 `json:"duration"`
}

// ErrInvalidComposition is returned for unusable composition specs
var ErrInvalidComposition = errors.New("invalid composition spec")

// Validate checks that the spec can be encoded with yuv420p
func (c CompositionSpec) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("%w: resolution %dx%d", ErrInvalidComposition, c.Width, c.Height)
	}
	if c.Width%2 != 0 || c.Height%2 != 0 {
		return fmt.Errorf("%w: resolution %dx%d must have even dimensions", ErrInvalidComposition, c.Width, c.Height)
	}
	if c.FrameRate <= 0 {
		return fmt.Errorf("%w: frame rate %.3f", ErrInvalidComposition, c.FrameRate)
	}
	if c.Duration <= 0 {
		return fmt.Errorf("%w: duration %.3f", ErrInvalidComposition, c.Duration)
	}
	return nil
}

// FrameDuration returns the length of a single frame in seconds
func (c CompositionSpec) FrameDuration() float64 {
	if c.FrameRate <= 0 {
		return 0
	}
	return 1 / c.FrameRate
}

// Resolution returns the spec resolution as WxH
func (c CompositionSpec) Resolution() string {
	return fmt.Sprintf("%dx%d", c.Width, c.Height)
}

// Named vertical resolutions
var resolutionPresets = map[string][2]int{
	"1080p": {1080, 1920},
	"720p":  {720, 1280},
	"540p":  {540, 960},
	"480p":  {480, 854},
}

// ParseResolution parses "WxH" or a named vertical preset such as "1080p"
func ParseResolution(s string) (int, int, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if preset, ok := resolutionPresets[s]; ok {
		return preset[0], preset[1], nil
	}

	parts := strings.Split(s, "x")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid resolution %q", s)
	}
	w, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid resolution width %q: %w", parts[0], err)
	}
	h, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid resolution height %q: %w", parts[1], err)
	}
	if w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("invalid resolution %q", s)
	}
	return w, h, nil
}
