package models

import "time"

// AudioFile is a synthesized narration track
type AudioFile struct {
	Path     string  `json:"path"`
	Duration float64 `json:"duration"`
	Provider string  `json:"provider"`
	Voice    string  `json:"voice"`
}

// BackgroundAsset is a cached background clip. Duration is the raw clip
// length before any looping.
type BackgroundAsset struct {
	Path      string    `json:"path"`
	Duration  float64   `json:"duration"`
	Category  string    `json:"category"`
	FetchedAt time.Time `json:"fetched_at"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	SourceID  string    `json:"source_id,omitempty"`
}

// BackgroundKind describes which path produced a video's background
type BackgroundKind string

// BackgroundKind constants
const (
	BackgroundClip          BackgroundKind = "clip"
	BackgroundGradient      BackgroundKind = "gradient"
	BackgroundGradientPlain BackgroundKind = "gradient_plain"
)

// VideoFile is the final assembled output
type VideoFile struct {
	Path       string         `json:"path"`
	Duration   float64        `json:"duration"`
	Width      int            `json:"width"`
	Height     int            `json:"height"`
	FrameRate  float64        `json:"frame_rate"`
	Background BackgroundKind `json:"background"`
	Size       int64          `json:"size"`
}
