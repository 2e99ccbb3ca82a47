package provider

import (
	"context"

	"github.com/therealutkarshpriyadarshi/shortforge/pkg/models"
)

// ContentProvider supplies source material
type ContentProvider interface {
	Fetch(ctx context.Context) (models.ContentItem, error)
}

// AIProvider writes a narration script from a prompt
type AIProvider interface {
	Generate(ctx context.Context, prompt models.Prompt) (models.ScriptResult, error)
}

// TTSProvider turns text into an audio file
type TTSProvider interface {
	Synthesize(ctx context.Context, text, voice string) (models.AudioFile, error)
}

// BackgroundSource fetches a clip at least minDuration long matching query and
// writes it to dst. A nil asset with a nil error means no result.
type BackgroundSource interface {
	Fetch(ctx context.Context, query string, minDuration float64, dst string) (*models.BackgroundAsset, error)
}

// Store persists pipeline records
type Store interface {
	Save(ctx context.Context, record models.PipelineRecord) (string, error)
	List(ctx context.Context, limit int) ([]models.PipelineRecord, error)
}
