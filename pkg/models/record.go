package models

import "time"

// PipelineRecord is the outcome of one run, written once at the end
type PipelineRecord struct {
	ID           string    `json:"id"`
	RunID        string    `json:"run_id"`
	ContentTitle string    `json:"content_title"`
	ScriptHook   string    `json:"script_hook"`
	AIProvider   string    `json:"ai_provider,omitempty"`
	AudioPath    string    `json:"audio_path,omitempty"`
	VideoPath    string    `json:"video_path,omitempty"`
	Duration     float64   `json:"duration"`
	Resolution   string    `json:"resolution"`
	Background   string    `json:"background,omitempty"`
	Status       string    `json:"status"`
	Reason       string    `json:"reason,omitempty"`
	Error        string    `json:"error,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// RecordStatus constants
const (
	RecordStatusCompleted = "completed"
	RecordStatusFailed    = "failed"
)

// Failure reason codes
const (
	ReasonContentFailed    = "content_failed"
	ReasonAIExhausted      = "ai_exhausted"
	ReasonAIAborted        = "ai_aborted"
	ReasonTTSFailed        = "tts_failed"
	ReasonAssemblyFailed   = "assembly_failed"
	ReasonCancelled        = "cancelled"
	ReasonInvalidConfig    = "invalid_config"
	ReasonPersistenceError = "persistence_failed"
)

// Succeeded reports whether the run completed
func (r PipelineRecord) Succeeded() bool {
	return r.Status == RecordStatusCompleted
}

// RunRequest asks the orchestrator to produce one video
type RunRequest struct {
	ID          string    `json:"id"`
	Category    string    `json:"category,omitempty"`
	Topic       string    `json:"topic,omitempty"`
	RequestedAt time.Time `json:"requested_at"`
}
