// Package pipeline drives one run through content, script, narration,
// assembly and persistence.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/therealutkarshpriyadarshi/shortforge/internal/ai"
	"github.com/therealutkarshpriyadarshi/shortforge/internal/assembly"
	"github.com/therealutkarshpriyadarshi/shortforge/internal/config"
	"github.com/therealutkarshpriyadarshi/shortforge/internal/content"
	"github.com/therealutkarshpriyadarshi/shortforge/internal/logging"
	"github.com/therealutkarshpriyadarshi/shortforge/internal/metrics"
	"github.com/therealutkarshpriyadarshi/shortforge/internal/provider"
	"github.com/therealutkarshpriyadarshi/shortforge/internal/tracing"
	"github.com/therealutkarshpriyadarshi/shortforge/pkg/models"
)

// Stage names
const (
	StageContent     = "content"
	StageScript      = "script"
	StageNarration   = "narration"
	StageAssembly    = "assembly"
	StagePersistence = "persistence"
)

// ErrSilentNarration is returned when synthesized audio has no length
var ErrSilentNarration = errors.New("narration has no duration")

// StageError is a fatal failure of one stage
type StageError struct {
	Stage  string
	Reason string
	Err    error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage failed (%s): %v", e.Stage, e.Reason, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// PersistenceError is returned when the record could not be saved. The
// produced media stays on disk.
type PersistenceError struct {
	Record models.PipelineRecord
	Err    error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to persist record for run %s: %v", e.Record.RunID, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// ScriptWriter produces a script for a content item
type ScriptWriter interface {
	Generate(ctx context.Context, item models.ContentItem) (models.ScriptResult, error)
}

// BackgroundResolver finds a background clip; nil means none
type BackgroundResolver interface {
	Resolve(ctx context.Context, category string, minDuration float64) *models.BackgroundAsset
}

// Assembler renders the final video
type Assembler interface {
	Assemble(ctx context.Context, req assembly.Request) (models.VideoFile, error)
}

// Deps are the collaborators of an Orchestrator. Backgrounds may be nil.
type Deps struct {
	Content     provider.ContentProvider
	Writer      ScriptWriter
	TTS         provider.TTSProvider
	Backgrounds BackgroundResolver
	Assembler   Assembler
	Store       provider.Store
}

// Options tunes every run
type Options struct {
	Width       int
	Height      int
	FrameRate   float64
	Voice       string
	Categories  []string // background categories used when the request names none
	Captions    config.CaptionConfig
	Watermark   config.WatermarkConfig
	SaveTimeout time.Duration
}

// Orchestrator runs the fixed stage sequence. It holds only read-only
// collaborators, so one value can serve concurrent runs.
type Orchestrator struct {
	deps   Deps
	opts   Options
	logger *logging.Logger
	now    func() time.Time
}

// New creates an orchestrator
func New(deps Deps, opts Options, logger *logging.Logger) (*Orchestrator, error) {
	switch {
	case deps.Content == nil:
		return nil, errors.New("pipeline: content provider is required")
	case deps.Writer == nil:
		return nil, errors.New("pipeline: script writer is required")
	case deps.TTS == nil:
		return nil, errors.New("pipeline: tts provider is required")
	case deps.Assembler == nil:
		return nil, errors.New("pipeline: assembler is required")
	case deps.Store == nil:
		return nil, errors.New("pipeline: store is required")
	}
	if logger == nil {
		logger = logging.Nop()
	}
	if opts.SaveTimeout <= 0 {
		opts.SaveTimeout = 10 * time.Second
	}

	return &Orchestrator{deps: deps, opts: opts, logger: logger, now: time.Now}, nil
}

// run carries the artifacts of one Run call
type run struct {
	id     string
	req    models.RunRequest
	logger *logging.Logger
	record models.PipelineRecord
}

// Run produces one video for req. It always returns a record: completed on
// success, failed with a reason code otherwise. The record is saved in both
// cases. The error is a *StageError, a *PersistenceError, or both joined.
func (o *Orchestrator) Run(ctx context.Context, req models.RunRequest) (models.PipelineRecord, error) {
	r := &run{id: req.ID, req: req}
	if r.id == "" {
		r.id = uuid.New().String()
	}
	r.logger = o.logger.WithRunID(r.id)
	r.record = models.PipelineRecord{
		RunID:      r.id,
		Resolution: fmt.Sprintf("%dx%d", o.opts.Width, o.opts.Height),
	}

	span, ctx := tracing.StartSpan(ctx, "pipeline.run")
	tracing.SetTag(span, "run.id", r.id)

	start := o.now()
	metrics.RecordRunStarted()
	r.logger.Info("Run started")

	stageErr := o.execute(ctx, r)

	r.record.CreatedAt = o.now().UTC()
	if stageErr != nil {
		r.record.Status = models.RecordStatusFailed
		r.record.Reason = stageErr.Reason
		r.record.Error = stageErr.Err.Error()
	} else {
		r.record.Status = models.RecordStatusCompleted
	}

	persistErr := o.persist(ctx, r)

	metrics.RecordRunFinished(r.record.Status, r.record.Reason, o.now().Sub(start).Seconds())
	tracing.SetTag(span, "run.status", r.record.Status)

	var err error
	switch {
	case stageErr != nil && persistErr != nil:
		err = errors.Join(stageErr, persistErr)
	case stageErr != nil:
		err = stageErr
	case persistErr != nil:
		err = persistErr
	}
	tracing.FinishSpan(span, err)

	if err != nil {
		r.logger.WithError(err).WithField("reason", r.record.Reason).Error("Run failed")
	} else {
		r.logger.WithField("video", r.record.VideoPath).Info("Run completed")
	}

	return r.record, err
}

func (o *Orchestrator) execute(ctx context.Context, r *run) *StageError {
	var item models.ContentItem
	if err := o.stage(ctx, r, StageContent, func(ctx context.Context) error {
		var err error
		item, err = o.fetchContent(ctx, r.req)
		return err
	}); err != nil {
		return failure(ctx, StageContent, models.ReasonContentFailed, err)
	}
	r.record.ContentTitle = item.Title

	var script models.ScriptResult
	if err := o.stage(ctx, r, StageScript, func(ctx context.Context) error {
		var err error
		script, err = o.deps.Writer.Generate(ctx, item)
		return err
	}); err != nil {
		return failure(ctx, StageScript, scriptReason(err), err)
	}
	r.record.ScriptHook = script.Hook
	r.record.AIProvider = script.Metadata.Provider

	var audio models.AudioFile
	if err := o.stage(ctx, r, StageNarration, func(ctx context.Context) error {
		var err error
		audio, err = o.deps.TTS.Synthesize(ctx, script.Narration(), o.opts.Voice)
		if err == nil && audio.Duration <= 0 {
			err = ErrSilentNarration
		}
		return err
	}); err != nil {
		return failure(ctx, StageNarration, models.ReasonTTSFailed, err)
	}
	r.record.AudioPath = audio.Path

	var video models.VideoFile
	if err := o.stage(ctx, r, StageAssembly, func(ctx context.Context) error {
		var err error
		video, err = o.assemble(ctx, r, item, script, audio)
		return err
	}); err != nil {
		reason := models.ReasonAssemblyFailed
		if errors.Is(err, models.ErrInvalidComposition) {
			reason = models.ReasonInvalidConfig
		}
		return failure(ctx, StageAssembly, reason, err)
	}
	r.record.VideoPath = video.Path
	r.record.Duration = video.Duration
	r.record.Resolution = fmt.Sprintf("%dx%d", video.Width, video.Height)
	r.record.Background = string(video.Background)

	return nil
}

func (o *Orchestrator) fetchContent(ctx context.Context, req models.RunRequest) (models.ContentItem, error) {
	if topic := strings.TrimSpace(req.Topic); topic != "" {
		return content.Custom(topic), nil
	}
	return o.deps.Content.Fetch(ctx)
}

func (o *Orchestrator) assemble(ctx context.Context, r *run, item models.ContentItem, script models.ScriptResult, audio models.AudioFile) (models.VideoFile, error) {
	spec := models.CompositionSpec{
		Width:     o.opts.Width,
		Height:    o.opts.Height,
		FrameRate: o.opts.FrameRate,
		Duration:  audio.Duration,
	}
	if err := spec.Validate(); err != nil {
		return models.VideoFile{}, err
	}

	var bg *models.BackgroundAsset
	if o.deps.Backgrounds != nil {
		bg = o.deps.Backgrounds.Resolve(ctx, o.category(r.id, r.req, item), spec.Duration)
	}
	if bg == nil {
		r.logger.Debug("No background clip, using gradient")
	}

	return o.deps.Assembler.Assemble(ctx, assembly.Request{
		Spec:       spec,
		AudioPath:  audio.Path,
		Background: bg,
		Overlays:   assembly.Captions(script.Hook, spec.Duration, o.opts.Captions, o.opts.Watermark),
		OutputName: fmt.Sprintf("short_%s.mp4", shortID(r.id)),
	})
}

func (o *Orchestrator) category(runID string, req models.RunRequest, item models.ContentItem) string {
	switch {
	case req.Category != "":
		return req.Category
	case len(o.opts.Categories) > 0:
		// Spread runs over the configured categories, stable per run id
		h := fnv.New32a()
		h.Write([]byte(runID))
		return o.opts.Categories[h.Sum32()%uint32(len(o.opts.Categories))]
	default:
		return item.Type
	}
}

// stage runs fn inside its own span and records duration metrics
func (o *Orchestrator) stage(ctx context.Context, r *run, name string, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	span, ctx := tracing.StartSpan(ctx, "pipeline."+name)
	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)

	tracing.FinishSpan(span, err)
	metrics.RecordStage(name, err == nil, elapsed.Seconds())
	r.logger.WithStage(name).LogStageEvent(r.id, name, elapsed, err)
	return err
}

func (o *Orchestrator) persist(ctx context.Context, r *run) error {
	// A cancelled run still gets its record
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.opts.SaveTimeout)
	defer cancel()

	start := time.Now()
	id, err := o.deps.Store.Save(saveCtx, r.record)
	elapsed := time.Since(start)
	metrics.RecordStage(StagePersistence, err == nil, elapsed.Seconds())
	r.logger.WithStage(StagePersistence).LogStageEvent(r.id, StagePersistence, elapsed, err)
	if err != nil {
		return &PersistenceError{Record: r.record, Err: err}
	}

	r.record.ID = id
	return nil
}

func failure(ctx context.Context, stage, reason string, err error) *StageError {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		reason = models.ReasonCancelled
	}
	return &StageError{Stage: stage, Reason: reason, Err: err}
}

func scriptReason(err error) string {
	var aborted *ai.AbortedError
	if errors.As(err, &aborted) {
		return models.ReasonAIAborted
	}
	return models.ReasonAIExhausted
}

func shortID(id string) string {
	id = strings.ReplaceAll(id, "-", "")
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
