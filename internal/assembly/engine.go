// Package assembly renders the final video: background, narration and captions
// composed at an exact duration and resolution, degrading to a synthetic
// gradient background when the clip path fails.
package assembly

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/therealutkarshpriyadarshi/shortforge/internal/fallback"
	"github.com/therealutkarshpriyadarshi/shortforge/internal/logging"
	"github.com/therealutkarshpriyadarshi/shortforge/internal/metrics"
	"github.com/therealutkarshpriyadarshi/shortforge/internal/transcoder"
	"github.com/therealutkarshpriyadarshi/shortforge/pkg/models"
)

// ErrAssemblyFailed means even the synthetic background path could not render
var ErrAssemblyFailed = errors.New("video assembly failed")

// ErrVerification is returned when a rendered file does not match its spec
var ErrVerification = errors.New("rendered video does not match composition spec")

const partialSuffix = ".partial"

// Renderer composes and inspects media
type Renderer interface {
	Compose(ctx context.Context, opts transcoder.ComposeOptions, progressCB transcoder.ProgressCallback) error
	Inspect(ctx context.Context, path string) (*transcoder.MediaInfo, error)
}

// Options configures export and scratch locations
type Options struct {
	OutputDir      string
	TempDir        string
	VideoCodec     string
	AudioCodec     string
	AudioBitrate   string
	Preset         string
	CRF            int
	Threads        int
	GradientTop    color.RGBA
	GradientBottom color.RGBA
}

// DefaultGradient colors match a dark indigo to plum fade
var (
	DefaultGradientTop    = color.RGBA{R: 25, G: 25, B: 60, A: 255}
	DefaultGradientBottom = color.RGBA{R: 60, G: 25, B: 60, A: 255}
)

// Request is one video to assemble
type Request struct {
	Spec       models.CompositionSpec
	AudioPath  string
	Background *models.BackgroundAsset // nil selects the gradient path
	Overlays   []transcoder.TextOverlay
	OutputName string                    // file name inside OutputDir; generated when empty
	Progress   transcoder.ProgressCallback // optional
}

// Engine assembles videos. Safe for concurrent use.
type Engine struct {
	renderer Renderer
	opts     Options
	logger   *logging.Logger
}

// NewEngine creates an engine
func NewEngine(renderer Renderer, opts Options, logger *logging.Logger) *Engine {
	if opts.TempDir == "" {
		opts.TempDir = os.TempDir()
	}
	if opts.GradientTop == (color.RGBA{}) {
		opts.GradientTop = DefaultGradientTop
	}
	if opts.GradientBottom == (color.RGBA{}) {
		opts.GradientBottom = DefaultGradientBottom
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &Engine{renderer: renderer, opts: opts, logger: logger}
}

// Assemble renders req. The clip path is tried first when a background is
// given, then the gradient path, then a gradient without overlays. Output
// is written to a partial file and renamed only after verification.
func (e *Engine) Assemble(ctx context.Context, req Request) (models.VideoFile, error) {
	if err := req.Spec.Validate(); err != nil {
		return models.VideoFile{}, fmt.Errorf("%w: %w", ErrAssemblyFailed, err)
	}
	if req.AudioPath == "" {
		return models.VideoFile{}, fmt.Errorf("%w: no narration audio", ErrAssemblyFailed)
	}

	if err := os.MkdirAll(e.opts.OutputDir, 0755); err != nil {
		return models.VideoFile{}, fmt.Errorf("%w: create output dir: %w", ErrAssemblyFailed, err)
	}
	if err := os.MkdirAll(e.opts.TempDir, 0755); err != nil {
		return models.VideoFile{}, fmt.Errorf("%w: create temp dir: %w", ErrAssemblyFailed, err)
	}
	work, err := os.MkdirTemp(e.opts.TempDir, "assemble-*")
	if err != nil {
		return models.VideoFile{}, fmt.Errorf("%w: create work dir: %w", ErrAssemblyFailed, err)
	}
	defer os.RemoveAll(work)

	name := req.OutputName
	if name == "" {
		name = fmt.Sprintf("short_%s.mp4", uuid.NewString()[:8])
	}
	output := filepath.Join(e.opts.OutputDir, name)

	overlays, err := materializeOverlays(work, req.Overlays)
	if err != nil {
		return models.VideoFile{}, fmt.Errorf("%w: %w", ErrAssemblyFailed, err)
	}

	job := &job{engine: e, req: req, work: work, output: output, overlays: overlays}

	var strategies []fallback.Strategy[models.VideoFile]
	if req.Background != nil {
		strategies = append(strategies, fallback.Strategy[models.VideoFile]{
			Name: string(models.BackgroundClip), Run: job.clip,
		})
	}
	strategies = append(strategies, fallback.Strategy[models.VideoFile]{
		Name: string(models.BackgroundGradient), Run: job.gradient,
	})
	if len(overlays) > 0 {
		strategies = append(strategies, fallback.Strategy[models.VideoFile]{
			Name: string(models.BackgroundGradientPlain), Run: job.gradientPlain,
		})
	}

	start := time.Now()
	result, err := fallback.Run(ctx, strategies, fallback.WithOnFailure(func(a fallback.Attempt) {
		metrics.RecordAssemblyFallback(a.Name)
		e.logger.WithError(a.Err).WithField("strategy", a.Name).Warn("assembly strategy failed")
	}))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return models.VideoFile{}, ctxErr
		}
		return models.VideoFile{}, fmt.Errorf("%w: %w", ErrAssemblyFailed, err)
	}

	video := result.Value
	elapsed := time.Since(start)
	metrics.RecordAssembly(string(video.Background), elapsed.Seconds())
	e.logger.LogAssembly(video.Path, string(video.Background), video.Duration, video.Width, video.Height, elapsed)
	return video, nil
}

// job holds the state shared by the strategies of one Assemble call
type job struct {
	engine   *Engine
	req      Request
	work     string
	output   string
	overlays []transcoder.TextOverlay
	// gradientPath is rendered once and shared by both gradient strategies
	gradientPath string
}

func (j *job) clip(ctx context.Context) (models.VideoFile, error) {
	asset := j.req.Background
	spec := j.req.Spec

	width, height, duration := asset.Width, asset.Height, asset.Duration
	if width <= 0 || height <= 0 || duration <= 0 {
		info, err := j.engine.renderer.Inspect(ctx, asset.Path)
		if err != nil {
			return models.VideoFile{}, fmt.Errorf("probe background: %w", err)
		}
		width, height, duration = info.Width, info.Height, info.Duration
	}

	geometry, err := transcoder.Cover(width, height, spec.Width, spec.Height)
	if err != nil {
		return models.VideoFile{}, err
	}
	plan, err := transcoder.PlanLoop(spec.Duration, duration)
	if err != nil {
		return models.VideoFile{}, err
	}
	list, err := transcoder.WriteConcatList(j.work, asset.Path, plan.Count)
	if err != nil {
		return models.VideoFile{}, err
	}

	j.engine.logger.Debugf("looping %s %d times (%.2fs) trimmed to %.2fs, %s", asset.Path, plan.Count, plan.Looped, plan.Trim, geometry.Filter())

	return j.render(ctx, models.BackgroundClip, transcoder.ComposeOptions{
		Input:          transcoder.InputConcat,
		BackgroundPath: list,
		Geometry:       &geometry,
		Overlays:       j.overlays,
	})
}

func (j *job) gradient(ctx context.Context) (models.VideoFile, error) {
	return j.renderGradient(ctx, models.BackgroundGradient, j.overlays)
}

func (j *job) gradientPlain(ctx context.Context) (models.VideoFile, error) {
	return j.renderGradient(ctx, models.BackgroundGradientPlain, nil)
}

func (j *job) renderGradient(ctx context.Context, kind models.BackgroundKind, overlays []transcoder.TextOverlay) (models.VideoFile, error) {
	if j.gradientPath == "" {
		path := filepath.Join(j.work, "gradient.png")
		spec := j.req.Spec
		if err := transcoder.WriteGradient(path, spec.Width, spec.Height, j.engine.opts.GradientTop, j.engine.opts.GradientBottom); err != nil {
			return models.VideoFile{}, err
		}
		j.gradientPath = path
	}
	return j.render(ctx, kind, transcoder.ComposeOptions{
		Input:          transcoder.InputImage,
		BackgroundPath: j.gradientPath,
		Overlays:       overlays,
	})
}

// render composes into the partial file, verifies it and moves it into place
func (j *job) render(ctx context.Context, kind models.BackgroundKind, opts transcoder.ComposeOptions) (models.VideoFile, error) {
	o := j.engine.opts
	partial := j.output + partialSuffix

	opts.AudioPath = j.req.AudioPath
	opts.OutputPath = partial
	opts.Spec = j.req.Spec
	opts.VideoCodec = o.VideoCodec
	opts.AudioCodec = o.AudioCodec
	opts.AudioBitrate = o.AudioBitrate
	opts.Preset = o.Preset
	opts.CRF = o.CRF
	opts.Threads = o.Threads

	committed := false
	defer func() {
		if !committed {
			os.Remove(partial)
		}
	}()

	if err := j.engine.renderer.Compose(ctx, opts, j.req.Progress); err != nil {
		return models.VideoFile{}, err
	}

	info, err := j.engine.renderer.Inspect(ctx, partial)
	if err != nil {
		return models.VideoFile{}, fmt.Errorf("probe output: %w", err)
	}
	if err := Verify(j.req.Spec, info); err != nil {
		return models.VideoFile{}, err
	}

	if err := os.Rename(partial, j.output); err != nil {
		return models.VideoFile{}, fmt.Errorf("finalize output: %w", err)
	}
	committed = true

	size := info.Size
	if st, err := os.Stat(j.output); err == nil {
		size = st.Size()
	}

	return models.VideoFile{
		Path:       j.output,
		Duration:   info.Duration,
		Width:      info.Width,
		Height:     info.Height,
		FrameRate:  j.req.Spec.FrameRate,
		Background: kind,
		Size:       size,
	}, nil
}

// Verify checks a rendered file has the exact resolution and a duration
// within one frame of the spec
func Verify(spec models.CompositionSpec, info *transcoder.MediaInfo) error {
	if !info.HasVideo {
		return fmt.Errorf("%w: no video stream", ErrVerification)
	}
	if info.Width != spec.Width || info.Height != spec.Height {
		return fmt.Errorf("%w: resolution %dx%d, want %s", ErrVerification, info.Width, info.Height, spec.Resolution())
	}
	if diff := math.Abs(info.Duration - spec.Duration); diff > spec.FrameDuration()+1e-6 {
		return fmt.Errorf("%w: duration %.3fs, want %.3fs", ErrVerification, info.Duration, spec.Duration)
	}
	return nil
}

// materializeOverlays writes inline overlay text to files drawtext can read
// without escaping. Invalid overlays are kept so the overlay strategies fail
// and the plain gradient runs.
func materializeOverlays(dir string, overlays []transcoder.TextOverlay) ([]transcoder.TextOverlay, error) {
	out := make([]transcoder.TextOverlay, 0, len(overlays))
	for i, o := range overlays {
		if o.TextFile == "" && o.Text != "" {
			path := filepath.Join(dir, fmt.Sprintf("overlay-%d.txt", i))
			if err := os.WriteFile(path, []byte(o.Text), 0644); err != nil {
				return nil, fmt.Errorf("write overlay text: %w", err)
			}
			o.TextFile = path
		}
		out = append(out, o)
	}
	return out, nil
}
