package transcoder

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/therealutkarshpriyadarshi/shortforge/pkg/models"
)

// BackgroundInput says how the background input should be read
type BackgroundInput string

// Background input kinds
const (
	InputConcat BackgroundInput = "concat" // concat demuxer list of clip repetitions
	InputImage  BackgroundInput = "image"  // a still image looped for the duration
)

// ComposeOptions describes one single-pass composition of background, narration and overlays
type ComposeOptions struct {
	Input          BackgroundInput
	BackgroundPath string
	Geometry       *CoverGeometry
	AudioPath      string
	OutputPath     string
	Spec           models.CompositionSpec
	Overlays       []TextOverlay
	VideoCodec     string
	AudioCodec     string
	AudioBitrate   string
	Preset         string
	CRF            int
	Threads        int
}

func (o *ComposeOptions) setDefaults() {
	if o.VideoCodec == "" {
		o.VideoCodec = "libx264"
	}
	if o.AudioCodec == "" {
		o.AudioCodec = "aac"
	}
	if o.AudioBitrate == "" {
		o.AudioBitrate = "128k"
	}
	if o.Preset == "" {
		o.Preset = "ultrafast"
	}
	if o.CRF == 0 {
		o.CRF = 23
	}
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

func formatRate(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// BuildComposeArgs builds the ffmpeg arguments for opts. The output path is always last.
func BuildComposeArgs(opts ComposeOptions) ([]string, error) {
	opts.setDefaults()

	if err := opts.Spec.Validate(); err != nil {
		return nil, err
	}
	if opts.BackgroundPath == "" || opts.AudioPath == "" || opts.OutputPath == "" {
		return nil, errors.New("background, audio and output paths are required")
	}
	for _, o := range opts.Overlays {
		if err := o.Validate(); err != nil {
			return nil, err
		}
	}

	spec := opts.Spec
	duration := formatSeconds(spec.Duration)
	fps := formatRate(spec.FrameRate)

	args := []string{"-hide_banner", "-y"}

	var video []string
	switch opts.Input {
	case InputConcat:
		if opts.Geometry == nil {
			return nil, fmt.Errorf("%w: concat input needs cover geometry", ErrInvalidGeometry)
		}
		if opts.Geometry.Width != spec.Width || opts.Geometry.Height != spec.Height {
			return nil, fmt.Errorf("%w: geometry %dx%d does not match %s",
				ErrInvalidGeometry, opts.Geometry.Width, opts.Geometry.Height, spec.Resolution())
		}
		args = append(args, "-f", "concat", "-safe", "0", "-i", opts.BackgroundPath)
		video = append(video, opts.Geometry.Filter())
	case InputImage:
		args = append(args, "-loop", "1", "-framerate", fps, "-i", opts.BackgroundPath)
		video = append(video, fmt.Sprintf("scale=%d:%d", spec.Width, spec.Height))
	default:
		return nil, fmt.Errorf("unknown background input %q", opts.Input)
	}

	args = append(args, "-i", opts.AudioPath)

	video = append(video,
		"fps="+fps,
		"setsar=1",
		"trim=duration="+duration,
		"setpts=PTS-STARTPTS",
	)
	for _, o := range opts.Overlays {
		video = append(video, o.Filter())
	}
	video = append(video, "format=yuv420p")

	graph := fmt.Sprintf("[0:v]%s[v];[1:a]apad,atrim=duration=%s,asetpts=PTS-STARTPTS[a]",
		strings.Join(video, ","), duration)

	args = append(args,
		"-filter_complex", graph,
		"-map", "[v]",
		"-map", "[a]",
		"-c:v", opts.VideoCodec,
		"-preset", opts.Preset,
		"-crf", strconv.Itoa(opts.CRF),
		"-pix_fmt", "yuv420p",
		"-r", fps,
	)
	if opts.Threads > 0 {
		args = append(args, "-threads", strconv.Itoa(opts.Threads))
	}
	args = append(args,
		"-c:a", opts.AudioCodec,
		"-b:a", opts.AudioBitrate,
		"-t", duration,
		"-movflags", "+faststart",
		"-f", "mp4",
		opts.OutputPath,
	)

	return args, nil
}

// Compose renders opts in a single ffmpeg pass
func (f *FFmpeg) Compose(ctx context.Context, opts ComposeOptions, progressCB ProgressCallback) error {
	args, err := BuildComposeArgs(opts)
	if err != nil {
		return err
	}
	return f.Run(ctx, args, opts.Spec.Duration, progressCB)
}
