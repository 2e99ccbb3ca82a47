package assembly

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/therealutkarshpriyadarshi/shortforge/internal/logging"
	"github.com/therealutkarshpriyadarshi/shortforge/internal/transcoder"
	"github.com/therealutkarshpriyadarshi/shortforge/pkg/models"
)

// fakeRenderer writes a placeholder file for every Compose and reports the
// requested spec back from Inspect unless told otherwise
type fakeRenderer struct {
	mu        sync.Mutex
	calls     []transcoder.ComposeOptions
	failWhen  func(opts transcoder.ComposeOptions) error
	infoFor   func(opts transcoder.ComposeOptions) *transcoder.MediaInfo
	clipInfo  *transcoder.MediaInfo
	lastOpts  transcoder.ComposeOptions
	partials  []string
	cancelled context.CancelFunc
}

func (f *fakeRenderer) Compose(ctx context.Context, opts transcoder.ComposeOptions, cb transcoder.ProgressCallback) error {
	f.mu.Lock()
	f.calls = append(f.calls, opts)
	f.lastOpts = opts
	f.partials = append(f.partials, opts.OutputPath)
	f.mu.Unlock()

	if _, err := transcoder.BuildComposeArgs(opts); err != nil {
		return err
	}
	if err := os.WriteFile(opts.OutputPath, []byte("mp4"), 0644); err != nil {
		return err
	}
	if f.cancelled != nil {
		f.cancelled()
		return context.Canceled
	}
	if f.failWhen != nil {
		if err := f.failWhen(opts); err != nil {
			return err
		}
	}
	if cb != nil {
		cb(100)
	}
	return nil
}

func (f *fakeRenderer) Inspect(ctx context.Context, path string) (*transcoder.MediaInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if path != f.lastOpts.OutputPath {
		if f.clipInfo == nil {
			return nil, errors.New("no clip info")
		}
		return f.clipInfo, nil
	}
	if f.infoFor != nil {
		if info := f.infoFor(f.lastOpts); info != nil {
			return info, nil
		}
	}
	spec := f.lastOpts.Spec
	return &transcoder.MediaInfo{Duration: spec.Duration, Width: spec.Width, Height: spec.Height, HasVideo: true, HasAudio: true}, nil
}

var testSpec = models.CompositionSpec{Width: 1080, Height: 1920, FrameRate: 30, Duration: 83.3}

func newTestEngine(t *testing.T, r Renderer) (*Engine, string) {
	t.Helper()
	out := t.TempDir()
	return NewEngine(r, Options{OutputDir: out, TempDir: t.TempDir()}, logging.Nop()), out
}

func testClip(t *testing.T) *models.BackgroundAsset {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.mp4")
	require.NoError(t, os.WriteFile(path, []byte("clip"), 0644))
	return &models.BackgroundAsset{Path: path, Duration: 14, Width: 1920, Height: 1080, Category: "nature"}
}

func audioFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "voice.mp3")
	require.NoError(t, os.WriteFile(path, []byte("audio"), 0644))
	return path
}

func TestAssemble_ClipPath(t *testing.T) {
	r := &fakeRenderer{}
	engine, out := newTestEngine(t, r)
	clip := testClip(t)

	video, err := engine.Assemble(context.Background(), Request{
		Spec:       testSpec,
		AudioPath:  audioFile(t),
		Background: clip,
		Overlays:   []transcoder.TextOverlay{{Text: "Ruko!", Position: "center", End: 5}},
		OutputName: "short.mp4",
	})
	require.NoError(t, err)

	assert.Equal(t, models.BackgroundClip, video.Background)
	assert.Equal(t, filepath.Join(out, "short.mp4"), video.Path)
	assert.Equal(t, 1080, video.Width)
	assert.Equal(t, 1920, video.Height)
	assert.Equal(t, 83.3, video.Duration)
	assert.Equal(t, 30.0, video.FrameRate)

	require.Len(t, r.calls, 1)
	opts := r.calls[0]
	assert.Equal(t, transcoder.InputConcat, opts.Input)
	require.NotNil(t, opts.Geometry)
	assert.Equal(t, "scale=3413:1920,crop=1080:1920:1166:0", opts.Geometry.Filter())
	assert.True(t, strings.HasSuffix(opts.OutputPath, ".partial"))
	require.Len(t, opts.Overlays, 1)
	assert.NotEmpty(t, opts.Overlays[0].TextFile, "inline text is written to a file")

	_, err = os.Stat(video.Path)
	assert.NoError(t, err)
	_, err = os.Stat(video.Path + ".partial")
	assert.True(t, os.IsNotExist(err))
}

func TestAssemble_ConcatListRepeatsClip(t *testing.T) {
	var list string
	r := &fakeRenderer{}
	r.failWhen = func(opts transcoder.ComposeOptions) error {
		if opts.Input == transcoder.InputConcat {
			data, err := os.ReadFile(opts.BackgroundPath)
			require.NoError(t, err)
			list = string(data)
		}
		return nil
	}
	engine, _ := newTestEngine(t, r)

	_, err := engine.Assemble(context.Background(), Request{Spec: testSpec, AudioPath: audioFile(t), Background: testClip(t)})
	require.NoError(t, err)
	assert.Equal(t, 6, strings.Count(list, "file '"), "83.3s over a 14s clip needs 6 repetitions")
}

func TestAssemble_NoBackgroundUsesGradient(t *testing.T) {
	r := &fakeRenderer{}
	engine, _ := newTestEngine(t, r)

	video, err := engine.Assemble(context.Background(), Request{Spec: testSpec, AudioPath: audioFile(t)})
	require.NoError(t, err)
	assert.Equal(t, models.BackgroundGradient, video.Background)
	require.Len(t, r.calls, 1)
	assert.Equal(t, transcoder.InputImage, r.calls[0].Input)
	assert.Equal(t, ".png", filepath.Ext(r.calls[0].BackgroundPath))
}

func TestAssemble_ClipFailureFallsBackToGradient(t *testing.T) {
	r := &fakeRenderer{failWhen: func(opts transcoder.ComposeOptions) error {
		if opts.Input == transcoder.InputConcat {
			return errors.New("decode error")
		}
		return nil
	}}
	engine, out := newTestEngine(t, r)

	video, err := engine.Assemble(context.Background(), Request{Spec: testSpec, AudioPath: audioFile(t), Background: testClip(t)})
	require.NoError(t, err)
	assert.Equal(t, models.BackgroundGradient, video.Background)
	assert.Len(t, r.calls, 2)

	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	require.Len(t, entries, 1, "failed partial output must be removed")
}

func TestAssemble_VerificationMismatchFallsBack(t *testing.T) {
	r := &fakeRenderer{infoFor: func(opts transcoder.ComposeOptions) *transcoder.MediaInfo {
		if opts.Input == transcoder.InputConcat {
			return &transcoder.MediaInfo{Duration: 70, Width: 1080, Height: 1920, HasVideo: true}
		}
		return nil
	}}
	engine, _ := newTestEngine(t, r)

	video, err := engine.Assemble(context.Background(), Request{Spec: testSpec, AudioPath: audioFile(t), Background: testClip(t)})
	require.NoError(t, err)
	assert.Equal(t, models.BackgroundGradient, video.Background)
}

func TestAssemble_OverlayFailureRunsPlainGradient(t *testing.T) {
	r := &fakeRenderer{failWhen: func(opts transcoder.ComposeOptions) error {
		if len(opts.Overlays) > 0 {
			return errors.New("drawtext: font not found")
		}
		return nil
	}}
	engine, _ := newTestEngine(t, r)

	video, err := engine.Assemble(context.Background(), Request{
		Spec:       testSpec,
		AudioPath:  audioFile(t),
		Background: testClip(t),
		Overlays:   []transcoder.TextOverlay{{Text: "hook"}},
	})
	require.NoError(t, err)
	assert.Equal(t, models.BackgroundGradientPlain, video.Background)
	assert.Len(t, r.calls, 3)
	assert.Empty(t, r.calls[2].Overlays)
}

func TestAssemble_InvalidOverlayRunsPlainGradient(t *testing.T) {
	r := &fakeRenderer{}
	engine, _ := newTestEngine(t, r)

	video, err := engine.Assemble(context.Background(), Request{
		Spec:      testSpec,
		AudioPath: audioFile(t),
		Overlays:  []transcoder.TextOverlay{{Text: "hook", Position: "sideways"}},
	})
	require.NoError(t, err)
	assert.Equal(t, models.BackgroundGradientPlain, video.Background)
}

func TestAssemble_GradientFailureIsFatal(t *testing.T) {
	r := &fakeRenderer{failWhen: func(transcoder.ComposeOptions) error { return errors.New("encoder missing") }}
	engine, out := newTestEngine(t, r)

	_, err := engine.Assemble(context.Background(), Request{Spec: testSpec, AudioPath: audioFile(t), Background: testClip(t)})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAssemblyFailed)

	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestAssemble_CancellationRemovesPartial(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := &fakeRenderer{cancelled: cancel}
	engine, out := newTestEngine(t, r)

	_, err := engine.Assemble(ctx, Request{Spec: testSpec, AudioPath: audioFile(t), Background: testClip(t)})
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrAssemblyFailed)
	assert.Len(t, r.calls, 1, "no fallback after cancellation")

	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestAssemble_ProbesClipWithoutDimensions(t *testing.T) {
	r := &fakeRenderer{clipInfo: &transcoder.MediaInfo{Duration: 20, Width: 720, Height: 1280, HasVideo: true}}
	engine, _ := newTestEngine(t, r)

	clip := testClip(t)
	clip.Width, clip.Height = 0, 0

	video, err := engine.Assemble(context.Background(), Request{Spec: testSpec, AudioPath: audioFile(t), Background: clip})
	require.NoError(t, err)
	assert.Equal(t, models.BackgroundClip, video.Background)
	assert.Equal(t, "scale=1080:1920,crop=1080:1920:0:0", r.calls[0].Geometry.Filter())
}

func TestAssemble_InvalidRequest(t *testing.T) {
	engine, _ := newTestEngine(t, &fakeRenderer{})

	_, err := engine.Assemble(context.Background(), Request{Spec: models.CompositionSpec{Width: 1081, Height: 1920, FrameRate: 30, Duration: 10}, AudioPath: "a.mp3"})
	assert.ErrorIs(t, err, ErrAssemblyFailed)

	_, err = engine.Assemble(context.Background(), Request{Spec: testSpec})
	assert.ErrorIs(t, err, ErrAssemblyFailed)
}

func TestVerify(t *testing.T) {
	spec := models.CompositionSpec{Width: 1080, Height: 1920, FrameRate: 30, Duration: 10}
	tests := []struct {
		name string
		info transcoder.MediaInfo
		ok   bool
	}{
		{"exact", transcoder.MediaInfo{Duration: 10, Width: 1080, Height: 1920, HasVideo: true}, true},
		{"within a frame", transcoder.MediaInfo{Duration: 10.03, Width: 1080, Height: 1920, HasVideo: true}, true},
		{"too long", transcoder.MediaInfo{Duration: 10.1, Width: 1080, Height: 1920, HasVideo: true}, false},
		{"wrong size", transcoder.MediaInfo{Duration: 10, Width: 1920, Height: 1080, HasVideo: true}, false},
		{"no video", transcoder.MediaInfo{Duration: 10, Width: 1080, Height: 1920}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Verify(spec, &tt.info)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrVerification)
			}
		})
	}
}
