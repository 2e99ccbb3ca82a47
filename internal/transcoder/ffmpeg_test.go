package transcoder

import (
	"context"
	"image/color"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/therealutkarshpriyadarshi/shortforge/pkg/models"
)

const sampleProbe = `{
  "streams": [
    {"codec_type": "video", "codec_name": "h264", "width": 1920, "height": 1080, "r_frame_rate": "30/1", "avg_frame_rate": "30000/1001"},
    {"codec_type": "audio", "codec_name": "aac"}
  ],
  "format": {"filename": "clip.mp4", "format_name": "mov,mp4", "duration": "14.000000", "size": "1048576", "bit_rate": "600000"}
}`

func TestParseProbeOutput(t *testing.T) {
	metadata, err := ParseProbeOutput([]byte(sampleProbe))
	require.NoError(t, err)

	info := metadata.Info()
	assert.InDelta(t, 14.0, info.Duration, 1e-9)
	assert.Equal(t, 1920, info.Width)
	assert.Equal(t, 1080, info.Height)
	assert.InDelta(t, 29.97, info.FrameRate, 0.01)
	assert.Equal(t, int64(1048576), info.Size)
	assert.True(t, info.HasVideo)
	assert.True(t, info.HasAudio)

	_, err = ParseProbeOutput([]byte("not json"))
	assert.Error(t, err)
}

func TestParseFrameRate(t *testing.T) {
	assert.Equal(t, 30.0, parseFrameRate("30/1"))
	assert.Equal(t, 0.0, parseFrameRate("0/0"))
	assert.Equal(t, 25.0, parseFrameRate("25"))
}

func requireFFmpeg(t *testing.T) *FFmpeg {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping ffmpeg test in short mode")
	}
	f := NewFFmpeg("ffmpeg", "ffprobe")
	if err := f.Available(); err != nil {
		t.Skip("ffmpeg not available")
	}
	return f
}

func makeTone(t *testing.T, dir string, seconds string) string {
	t.Helper()
	path := filepath.Join(dir, "tone.m4a")
	cmd := exec.Command("ffmpeg", "-y", "-f", "lavfi", "-i", "sine=frequency=440:duration="+seconds, "-c:a", "aac", path)
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, string(out))
	return path
}

func TestComposeGradient(t *testing.T) {
	f := requireFFmpeg(t)
	dir := t.TempDir()
	ctx := context.Background()

	audio := makeTone(t, dir, "2.5")
	duration, err := f.ProbeDuration(ctx, audio)
	require.NoError(t, err)

	gradient := filepath.Join(dir, "gradient.png")
	require.NoError(t, WriteGradient(gradient, 180, 320, color.RGBA{R: 25, G: 25, B: 60, A: 255}, color.RGBA{R: 60, G: 25, B: 60, A: 255}))

	spec := models.CompositionSpec{Width: 180, Height: 320, FrameRate: 30, Duration: duration}
	out := filepath.Join(dir, "out.mp4.partial")

	var last float64
	err = f.Compose(ctx, ComposeOptions{
		Input:          InputImage,
		BackgroundPath: gradient,
		AudioPath:      audio,
		OutputPath:     out,
		Spec:           spec,
	}, func(p float64) { last = p })
	require.NoError(t, err)
	assert.Equal(t, 100.0, last)

	info, err := f.Inspect(ctx, out)
	require.NoError(t, err)
	assert.Equal(t, 180, info.Width)
	assert.Equal(t, 320, info.Height)
	assert.InDelta(t, duration, info.Duration, spec.FrameDuration())

	_, err = os.Stat(out)
	assert.NoError(t, err)
}
