package transcoder

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
)

// ErrNoVideoStream is returned when a probed file has no video stream
var ErrNoVideoStream = errors.New("no video stream")

// FFmpeg wraps FFmpeg operations
type FFmpeg struct {
	ffmpegPath  string
	ffprobePath string
}

// NewFFmpeg creates a new FFmpeg instance
func NewFFmpeg(ffmpegPath, ffprobePath string) *FFmpeg {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &FFmpeg{
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
	}
}

// Available checks that both binaries can be found
func (f *FFmpeg) Available() error {
	for _, bin := range []string{f.ffmpegPath, f.ffprobePath} {
		if _, err := exec.LookPath(bin); err != nil {
			return fmt.Errorf("%s not found: %w", bin, err)
		}
	}
	return nil
}

// MediaMetadata holds metadata extracted from ffprobe
type MediaMetadata struct {
	Format  FormatInfo   `json:"format"`
	Streams []StreamInfo `json:"streams"`
}

// FormatInfo holds format information
type FormatInfo struct {
	Filename   string `json:"filename"`
	FormatName string `json:"format_name"`
	Duration   string `json:"duration"`
	Size       string `json:"size"`
	BitRate    string `json:"bit_rate"`
}

// StreamInfo holds stream information
type StreamInfo struct {
	CodecType    string `json:"codec_type"`
	CodecName    string `json:"codec_name"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	Duration     string `json:"duration"`
	FrameRate    string `json:"r_frame_rate"`
	AvgFrameRate string `json:"avg_frame_rate"`
}

// MediaInfo is the parsed subset of probe output the pipeline uses
type MediaInfo struct {
	Duration  float64
	Width     int
	Height    int
	FrameRate float64
	Size      int64
	HasVideo  bool
	HasAudio  bool
}

// ProbeMedia extracts metadata from a media file
func (f *FFmpeg) ProbeMedia(ctx context.Context, inputPath string) (*MediaMetadata, error) {
	args := []string{
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		inputPath,
	}

	cmd := exec.CommandContext(ctx, f.ffprobePath, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffprobe failed: %w, stderr: %s", err, stderr.String())
	}

	return ParseProbeOutput(stdout.Bytes())
}

// ParseProbeOutput decodes ffprobe JSON
func ParseProbeOutput(data []byte) (*MediaMetadata, error) {
	var metadata MediaMetadata
	if err := json.Unmarshal(data, &metadata); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}
	return &metadata, nil
}

// Info summarizes probe metadata
func (m *MediaMetadata) Info() *MediaInfo {
	info := &MediaInfo{}

	if duration, err := strconv.ParseFloat(m.Format.Duration, 64); err == nil {
		info.Duration = duration
	}
	if size, err := strconv.ParseInt(m.Format.Size, 10, 64); err == nil {
		info.Size = size
	}

	for _, stream := range m.Streams {
		switch stream.CodecType {
		case "video":
			if info.HasVideo {
				continue
			}
			info.HasVideo = true
			info.Width = stream.Width
			info.Height = stream.Height
			info.FrameRate = parseFrameRate(stream.AvgFrameRate)
			if info.FrameRate == 0 {
				info.FrameRate = parseFrameRate(stream.FrameRate)
			}
			if info.Duration == 0 {
				if d, err := strconv.ParseFloat(stream.Duration, 64); err == nil {
					info.Duration = d
				}
			}
		case "audio":
			info.HasAudio = true
			if info.Duration == 0 {
				if d, err := strconv.ParseFloat(stream.Duration, 64); err == nil {
					info.Duration = d
				}
			}
		}
	}

	return info
}

func parseFrameRate(rate string) float64 {
	parts := strings.Split(rate, "/")
	if len(parts) != 2 {
		v, _ := strconv.ParseFloat(rate, 64)
		return v
	}
	num, _ := strconv.ParseFloat(parts[0], 64)
	den, _ := strconv.ParseFloat(parts[1], 64)
	if den == 0 {
		return 0
	}
	return num / den
}

// Inspect probes a file and returns its summary
func (f *FFmpeg) Inspect(ctx context.Context, inputPath string) (*MediaInfo, error) {
	metadata, err := f.ProbeMedia(ctx, inputPath)
	if err != nil {
		return nil, err
	}
	return metadata.Info(), nil
}

// ProbeDuration returns the duration of a media file in seconds
func (f *FFmpeg) ProbeDuration(ctx context.Context, inputPath string) (float64, error) {
	info, err := f.Inspect(ctx, inputPath)
	if err != nil {
		return 0, err
	}
	if info.Duration <= 0 {
		return 0, fmt.Errorf("ffprobe reported no duration for %s", inputPath)
	}
	return info.Duration, nil
}

// ProgressCallback is called with progress updates
type ProgressCallback func(progress float64)

var progressRegex = regexp.MustCompile(`out_time_ms=(\d+)`)

// Run executes ffmpeg with args, reporting progress against totalDuration
func (f *FFmpeg) Run(ctx context.Context, args []string, totalDuration float64, progressCB ProgressCallback) error {
	args = append([]string{"-progress", "pipe:1", "-nostats"}, args...)

	cmd := exec.CommandContext(ctx, f.ffmpegPath, args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to create stdout pipe: %w", err)
	}

	var stderrBuf bytes.Buffer
	cmd.Stderr = &stderrBuf

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		matches := progressRegex.FindStringSubmatch(scanner.Text())
		if len(matches) < 2 || progressCB == nil || totalDuration <= 0 {
			continue
		}
		if timeMs, err := strconv.ParseFloat(matches[1], 64); err == nil {
			// out_time_ms is reported in microseconds
			progress := (timeMs / 1000000.0 / totalDuration) * 100
			if progress > 100 {
				progress = 100
			}
			progressCB(progress)
		}
	}

	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("ffmpeg failed: %w, stderr: %s", err, tail(stderrBuf.String(), 2048))
	}

	if progressCB != nil {
		progressCB(100)
	}

	return nil
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
