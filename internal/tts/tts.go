// Package tts turns narration text into audio files.
package tts

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/therealutkarshpriyadarshi/shortforge/internal/provider"
	"github.com/therealutkarshpriyadarshi/shortforge/pkg/models"
)

// ErrEmptyText is returned when there is nothing to speak
var ErrEmptyText = errors.New("no text to synthesize")

// ErrSilentAudio is returned when a provider produced audio with no duration
var ErrSilentAudio = errors.New("synthesized audio has no duration")

// DurationProber measures audio files
type DurationProber interface {
	ProbeDuration(ctx context.Context, path string) (float64, error)
}

// Runner executes an external command and returns its combined output
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// ExecRunner runs commands with os/exec
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// cleanText flattens narration into a single spoken paragraph
func cleanText(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// outputPath returns a fresh file path under dir
func outputPath(dir, prefix, ext string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create audio dir: %w", err)
	}
	return filepath.Join(dir, fmt.Sprintf("%s_%s%s", prefix, uuid.NewString()[:8], ext)), nil
}

// writeTextFile stores text next to the output so long scripts never hit
// argument length limits
func writeTextFile(audioPath, text string) (string, error) {
	path := strings.TrimSuffix(audioPath, filepath.Ext(audioPath)) + ".txt"
	if err := os.WriteFile(path, []byte(text), 0644); err != nil {
		return "", fmt.Errorf("failed to write narration text: %w", err)
	}
	return path, nil
}

// finish probes the produced audio and builds the result
func finish(ctx context.Context, prober DurationProber, path, providerName, voice string) (models.AudioFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return models.AudioFile{}, fmt.Errorf("%s produced no audio: %w", providerName, err)
	}
	if info.Size() == 0 {
		os.Remove(path)
		return models.AudioFile{}, fmt.Errorf("%s: %w", providerName, ErrSilentAudio)
	}

	duration, err := prober.ProbeDuration(ctx, path)
	if err != nil {
		return models.AudioFile{}, fmt.Errorf("failed to measure %s audio: %w", providerName, err)
	}
	if duration <= 0 {
		os.Remove(path)
		return models.AudioFile{}, fmt.Errorf("%s: %w", providerName, ErrSilentAudio)
	}

	return models.AudioFile{Path: path, Duration: duration, Provider: providerName, Voice: voice}, nil
}

// commandError classifies a failed external command
func commandError(name string, err error, output []byte) error {
	if errors.Is(err, exec.ErrNotFound) {
		return fmt.Errorf("%w: %s not installed: %w", provider.ErrProviderUnavailable, name, err)
	}
	msg := strings.TrimSpace(string(output))
	if len(msg) > 300 {
		msg = msg[len(msg)-300:]
	}
	return provider.Classify(fmt.Errorf("%s failed: %w: %s", name, err, msg))
}

// WithTimeout bounds every Synthesize call on p. A call cut off by the
// deadline fails with provider.ErrProviderTimeout.
func WithTimeout(p provider.TTSProvider, timeout time.Duration) provider.TTSProvider {
	if timeout <= 0 {
		return p
	}
	return &timeoutProvider{inner: p, timeout: timeout}
}

type timeoutProvider struct {
	inner   provider.TTSProvider
	timeout time.Duration
}

func (t *timeoutProvider) Synthesize(ctx context.Context, text, voice string) (models.AudioFile, error) {
	callCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	audio, err := t.inner.Synthesize(callCtx, text, voice)
	if err != nil && ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return audio, fmt.Errorf("%w: no audio within %s: %w", provider.ErrProviderTimeout, t.timeout, err)
	}
	return audio, err
}

// Close forwards to the wrapped provider when it holds resources
func (t *timeoutProvider) Close() error {
	if c, ok := t.inner.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
