package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/therealutkarshpriyadarshi/shortforge/internal/provider"
	"github.com/therealutkarshpriyadarshi/shortforge/pkg/models"
)

// ErrMissingAPIKey is returned when ElevenLabs has no key configured
var ErrMissingAPIKey = errors.New("elevenlabs api key not configured")

// ElevenLabsConfig configures the ElevenLabs provider
type ElevenLabsConfig struct {
	APIKey  string
	BaseURL string
	VoiceID string
	Model   string
	Timeout time.Duration
}

// ElevenLabsProvider synthesizes speech through the ElevenLabs HTTP API
type ElevenLabsProvider struct {
	cfg        ElevenLabsConfig
	dir        string
	httpClient *http.Client
	prober     DurationProber
}

// NewElevenLabsProvider creates the provider. It fails without an API key.
func NewElevenLabsProvider(cfg ElevenLabsConfig, dir string, client *http.Client, prober DurationProber) (*ElevenLabsProvider, error) {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.elevenlabs.io/v1"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if client == nil {
		client = &http.Client{}
	}
	return &ElevenLabsProvider{cfg: cfg, dir: dir, httpClient: client, prober: prober}, nil
}

type elevenLabsRequest struct {
	Text    string `json:"text"`
	ModelID string `json:"model_id,omitempty"`
}

// Synthesize speaks text. voice is an ElevenLabs voice id; empty uses the configured one.
func (p *ElevenLabsProvider) Synthesize(ctx context.Context, text, voice string) (models.AudioFile, error) {
	text = cleanText(text)
	if text == "" {
		return models.AudioFile{}, ErrEmptyText
	}
	// short names from the shared voice table are not ElevenLabs ids
	if _, short := EdgeVoices[voice]; short || voice == "" {
		voice = p.cfg.VoiceID
	}

	payload, err := json.Marshal(elevenLabsRequest{Text: text, ModelID: p.cfg.Model})
	if err != nil {
		return models.AudioFile{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, p.cfg.BaseURL+"/text-to-speech/"+voice, bytes.NewReader(payload))
	if err != nil {
		return models.AudioFile{}, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("xi-api-key", p.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return models.AudioFile{}, provider.Classify(fmt.Errorf("elevenlabs: %w", err))
	}
	defer resp.Body.Close()

	if err := provider.CheckResponse(resp); err != nil {
		return models.AudioFile{}, fmt.Errorf("elevenlabs: %w", err)
	}

	out, err := outputPath(p.dir, "elevenlabs", ".mp3")
	if err != nil {
		return models.AudioFile{}, err
	}
	f, err := os.Create(out)
	if err != nil {
		return models.AudioFile{}, fmt.Errorf("failed to create audio file: %w", err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(out)
		return models.AudioFile{}, provider.Classify(fmt.Errorf("elevenlabs: read audio: %w", err))
	}
	if err := f.Close(); err != nil {
		return models.AudioFile{}, fmt.Errorf("failed to write audio file: %w", err)
	}

	return finish(ctx, p.prober, out, "elevenlabs", voice)
}
