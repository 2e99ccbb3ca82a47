package tts

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/therealutkarshpriyadarshi/shortforge/internal/provider"
	"github.com/therealutkarshpriyadarshi/shortforge/pkg/models"
)

type fixedDuration float64

func (d fixedDuration) ProbeDuration(ctx context.Context, path string) (float64, error) {
	return float64(d), nil
}

// fakeRunner writes fake audio to the path following outFlag and records the call
type fakeRunner struct {
	outFlag string
	args    []string
	text    string
	err     error
}

func (f *fakeRunner) run(ctx context.Context, name string, args ...string) ([]byte, error) {
	f.args = append([]string{name}, args...)
	if f.err != nil {
		return []byte("voice not found"), f.err
	}
	out := ""
	for i := 0; i+1 < len(args); i++ {
		switch args[i] {
		case "--file", "-f":
			data, _ := os.ReadFile(args[i+1])
			f.text = string(data)
		case f.outFlag:
			out = args[i+1]
		}
	}
	if out == "" {
		return nil, errors.New("no output flag")
	}
	return nil, os.WriteFile(out, []byte("audio"), 0644)
}

func TestEdgeProvider_Synthesize(t *testing.T) {
	dir := t.TempDir()
	runner := &fakeRunner{outFlag: "--write-media"}
	p := NewEdgeProvider("edge-tts", dir, "hi", runner.run, fixedDuration(42.5))

	audio, err := p.Synthesize(context.Background(), "Ruko!\n\nShahad   kabhi kharab nahi hota.", "")
	require.NoError(t, err)

	assert.Equal(t, 42.5, audio.Duration)
	assert.Equal(t, "edge", audio.Provider)
	assert.Equal(t, "hi-IN-SwaraNeural", audio.Voice)
	assert.Equal(t, dir, filepath.Dir(audio.Path))
	assert.Equal(t, ".mp3", filepath.Ext(audio.Path))
	assert.Equal(t, "Ruko! Shahad kabhi kharab nahi hota.", runner.text)
	assert.Equal(t, []string{"edge-tts", "--voice", "hi-IN-SwaraNeural"}, runner.args[:3])

	_, err = os.Stat(strings.TrimSuffix(audio.Path, ".mp3") + ".txt")
	assert.True(t, os.IsNotExist(err), "text file must be cleaned up")
}

func TestEdgeProvider_Errors(t *testing.T) {
	t.Run("empty text", func(t *testing.T) {
		p := NewEdgeProvider("", t.TempDir(), "hi", (&fakeRunner{}).run, fixedDuration(1))
		_, err := p.Synthesize(context.Background(), "  \n ", "")
		assert.ErrorIs(t, err, ErrEmptyText)
	})

	t.Run("not installed", func(t *testing.T) {
		runner := &fakeRunner{err: exec.ErrNotFound}
		p := NewEdgeProvider("", t.TempDir(), "hi", runner.run, fixedDuration(1))
		_, err := p.Synthesize(context.Background(), "hello", "")
		assert.ErrorIs(t, err, provider.ErrProviderUnavailable)
	})

	t.Run("silent audio", func(t *testing.T) {
		runner := &fakeRunner{outFlag: "--write-media"}
		p := NewEdgeProvider("", t.TempDir(), "hi", runner.run, fixedDuration(0))
		_, err := p.Synthesize(context.Background(), "hello", "")
		assert.ErrorIs(t, err, ErrSilentAudio)
	})
}

func TestResolveEdgeVoice(t *testing.T) {
	assert.Equal(t, "hi-IN-MadhurNeural", ResolveEdgeVoice("hi-male"))
	assert.Equal(t, "hi-IN-SwaraNeural", ResolveEdgeVoice(""))
	assert.Equal(t, "en-GB-SoniaNeural", ResolveEdgeVoice("en-GB-SoniaNeural"))
}

func TestEspeakProvider_Synthesize(t *testing.T) {
	runner := &fakeRunner{outFlag: "-w"}
	p := NewEspeakProvider("espeak-ng", t.TempDir(), "hinglish", runner.run, fixedDuration(30))

	audio, err := p.Synthesize(context.Background(), "namaste duniya", "")
	require.NoError(t, err)
	assert.Equal(t, "espeak", audio.Provider)
	assert.Equal(t, "hi", audio.Voice)
	assert.Equal(t, ".wav", filepath.Ext(audio.Path))
	assert.Equal(t, "namaste duniya", runner.text)
}

func TestElevenLabsProvider(t *testing.T) {
	var got elevenLabsRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("xi-api-key") != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		assert.Equal(t, "/text-to-speech/voice-1234567", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write([]byte("mp3 bytes"))
	}))
	defer srv.Close()

	cfg := ElevenLabsConfig{APIKey: "secret", BaseURL: srv.URL, VoiceID: "voice-1234567", Model: "eleven_multilingual_v2"}
	p, err := NewElevenLabsProvider(cfg, t.TempDir(), nil, fixedDuration(12))
	require.NoError(t, err)

	audio, err := p.Synthesize(context.Background(), "Hello\nthere", "hi")
	require.NoError(t, err)
	assert.Equal(t, 12.0, audio.Duration)
	assert.Equal(t, "voice-1234567", audio.Voice)
	assert.Equal(t, "Hello there", got.Text)
	assert.Equal(t, "eleven_multilingual_v2", got.ModelID)

	data, err := os.ReadFile(audio.Path)
	require.NoError(t, err)
	assert.Equal(t, "mp3 bytes", string(data))

	cfg.APIKey = "wrong"
	bad, err := NewElevenLabsProvider(cfg, t.TempDir(), nil, fixedDuration(12))
	require.NoError(t, err)
	_, err = bad.Synthesize(context.Background(), "Hello", "")
	assert.ErrorIs(t, err, provider.ErrProviderUnavailable)
}

func TestNewElevenLabsProvider_MissingKey(t *testing.T) {
	_, err := NewElevenLabsProvider(ElevenLabsConfig{}, t.TempDir(), nil, fixedDuration(1))
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

type blockingTTS struct{}

func (blockingTTS) Synthesize(ctx context.Context, text, voice string) (models.AudioFile, error) {
	<-ctx.Done()
	return models.AudioFile{}, ctx.Err()
}

func TestWithTimeout(t *testing.T) {
	t.Run("deadline maps to timeout", func(t *testing.T) {
		p := WithTimeout(blockingTTS{}, 10*time.Millisecond)
		_, err := p.Synthesize(context.Background(), "hello", "")
		assert.ErrorIs(t, err, provider.ErrProviderTimeout)
	})

	t.Run("caller cancel is passed through", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		p := WithTimeout(blockingTTS{}, time.Minute)
		_, err := p.Synthesize(ctx, "hello", "")
		assert.ErrorIs(t, err, context.Canceled)
		assert.NotErrorIs(t, err, provider.ErrProviderTimeout)
	})

	t.Run("zero timeout returns provider unchanged", func(t *testing.T) {
		var inner provider.TTSProvider = blockingTTS{}
		assert.Equal(t, inner, WithTimeout(inner, 0))
	})
}
