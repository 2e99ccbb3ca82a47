package tts

import (
	"context"
	"fmt"
	"os"

	"github.com/therealutkarshpriyadarshi/shortforge/pkg/models"
)

// EdgeVoices maps short voice names to Microsoft neural voices
var EdgeVoices = map[string]string{
	"hi":       "hi-IN-SwaraNeural",
	"hi-male":  "hi-IN-MadhurNeural",
	"en":       "en-US-JennyNeural",
	"en-male":  "en-US-GuyNeural",
	"hinglish": "hi-IN-SwaraNeural",
}

// ResolveEdgeVoice maps a short name to a full voice id. Full ids pass through.
func ResolveEdgeVoice(voice string) string {
	if v, ok := EdgeVoices[voice]; ok {
		return v
	}
	if voice == "" {
		return EdgeVoices["hi"]
	}
	return voice
}

// EdgeProvider synthesizes speech through the edge-tts command line tool
type EdgeProvider struct {
	bin    string
	dir    string
	voice  string
	run    Runner
	prober DurationProber
}

// NewEdgeProvider creates an edge-tts provider writing mp3 files to dir
func NewEdgeProvider(bin, dir, voice string, run Runner, prober DurationProber) *EdgeProvider {
	if bin == "" {
		bin = "edge-tts"
	}
	if run == nil {
		run = ExecRunner
	}
	return &EdgeProvider{bin: bin, dir: dir, voice: voice, run: run, prober: prober}
}

// Synthesize speaks text with voice, or the configured voice when empty
func (p *EdgeProvider) Synthesize(ctx context.Context, text, voice string) (models.AudioFile, error) {
	text = cleanText(text)
	if text == "" {
		return models.AudioFile{}, ErrEmptyText
	}
	if voice == "" {
		voice = p.voice
	}
	voice = ResolveEdgeVoice(voice)

	out, err := outputPath(p.dir, "edge", ".mp3")
	if err != nil {
		return models.AudioFile{}, err
	}
	textFile, err := writeTextFile(out, text)
	if err != nil {
		return models.AudioFile{}, err
	}
	defer os.Remove(textFile)

	output, err := p.run(ctx, p.bin, "--voice", voice, "--file", textFile, "--write-media", out)
	if err != nil {
		os.Remove(out)
		if ctx.Err() != nil {
			return models.AudioFile{}, ctx.Err()
		}
		return models.AudioFile{}, commandError(p.bin, err, output)
	}

	audio, err := finish(ctx, p.prober, out, "edge", voice)
	if err != nil {
		return models.AudioFile{}, fmt.Errorf("edge-tts: %w", err)
	}
	return audio, nil
}
