package tts

import (
	"context"
	"fmt"
	"os"

	"github.com/therealutkarshpriyadarshi/shortforge/pkg/models"
)

// EspeakProvider is an offline provider built on espeak-ng
type EspeakProvider struct {
	bin    string
	dir    string
	voice  string
	run    Runner
	prober DurationProber
}

// NewEspeakProvider creates an espeak-ng provider writing wav files to dir
func NewEspeakProvider(bin, dir, voice string, run Runner, prober DurationProber) *EspeakProvider {
	if bin == "" {
		bin = "espeak-ng"
	}
	if run == nil {
		run = ExecRunner
	}
	return &EspeakProvider{bin: bin, dir: dir, voice: voice, run: run, prober: prober}
}

// espeakVoice strips the edge style suffixes espeak does not know
func espeakVoice(voice string) string {
	switch voice {
	case "", "hinglish", "hi-male":
		return "hi"
	case "en-male":
		return "en"
	default:
		return voice
	}
}

// Synthesize speaks text with voice, or the configured voice when empty
func (p *EspeakProvider) Synthesize(ctx context.Context, text, voice string) (models.AudioFile, error) {
	text = cleanText(text)
	if text == "" {
		return models.AudioFile{}, ErrEmptyText
	}
	if voice == "" {
		voice = p.voice
	}
	voice = espeakVoice(voice)

	out, err := outputPath(p.dir, "espeak", ".wav")
	if err != nil {
		return models.AudioFile{}, err
	}
	textFile, err := writeTextFile(out, text)
	if err != nil {
		return models.AudioFile{}, err
	}
	defer os.Remove(textFile)

	output, err := p.run(ctx, p.bin, "-v", voice, "-s", "160", "-w", out, "-f", textFile)
	if err != nil {
		os.Remove(out)
		if ctx.Err() != nil {
			return models.AudioFile{}, ctx.Err()
		}
		return models.AudioFile{}, commandError(p.bin, err, output)
	}

	audio, err := finish(ctx, p.prober, out, "espeak", voice)
	if err != nil {
		return models.AudioFile{}, fmt.Errorf("espeak: %w", err)
	}
	return audio, nil
}
