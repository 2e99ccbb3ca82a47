package assembly

import (
	"math"
	"strings"

	"github.com/therealutkarshpriyadarshi/shortforge/internal/config"
	"github.com/therealutkarshpriyadarshi/shortforge/internal/transcoder"
)

// WrapWords breaks text into lines of at most perLine words, keeping at most
// maxLines lines. Dropped words are replaced by an ellipsis on the last line.
func WrapWords(text string, perLine, maxLines int) []string {
	words := strings.Fields(text)
	if len(words) == 0 || perLine <= 0 {
		return nil
	}

	var lines []string
	for i := 0; i < len(words); i += perLine {
		end := min(i+perLine, len(words))
		lines = append(lines, strings.Join(words[i:end], " "))
	}
	if maxLines > 0 && len(lines) > maxLines {
		lines = lines[:maxLines]
		lines[maxLines-1] += "..."
	}
	return lines
}

// Captions builds the hook caption and optional watermark for a video of
// the given duration
func Captions(hook string, duration float64, captions config.CaptionConfig, watermark config.WatermarkConfig) []transcoder.TextOverlay {
	var overlays []transcoder.TextOverlay

	if captions.Enabled {
		lines := WrapWords(hook, captions.WordsPerLine, captions.MaxLines)
		start := math.Max(captions.Start, 0)
		if len(lines) > 0 && start < duration {
			end := duration
			if captions.MaxDuration > 0 {
				end = math.Min(start+captions.MaxDuration, duration)
			}
			overlays = append(overlays, transcoder.TextOverlay{
				Text:        strings.Join(lines, "\n"),
				FontFile:    captions.FontFile,
				FontSize:    captions.FontSize,
				FontColor:   captions.FontColor,
				BorderColor: captions.BorderColor,
				BorderWidth: captions.BorderWidth,
				Position:    captions.Position,
				Padding:     120,
				LineSpacing: 12,
				Start:       start,
				End:         end,
			})
		}
	}

	if text := strings.TrimSpace(watermark.Text); text != "" {
		overlays = append(overlays, transcoder.TextOverlay{
			Text:        text,
			FontFile:    captions.FontFile,
			FontSize:    watermark.FontSize,
			FontColor:   "white",
			BorderColor: "black",
			BorderWidth: 2,
			Position:    watermark.Position,
			Padding:     40,
			Opacity:     watermark.Opacity,
		})
	}

	return overlays
}
