package assembly

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/therealutkarshpriyadarshi/shortforge/internal/config"
)

func TestWrapWords(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		perLine  int
		maxLines int
		want     []string
	}{
		{"empty", "   ", 6, 4, nil},
		{"single line", "Kya aap jaante ho?", 6, 4, []string{"Kya aap jaante ho?"}},
		{"wraps", "one two three four five six seven eight", 6, 4, []string{"one two three four five six", "seven eight"}},
		{"truncates", "a b c d e f g", 2, 2, []string{"a b", "c d..."}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, WrapWords(tt.text, tt.perLine, tt.maxLines))
		})
	}
}

var testCaptions = config.CaptionConfig{
	Enabled:      true,
	FontSize:     70,
	FontColor:    "white",
	BorderColor:  "black",
	BorderWidth:  4,
	WordsPerLine: 6,
	MaxLines:     4,
	Start:        0.5,
	MaxDuration:  5,
	Position:     "center",
}

func TestCaptions(t *testing.T) {
	overlays := Captions("Ruko! Ye baat aapko pata honi chahiye", 30, testCaptions, config.WatermarkConfig{})
	require.Len(t, overlays, 1)

	o := overlays[0]
	assert.Equal(t, "Ruko! Ye baat aapko pata honi\nchahiye", o.Text)
	assert.Equal(t, 0.5, o.Start)
	assert.Equal(t, 5.5, o.End)
	assert.Equal(t, 70, o.FontSize)
	assert.Equal(t, "center", o.Position)
	assert.NoError(t, o.Validate())
}

func TestCaptions_ShortVideo(t *testing.T) {
	overlays := Captions("hook", 3, testCaptions, config.WatermarkConfig{})
	require.Len(t, overlays, 1)
	assert.Equal(t, 3.0, overlays[0].End)

	assert.Empty(t, Captions("hook", 0.4, testCaptions, config.WatermarkConfig{}))
}

func TestCaptions_Watermark(t *testing.T) {
	disabled := testCaptions
	disabled.Enabled = false

	overlays := Captions("hook", 30, disabled, config.WatermarkConfig{Text: "@shortforge", Position: "bottom-right", FontSize: 36, Opacity: 0.6})
	require.Len(t, overlays, 1)
	assert.Equal(t, "@shortforge", overlays[0].Text)
	assert.Equal(t, 0.6, overlays[0].Opacity)
	assert.Zero(t, overlays[0].End)
}
