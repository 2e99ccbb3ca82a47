package transcoder

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTextOverlayFilter(t *testing.T) {
	t.Run("CaptionFromFile", func(t *testing.T) {
		o := TextOverlay{
			TextFile:    "/tmp/run/caption.txt",
			FontSize:    70,
			FontColor:   "white",
			BorderColor: "black",
			BorderWidth: 4,
			Position:    "center",
			Start:       0.5,
			End:         5.5,
		}
		f := o.Filter()
		assert.Contains(t, f, "drawtext=")
		assert.Contains(t, f, `textfile='/tmp/run/caption.txt'`)
		assert.Contains(t, f, "fontsize=70")
		assert.Contains(t, f, "borderw=4")
		assert.Contains(t, f, "bordercolor=black")
		assert.Contains(t, f, "x=(w-text_w)/2")
		assert.Contains(t, f, "y=(h-text_h)/2")
		assert.Contains(t, f, `enable='between(t\,0.500\,5.500)'`)
	})

	t.Run("WatermarkPosition", func(t *testing.T) {
		o := TextOverlay{Text: "@channel", Position: "bottom-right", Padding: 20, Opacity: 0.6}
		f := o.Filter()
		assert.Contains(t, f, "text='@channel'")
		assert.Contains(t, f, "fontcolor=white@0.60")
		assert.Contains(t, f, "x=w-text_w-20")
		assert.Contains(t, f, "y=h-text_h-20")
		assert.NotContains(t, f, "enable=")
	})
}

func TestDrawTextPosition(t *testing.T) {
	tests := []struct {
		position string
		wantX    string
		wantY    string
	}{
		{"top", "(w-text_w)/2", "10"},
		{"bottom", "(w-text_w)/2", "h-text_h-10"},
		{"top-left", "10", "10"},
		{"top-right", "w-text_w-10", "10"},
		{"bottom-left", "10", "h-text_h-10"},
		{"bottom-right", "w-text_w-10", "h-text_h-10"},
		{"center", "(w-text_w)/2", "(h-text_h)/2"},
	}

	for _, tt := range tests {
		t.Run(tt.position, func(t *testing.T) {
			x, y := drawTextPosition(tt.position, 10)
			assert.Equal(t, tt.wantX, x)
			assert.Equal(t, tt.wantY, y)
		})
	}
}

func TestTextOverlayValidate(t *testing.T) {
	assert.NoError(t, TextOverlay{Text: "hi"}.Validate())
	assert.ErrorIs(t, TextOverlay{}.Validate(), ErrUnsupportedOverlay)
	assert.ErrorIs(t, TextOverlay{Text: "hi", Position: "diagonal"}.Validate(), ErrUnsupportedOverlay)
	assert.ErrorIs(t, TextOverlay{Text: "hi", Start: 3, End: 2}.Validate(), ErrUnsupportedOverlay)
	assert.ErrorIs(t, TextOverlay{Text: "hi", Opacity: 1.5}.Validate(), ErrUnsupportedOverlay)
}

func TestEscapeDrawText(t *testing.T) {
	assert.Equal(t, "plain", EscapeDrawText("plain"))
	assert.Equal(t, `50\%`, EscapeDrawText("50%"))
	assert.Equal(t, `a\:b`, EscapeDrawText("a:b"))
	assert.Equal(t, `x\,y`, EscapeDrawText("x,y"))
}
