package transcoder

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupportedOverlay is returned for overlays that cannot be rendered
var ErrUnsupportedOverlay = errors.New("unsupported overlay")

// TextOverlay draws text onto the video with drawtext
type TextOverlay struct {
	Text        string  // inline text, escaped for drawtext
	TextFile    string  // path to a UTF-8 file; takes precedence over Text
	FontFile    string  // optional font file
	FontSize    int     // font size in pixels
	FontColor   string  // e.g. "white"
	BorderColor string  // outline color
	BorderWidth int     // outline width in pixels
	Position    string  // "top", "center", "bottom", "top-left", "top-right", "bottom-left", "bottom-right"
	Padding     int     // distance from edges in pixels
	Opacity     float64 // 0.0 to 1.0, zero means opaque
	LineSpacing int     // extra pixels between lines
	Start       float64 // seconds, zero means from the start
	End         float64 // seconds, zero means until the end
}

var overlayPositions = map[string]bool{
	"top": true, "center": true, "bottom": true,
	"top-left": true, "top-right": true, "bottom-left": true, "bottom-right": true,
}

// Validate checks the overlay can be expressed as a drawtext filter
func (o TextOverlay) Validate() error {
	if o.Text == "" && o.TextFile == "" {
		return fmt.Errorf("%w: no text", ErrUnsupportedOverlay)
	}
	if o.Position != "" && !overlayPositions[o.Position] {
		return fmt.Errorf("%w: position %q", ErrUnsupportedOverlay, o.Position)
	}
	if o.End > 0 && o.End <= o.Start {
		return fmt.Errorf("%w: window %.2f-%.2f", ErrUnsupportedOverlay, o.Start, o.End)
	}
	if o.Opacity < 0 || o.Opacity > 1 {
		return fmt.Errorf("%w: opacity %.2f", ErrUnsupportedOverlay, o.Opacity)
	}
	return nil
}

// drawTextPosition returns drawtext x and y expressions
func drawTextPosition(position string, padding int) (string, string) {
	switch position {
	case "top":
		return "(w-text_w)/2", fmt.Sprintf("%d", padding)
	case "bottom":
		return "(w-text_w)/2", fmt.Sprintf("h-text_h-%d", padding)
	case "top-left":
		return fmt.Sprintf("%d", padding), fmt.Sprintf("%d", padding)
	case "top-right":
		return fmt.Sprintf("w-text_w-%d", padding), fmt.Sprintf("%d", padding)
	case "bottom-left":
		return fmt.Sprintf("%d", padding), fmt.Sprintf("h-text_h-%d", padding)
	case "bottom-right":
		return fmt.Sprintf("w-text_w-%d", padding), fmt.Sprintf("h-text_h-%d", padding)
	default:
		return "(w-text_w)/2", "(h-text_h)/2"
	}
}

// EscapeDrawText escapes a string for use as a drawtext text value
func EscapeDrawText(s string) string {
	r := strings.NewReplacer(
		`\`, `\\\\`,
		`'`, `'\\\''`,
		`:`, `\:`,
		`%`, `\%`,
		",", `\,`,
	)
	return r.Replace(s)
}

// escapeFilterPath escapes a file path used inside a filter option
func escapeFilterPath(p string) string {
	r := strings.NewReplacer(`\`, `/`, `:`, `\:`, `'`, `\'`)
	return r.Replace(p)
}

// Filter builds the drawtext filter for the overlay
func (o TextOverlay) Filter() string {
	fontSize := o.FontSize
	if fontSize == 0 {
		fontSize = 48
	}
	fontColor := o.FontColor
	if fontColor == "" {
		fontColor = "white"
	}
	padding := o.Padding
	if padding == 0 {
		padding = 40
	}

	x, y := drawTextPosition(o.Position, padding)

	opts := []string{}
	if o.FontFile != "" {
		opts = append(opts, fmt.Sprintf("fontfile='%s'", escapeFilterPath(o.FontFile)))
	}
	if o.TextFile != "" {
		opts = append(opts, fmt.Sprintf("textfile='%s'", escapeFilterPath(o.TextFile)))
	} else {
		opts = append(opts, fmt.Sprintf("text='%s'", EscapeDrawText(o.Text)))
	}

	if o.Opacity > 0 && o.Opacity < 1 {
		opts = append(opts, fmt.Sprintf("fontcolor=%s@%.2f", fontColor, o.Opacity))
	} else {
		opts = append(opts, "fontcolor="+fontColor)
	}
	opts = append(opts, fmt.Sprintf("fontsize=%d", fontSize))

	if o.BorderWidth > 0 {
		borderColor := o.BorderColor
		if borderColor == "" {
			borderColor = "black"
		}
		opts = append(opts, fmt.Sprintf("borderw=%d", o.BorderWidth), "bordercolor="+borderColor)
	}
	if o.LineSpacing > 0 {
		opts = append(opts, fmt.Sprintf("line_spacing=%d", o.LineSpacing))
	}

	opts = append(opts, "x="+x, "y="+y)

	if o.Start > 0 || o.End > 0 {
		if o.End > 0 {
			opts = append(opts, fmt.Sprintf("enable='between(t\\,%.3f\\,%.3f)'", o.Start, o.End))
		} else {
			opts = append(opts, fmt.Sprintf("enable='gte(t\\,%.3f)'", o.Start))
		}
	}

	return "drawtext=" + strings.Join(opts, ":")
}
