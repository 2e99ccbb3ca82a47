package transcoder

import (
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHexColor(t *testing.T) {
	c, err := ParseHexColor("#19193c")
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{R: 25, G: 25, B: 60, A: 255}, c)

	c, err = ParseHexColor("3c193c")
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{R: 60, G: 25, B: 60, A: 255}, c)

	_, err = ParseHexColor("#fff")
	assert.Error(t, err)
	_, err = ParseHexColor("#zzzzzz")
	assert.Error(t, err)
}

func TestGradient(t *testing.T) {
	top := color.RGBA{R: 25, G: 25, B: 60, A: 255}
	bottom := color.RGBA{R: 60, G: 25, B: 60, A: 255}

	img := Gradient(4, 11, top, bottom)
	assert.Equal(t, 4, img.Bounds().Dx())
	assert.Equal(t, 11, img.Bounds().Dy())
	assert.Equal(t, top, img.RGBAAt(0, 0))
	assert.Equal(t, bottom, img.RGBAAt(3, 10))

	mid := img.RGBAAt(2, 5)
	assert.Equal(t, uint8(43), mid.R)
	assert.Equal(t, uint8(25), mid.G)

	again := Gradient(4, 11, top, bottom)
	assert.Equal(t, img.Pix, again.Pix, "gradient must be deterministic")
}

func TestWriteGradient(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bg.png")
	require.NoError(t, WriteGradient(path, 108, 192, color.RGBA{A: 255}, color.RGBA{R: 255, A: 255}))

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	cfg, err := png.DecodeConfig(file)
	require.NoError(t, err)
	assert.Equal(t, 108, cfg.Width)
	assert.Equal(t, 192, cfg.Height)

	assert.ErrorIs(t, WriteGradient(path, 0, 10, color.RGBA{}, color.RGBA{}), ErrInvalidGeometry)
}
