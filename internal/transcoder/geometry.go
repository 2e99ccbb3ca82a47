package transcoder

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidGeometry is returned for non-positive dimensions
var ErrInvalidGeometry = errors.New("invalid geometry")

// CoverGeometry scales a source to fill a target and center-crops the excess
type CoverGeometry struct {
	ScaledWidth  int
	ScaledHeight int
	CropX        int
	CropY        int
	Width        int
	Height       int
}

// Cover scales by max(tw/sw, th/sh) so the target is filled without letterboxing
func Cover(srcW, srcH, dstW, dstH int) (CoverGeometry, error) {
	if srcW <= 0 || srcH <= 0 || dstW <= 0 || dstH <= 0 {
		return CoverGeometry{}, fmt.Errorf("%w: %dx%d -> %dx%d", ErrInvalidGeometry, srcW, srcH, dstW, dstH)
	}

	scale := math.Max(float64(dstW)/float64(srcW), float64(dstH)/float64(srcH))

	scaledW := int(math.Round(float64(srcW) * scale))
	scaledH := int(math.Round(float64(srcH) * scale))
	if scaledW < dstW {
		scaledW = dstW
	}
	if scaledH < dstH {
		scaledH = dstH
	}

	return CoverGeometry{
		ScaledWidth:  scaledW,
		ScaledHeight: scaledH,
		CropX:        (scaledW - dstW) / 2,
		CropY:        (scaledH - dstH) / 2,
		Width:        dstW,
		Height:       dstH,
	}, nil
}

// Filter returns the scale and crop filter chain
func (g CoverGeometry) Filter() string {
	return fmt.Sprintf("scale=%d:%d,crop=%d:%d:%d:%d",
		g.ScaledWidth, g.ScaledHeight, g.Width, g.Height, g.CropX, g.CropY)
}
