package transcoder

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
)

// ErrInvalidDuration is returned for non-positive durations
var ErrInvalidDuration = errors.New("invalid duration")

// loopEpsilon absorbs float noise so 30/10 plans 3 loops, not 4
const loopEpsilon = 1e-9

// LoopPlan describes how a clip is repeated to cover a target duration
type LoopPlan struct {
	Count  int
	Looped float64
	Trim   float64
}

// PlanLoop computes ceil(target/asset) repetitions trimmed back to target
func PlanLoop(target, asset float64) (LoopPlan, error) {
	if target <= 0 || math.IsNaN(target) || math.IsInf(target, 0) {
		return LoopPlan{}, fmt.Errorf("%w: target %v", ErrInvalidDuration, target)
	}
	if asset <= 0 || math.IsNaN(asset) || math.IsInf(asset, 0) {
		return LoopPlan{}, fmt.Errorf("%w: asset %v", ErrInvalidDuration, asset)
	}

	count := int(math.Ceil(target/asset - loopEpsilon))
	if count < 1 {
		count = 1
	}

	return LoopPlan{
		Count:  count,
		Looped: float64(count) * asset,
		Trim:   target,
	}, nil
}

// ConcatList renders a concat demuxer list repeating path count times
func ConcatList(path string, count int) string {
	quoted := strings.ReplaceAll(path, "'", `'\''`)
	var b strings.Builder
	for i := 0; i < count; i++ {
		fmt.Fprintf(&b, "file '%s'\n", quoted)
	}
	return b.String()
}

// WriteConcatList writes the loop list for clipPath into dir
func WriteConcatList(dir, clipPath string, count int) (string, error) {
	absPath, err := filepath.Abs(clipPath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve clip path: %w", err)
	}

	file, err := os.CreateTemp(dir, "loop-*.txt")
	if err != nil {
		return "", fmt.Errorf("failed to create concat file: %w", err)
	}
	defer file.Close()

	if _, err := file.WriteString(ConcatList(absPath, count)); err != nil {
		os.Remove(file.Name())
		return "", fmt.Errorf("failed to write concat file: %w", err)
	}

	return file.Name(), nil
}
