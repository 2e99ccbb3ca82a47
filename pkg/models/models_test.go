package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadataValue(t *testing.T) {
	meta := Metadata{
		"key1": "value1",
		"key2": 123,
	}

	value, err := meta.Value()
	require.NoError(t, err)

	var result map[string]interface{}
	require.NoError(t, json.Unmarshal(value.([]byte), &result))
	assert.Equal(t, "value1", result["key1"])
}

func TestMetadataScan(t *testing.T) {
	t.Run("Bytes", func(t *testing.T) {
		var meta Metadata
		require.NoError(t, meta.Scan([]byte(`{"key1":"value1","key2":123}`)))
		assert.Equal(t, "value1", meta["key1"])
		assert.Equal(t, float64(123), meta["key2"])
	})

	t.Run("String", func(t *testing.T) {
		var meta Metadata
		require.NoError(t, meta.Scan(`{"upvotes":42}`))
		assert.Equal(t, float64(42), meta["upvotes"])
	})

	t.Run("Nil", func(t *testing.T) {
		var meta Metadata
		require.NoError(t, meta.Scan(nil))
		assert.NotNil(t, meta)
		assert.Empty(t, meta)
	})
}

func TestParseResolution(t *testing.T) {
	tests := []struct {
		in      string
		w, h    int
		wantErr bool
	}{
		{"1080x1920", 1080, 1920, false},
		{" 720X1280 ", 720, 1280, false},
		{"1080p", 1080, 1920, false},
		{"720p", 720, 1280, false},
		{"1080", 0, 0, true},
		{"axb", 0, 0, true},
		{"0x1920", 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			w, h, err := ParseResolution(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.w, w)
			assert.Equal(t, tt.h, h)
		})
	}
}

func TestCompositionSpecValidate(t *testing.T) {
	valid := CompositionSpec{Width: 1080, Height: 1920, FrameRate: 30, Duration: 12.5}
	assert.NoError(t, valid.Validate())
	assert.Equal(t, "1080x1920", valid.Resolution())
	assert.InDelta(t, 1.0/30, valid.FrameDuration(), 1e-9)

	bad := []CompositionSpec{
		{Width: 1081, Height: 1920, FrameRate: 30, Duration: 1},
		{Width: 1080, Height: 0, FrameRate: 30, Duration: 1},
		{Width: 1080, Height: 1920, FrameRate: 0, Duration: 1},
		{Width: 1080, Height: 1920, FrameRate: 30, Duration: 0},
	}
	for _, spec := range bad {
		assert.ErrorIs(t, spec.Validate(), ErrInvalidComposition)
	}
}

func TestScriptNarration(t *testing.T) {
	s := ScriptResult{Hook: "Did you know?", Body: "Octopuses have three hearts.", CTA: "Follow for more."}
	assert.Equal(t, "Did you know? Octopuses have three hearts. Follow for more.", s.Narration())

	s.FullScript = "custom"
	assert.Equal(t, "custom", s.Narration())
}
