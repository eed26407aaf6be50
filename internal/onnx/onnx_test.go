package onnx

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidate(t *testing.T) {
	dir := t.TempDir()
	modelPath := filepath.Join(dir, "heatmaps.onnx")
	require.NoError(t, os.WriteFile(modelPath, []byte("stub"), 0o600))

	valid := Config{ModelPath: modelPath, InputName: "image", OutputName: "heatmaps"}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing model path", func(c *Config) { c.ModelPath = "" }},
		{"nonexistent model", func(c *Config) { c.ModelPath = filepath.Join(dir, "nope.onnx") }},
		{"missing input name", func(c *Config) { c.InputName = "" }},
		{"missing output name", func(c *Config) { c.OutputName = "" }},
		{"negative threads", func(c *Config) { c.NumThreads = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid
			tt.mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestImageToTensor(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 4, 3))
	img.SetGray(2, 1, color.Gray{Y: 255})

	data, shape, err := imageToTensor(img)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 1, 3, 4}, shape)
	require.Len(t, data, 12)
	assert.InDelta(t, 1.0, data[1*4+2], 1e-6)
	assert.InDelta(t, 0.0, data[0], 1e-6)

	_, _, err = imageToTensor(nil)
	assert.Error(t, err)
}

func TestValidateHeatmapShape(t *testing.T) {
	require.NoError(t, validateHeatmapShape([]int64{1, 6, 32, 24}, 6))

	assert.Error(t, validateHeatmapShape([]int64{1, 6, 32}, 6))
	assert.Error(t, validateHeatmapShape([]int64{2, 6, 32, 24}, 6))
	assert.Error(t, validateHeatmapShape([]int64{1, 4, 32, 24}, 6))
	assert.Error(t, validateHeatmapShape([]int64{1, 6, 0, 24}, 6))
}

func TestLibraryName(t *testing.T) {
	name, err := libraryName()
	require.NoError(t, err)
	assert.NotEmpty(t, name)
}
