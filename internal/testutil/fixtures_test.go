package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/pictor/internal/model"
)

func TestSampleModelParses(t *testing.T) {
	m, err := model.Parse([]byte(SampleModelYAML))
	require.NoError(t, err)
	assert.Equal(t, "sample", m.Name)
	require.Len(t, m.Parts, 2)
	assert.Equal(t, -1, m.Parts[0].Parent)
	assert.Equal(t, 0, m.Parts[1].Parent)
	assert.True(t, m.HasFilters())
}

func TestWriteSampleModel(t *testing.T) {
	tmpDir := t.TempDir()
	path := WriteSampleModel(t, tmpDir)

	m, err := model.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, m.Parts[1].Anchor.X)
}

func TestSaveAndLoadFixture(t *testing.T) {
	tmpDir := t.TempDir()
	fixture := SimpleSpotFixture(t, tmpDir, 10, 12)

	SaveFixture(t, tmpDir, fixture)
	loaded := LoadFixture(t, tmpDir, fixture.Name)

	assert.Equal(t, fixture.Name, loaded.Name)
	require.Len(t, loaded.Expected.Detections, 1)
	require.Len(t, loaded.Expected.Detections[0].Parts, 2)
	assert.Equal(t, ExpectedPart{Name: "limb", X: 13, Y: 12}, loaded.Expected.Detections[0].Parts[1])
	assert.True(t, FileExists(loaded.InputFile))
}

func TestSimpleSpotFixtureImage(t *testing.T) {
	tmpDir := t.TempDir()
	fixture := SimpleSpotFixture(t, tmpDir, 10, 12)

	img := LoadImage(t, fixture.InputFile)
	gray := SpotImage(32, 32, []Spot{
		{X: 10, Y: 12, Intensity: 255},
		{X: 13, Y: 12, Intensity: 255},
	})
	assert.True(t, CompareImages(img, gray, 0))
}
