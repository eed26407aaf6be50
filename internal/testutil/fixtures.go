package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestFixture pairs an input image with the detections expected from it.
type TestFixture struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputFile   string                 `json:"input_file"`
	Expected    ExpectedResult         `json:"expected"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// ExpectedResult is the detection output a fixture should produce.
type ExpectedResult struct {
	Detections []ExpectedDetection `json:"detections"`
}

// ExpectedDetection is one expected part configuration.
type ExpectedDetection struct {
	Score float32        `json:"score"`
	Parts []ExpectedPart `json:"parts"`
}

// ExpectedPart is one expected part placement.
type ExpectedPart struct {
	Name string `json:"name"`
	X    int    `json:"x"`
	Y    int    `json:"y"`
}

// SampleModelYAML is a two-part tree model with unit filters, usable for
// end-to-end tests without trained weights.
const SampleModelYAML = `name: sample
mixtures: 1
parts:
  - name: body
    filters:
      - w: 1
        h: 1
        weights: [1]
  - name: limb
    parent: body
    anchor: {x: 3, y: 0}
    springs:
      - {ax: 1, bx: 0, ay: 1, by: 0}
    bias: [[0]]
    filters:
      - w: 1
        h: 1
        weights: [1]
`

// WriteSampleModel writes the sample model YAML into dir and returns its path.
func WriteSampleModel(t *testing.T, dir string) string {
	t.Helper()

	path := filepath.Join(dir, "sample.yaml")
	require.NoError(t, os.WriteFile(path, []byte(SampleModelYAML), 0o600))
	return path
}

// LoadFixture loads a test fixture from a JSON file in dir.
func LoadFixture(t *testing.T, dir, name string) TestFixture {
	t.Helper()

	fixturePath := filepath.Join(dir, name+".json")
	data, err := os.ReadFile(fixturePath) //nolint:gosec // G304: Reading test fixture files with controlled paths
	require.NoError(t, err, "Failed to read fixture file: %s", fixturePath)

	var fixture TestFixture
	require.NoError(t, json.Unmarshal(data, &fixture), "Failed to parse fixture: %s", fixturePath)
	return fixture
}

// SaveFixture saves a test fixture as JSON in dir.
func SaveFixture(t *testing.T, dir string, fixture TestFixture) {
	t.Helper()

	require.NoError(t, EnsureDir(dir))

	data, err := json.MarshalIndent(fixture, "", "  ")
	require.NoError(t, err, "Failed to marshal fixture")

	fixturePath := filepath.Join(dir, fixture.Name+".json")
	require.NoError(t, os.WriteFile(fixturePath, data, 0o600))
}

// SimpleSpotFixture builds a fixture with the sample model's two parts at the
// given body location, writing the input image into dir.
func SimpleSpotFixture(t *testing.T, dir string, bodyX, bodyY int) TestFixture {
	t.Helper()

	limbX, limbY := bodyX+3, bodyY
	input := WriteSpotImage(t, dir, 32, 32, []Spot{
		{X: bodyX, Y: bodyY, Intensity: 255},
		{X: limbX, Y: limbY, Intensity: 255},
	})

	return TestFixture{
		Name:        "simple_spots",
		Description: "two bright pixels at the sample model's anchored offset",
		InputFile:   input,
		Expected: ExpectedResult{
			Detections: []ExpectedDetection{
				{
					Score: 2,
					Parts: []ExpectedPart{
						{Name: "body", X: bodyX, Y: bodyY},
						{Name: "limb", X: limbX, Y: limbY},
					},
				},
			},
		},
	}
}
