package testutil

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// Spot is one bright blob placed on a synthetic test image.
type Spot struct {
	X, Y      int
	Radius    int
	Intensity uint8
}

// SpotImage generates a black grayscale image with the given bright spots.
// Detection test cases place spots at part locations.
func SpotImage(width, height int, spots []Spot) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, width, height))
	for _, s := range spots {
		r := s.Radius
		if r < 0 {
			r = 0
		}
		for dy := -r; dy <= r; dy++ {
			for dx := -r; dx <= r; dx++ {
				if dx*dx+dy*dy > r*r {
					continue
				}
				x, y := s.X+dx, s.Y+dy
				if x < 0 || x >= width || y < 0 || y >= height {
					continue
				}
				img.SetGray(x, y, color.Gray{Y: s.Intensity})
			}
		}
	}
	return img
}

// AddNoise overlays uniform noise on a grayscale image. The seed keeps test
// runs reproducible.
func AddNoise(img *image.Gray, level uint8, seed int64) *image.Gray {
	rng := rand.New(rand.NewSource(seed))
	b := img.Bounds()
	out := image.NewGray(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			v := int(img.GrayAt(x, y).Y) + rng.Intn(int(level)+1)
			if v > 255 {
				v = 255
			}
			out.SetGray(x, y, color.Gray{Y: uint8(v)})
		}
	}
	return out
}

// SaveImage saves an image as PNG to the given path.
func SaveImage(t *testing.T, img image.Image, path string) {
	t.Helper()

	require.NoError(t, EnsureDir(filepath.Dir(path)))

	f, err := os.Create(path) //nolint:gosec // G304: Test output path is controlled
	require.NoError(t, err, "Failed to create image file: %s", path)
	defer func() { _ = f.Close() }()

	require.NoError(t, png.Encode(f, img), "Failed to encode image")
}

// LoadImage loads an image from the given path.
func LoadImage(t *testing.T, path string) image.Image {
	t.Helper()

	f, err := os.Open(path) //nolint:gosec // G304: Test input path is controlled
	require.NoError(t, err, "Failed to open image file: %s", path)
	defer func() { _ = f.Close() }()

	img, _, err := image.Decode(f)
	require.NoError(t, err, "Failed to decode image: %s", path)
	return img
}

// CompareImages reports whether two images match within a per-pixel tolerance
// on the gray value.
func CompareImages(img1, img2 image.Image, tolerance float64) bool {
	b1, b2 := img1.Bounds(), img2.Bounds()
	if b1.Dx() != b2.Dx() || b1.Dy() != b2.Dy() {
		return false
	}

	for y := 0; y < b1.Dy(); y++ {
		for x := 0; x < b1.Dx(); x++ {
			g1 := color.GrayModel.Convert(img1.At(b1.Min.X+x, b1.Min.Y+y)).(color.Gray)
			g2 := color.GrayModel.Convert(img2.At(b2.Min.X+x, b2.Min.Y+y)).(color.Gray)
			diff := float64(g1.Y) - float64(g2.Y)
			if diff < 0 {
				diff = -diff
			}
			if diff > tolerance {
				return false
			}
		}
	}
	return true
}

// WriteSpotImage writes a spot image PNG into dir and returns its path.
func WriteSpotImage(t *testing.T, dir string, width, height int, spots []Spot) string {
	t.Helper()

	path := filepath.Join(dir, fmt.Sprintf("spots_%dx%d.png", width, height))
	SaveImage(t, SpotImage(width, height, spots), path)
	return path
}
