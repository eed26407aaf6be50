// Package pyramid turns an image into the multi-scale response fields the
// message-passing engine consumes: a grayscale feature pyramid plus direct
// correlation with the model's per-mixture part filters.
package pyramid

import (
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"

	"github.com/MeKo-Tech/pictor/internal/field"
	"github.com/MeKo-Tech/pictor/internal/model"
)

// Config controls pyramid construction.
type Config struct {
	Interval int // levels per octave
	Levels   int // maximum number of levels
	MinSize  int // stop before either dimension falls below this
}

// DefaultConfig returns the pyramid settings used when none are configured.
func DefaultConfig() Config {
	return Config{Interval: 5, Levels: 10, MinSize: 16}
}

// Pyramid is a stack of feature fields, fine to coarse, with the resampling
// factor of each level relative to the input image.
type Pyramid struct {
	Levels []*field.Scalar
	Scales []float64
}

// NScales returns the number of levels actually built.
func (p *Pyramid) NScales() int { return len(p.Levels) }

// Build constructs a grayscale feature pyramid with levels at scale
// 2^(-i/interval).
func Build(img image.Image, cfg Config) (*Pyramid, error) {
	if img == nil {
		return nil, fmt.Errorf("nil image")
	}
	if cfg.Interval < 1 || cfg.Levels < 1 {
		return nil, fmt.Errorf("pyramid needs interval >= 1 and levels >= 1, got %d and %d", cfg.Interval, cfg.Levels)
	}
	if cfg.MinSize < 1 {
		cfg.MinSize = 1
	}

	gray := imaging.Grayscale(img)
	bounds := gray.Bounds()
	w0, h0 := bounds.Dx(), bounds.Dy()
	if w0 < cfg.MinSize || h0 < cfg.MinSize {
		return nil, fmt.Errorf("image %dx%d smaller than pyramid minimum %d", w0, h0, cfg.MinSize)
	}

	p := &Pyramid{}
	for i := range cfg.Levels {
		scale := math.Pow(2, -float64(i)/float64(cfg.Interval))
		w := int(math.Round(float64(w0) * scale))
		h := int(math.Round(float64(h0) * scale))
		if w < cfg.MinSize || h < cfg.MinSize {
			break
		}
		level := gray
		if i > 0 {
			level = imaging.Resize(gray, w, h, imaging.Lanczos)
		}
		p.Levels = append(p.Levels, grayToField(level))
		p.Scales = append(p.Scales, scale)
	}
	return p, nil
}

// grayToField converts a grayscale image to a float32 field in [0,1].
func grayToField(img *image.NRGBA) *field.Scalar {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	f := field.NewScalar(w, h)
	for y := range h {
		for x := range w {
			// All channels are equal after Grayscale; red carries the
			// luminance.
			off := img.PixOffset(bounds.Min.X+x, bounds.Min.Y+y)
			f.Data[y*w+x] = float32(img.Pix[off]) / 255
		}
	}
	return f
}

// Responses correlates every pyramid level with every part filter, producing
// the flat response array in the engine's addressing scheme:
// nparts*nmixtures*scale + nmixtures*part + mixture.
func Responses(p *Pyramid, m *model.Model) ([]*field.Scalar, error) {
	if !m.HasFilters() {
		return nil, fmt.Errorf("model %q carries no appearance filters", m.Name)
	}
	out := make([]*field.Scalar, m.ResponseLen(p.NScales()))
	for scale, level := range p.Levels {
		for pi := range m.Parts {
			for mi, flt := range m.Parts[pi].Filters {
				out[m.Slot(scale, pi, mi)] = correlate(level, flt)
			}
		}
	}
	return out, nil
}

// correlate computes a same-size cross-correlation of the field with a
// filter centered on each location, zero-padded at the borders.
func correlate(f *field.Scalar, flt model.Filter) *field.Scalar {
	out := field.NewScalar(f.W, f.H)
	cx, cy := flt.W/2, flt.H/2
	for y := range f.H {
		for x := range f.W {
			var sum float32
			for ky := range flt.H {
				sy := y + ky - cy
				if sy < 0 || sy >= f.H {
					continue
				}
				for kx := range flt.W {
					sx := x + kx - cx
					if sx < 0 || sx >= f.W {
						continue
					}
					sum += flt.Weights[ky*flt.W+kx] * f.Data[sy*f.W+sx]
				}
			}
			out.Data[y*f.W+x] = sum
		}
	}
	return out
}
