// Package field provides dense 2D score and index fields plus the
// elementwise reductions used by the message-passing engine.
package field

import (
	"fmt"

	"github.com/chewxy/math32"
)

// NegInf is the additive identity of the max reduction. Locations carrying
// this value can never win a later reduction.
var NegInf = math32.Inf(-1)

// Scalar is a dense 2D float32 field in row-major order.
type Scalar struct {
	Data []float32
	W    int
	H    int
}

// Index is a dense 2D int32 field in row-major order, aligned with a Scalar.
// Entries index into some enumerable set: a stack position or a source
// row/column coordinate.
type Index struct {
	Data []int32
	W    int
	H    int
}

// NewScalar allocates a zeroed w-by-h scalar field.
func NewScalar(w, h int) *Scalar {
	return &Scalar{Data: make([]float32, w*h), W: w, H: h}
}

// NewScalarFilled allocates a w-by-h scalar field with every entry set to v.
func NewScalarFilled(w, h int, v float32) *Scalar {
	f := NewScalar(w, h)
	for i := range f.Data {
		f.Data[i] = v
	}
	return f
}

// NewIndex allocates a zeroed w-by-h index field.
func NewIndex(w, h int) *Index {
	return &Index{Data: make([]int32, w*h), W: w, H: h}
}

// At returns the value at column x, row y.
func (f *Scalar) At(x, y int) float32 { return f.Data[y*f.W+x] }

// Set stores v at column x, row y.
func (f *Scalar) Set(x, y int, v float32) { f.Data[y*f.W+x] = v }

// At returns the index entry at column x, row y.
func (f *Index) At(x, y int) int32 { return f.Data[y*f.W+x] }

// Set stores v at column x, row y.
func (f *Index) Set(x, y int, v int32) { f.Data[y*f.W+x] = v }

// SameSize reports whether f and g have identical dimensions.
func (f *Scalar) SameSize(g *Scalar) bool { return f.W == g.W && f.H == g.H }

// Clone returns a deep copy of the field.
func (f *Scalar) Clone() *Scalar {
	out := &Scalar{Data: make([]float32, len(f.Data)), W: f.W, H: f.H}
	copy(out.Data, f.Data)
	return out
}

// Clone returns a deep copy of the field.
func (f *Index) Clone() *Index {
	out := &Index{Data: make([]int32, len(f.Data)), W: f.W, H: f.H}
	copy(out.Data, f.Data)
	return out
}

// Add accumulates g into f elementwise.
func (f *Scalar) Add(g *Scalar) error {
	if !f.SameSize(g) {
		return fmt.Errorf("%w: %dx%d vs %dx%d", ErrDimensionMismatch, f.W, f.H, g.W, g.H)
	}
	for i, v := range g.Data {
		f.Data[i] += v
	}
	return nil
}

// AddScalar returns a copy of f with v added to every entry. Entries holding
// negative infinity stay at negative infinity.
func (f *Scalar) AddScalar(v float32) *Scalar {
	out := f.Clone()
	for i := range out.Data {
		out.Data[i] += v
	}
	return out
}

// MaxLoc returns the largest value in the field and its location.
func (f *Scalar) MaxLoc() (float32, int, int) {
	best := NegInf
	bx, by := 0, 0
	for y := range f.H {
		row := f.Data[y*f.W : (y+1)*f.W]
		for x, v := range row {
			if v > best {
				best = v
				bx, by = x, y
			}
		}
	}
	return best, bx, by
}
