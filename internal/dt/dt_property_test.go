package dt

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestTransform1D_LowerEnvelopeProperties checks the envelope pass against
// the quadratic-time definition on arbitrary inputs.
func TestTransform1D_LowerEnvelopeProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	genSrc := gen.SliceOfN(32, gen.Float32Range(-50, 50)).SuchThat(func(s []float32) bool {
		return len(s) > 0
	})

	properties.Property("matches brute-force minimum", prop.ForAll(
		func(src []float32, a, b float32) bool {
			dst := make([]float32, len(src))
			ptr := make([]int32, len(src))
			if err := Transform1D(src, dst, ptr, a, b); err != nil {
				return false
			}
			want, _ := bruteForce1D(src, a, b)
			for q := range src {
				diff := dst[q] - want[q]
				if diff < -1e-2 || diff > 1e-2 {
					return false
				}
			}
			return true
		},
		genSrc,
		gen.Float32Range(0.1, 4),
		gen.Float32Range(-2, 2),
	))

	properties.Property("never exceeds the source value", prop.ForAll(
		func(src []float32, a float32) bool {
			dst := make([]float32, len(src))
			ptr := make([]int32, len(src))
			if err := Transform1D(src, dst, ptr, a, 0); err != nil {
				return false
			}
			for q := range src {
				if dst[q] > src[q] {
					return false
				}
			}
			return true
		},
		genSrc,
		gen.Float32Range(0.1, 4),
	))

	properties.TestingRun(t)
}
