// Package dt implements the generalized distance transform of Felzenszwalb
// and Huttenlocher ("Distance Transforms of Sampled Functions", Cornell
// Technical Report, 2004) for quadratic deformation costs. It replaces the
// quadratic-time pairwise search of the message-passing engine with two
// linear passes per field.
package dt

import (
	"fmt"

	"github.com/chewxy/math32"

	"github.com/MeKo-Tech/pictor/internal/field"
	"github.com/MeKo-Tech/pictor/internal/mempool"
)

// Transform1D computes, for every output position q,
//
//	dst[q] = min_p { src[p] + a*(q-p)^2 + b*(q-p) }
//	ptr[q] = the p achieving that minimum
//
// in amortized O(n) by maintaining the lower envelope of the parabolas
// centered at each source position. The quadratic coefficient a must be
// positive; callers computing a best/highest field negate their input before
// the call and the result after.
//
// dst and ptr must have the same length as src.
func Transform1D(src, dst []float32, ptr []int32, a, b float32) error {
	n := len(src)
	if n == 0 {
		return fmt.Errorf("%w: empty transform input", field.ErrDegenerateInput)
	}
	if len(dst) != n || len(ptr) != n {
		return fmt.Errorf("%w: src %d, dst %d, ptr %d", field.ErrDimensionMismatch, n, len(dst), len(ptr))
	}
	if a <= 0 {
		return fmt.Errorf("quadratic coefficient must be positive for minimization, got %g", a)
	}
	if n == 1 {
		// Single sample: the only candidate is itself.
		dst[0] = src[0]
		ptr[0] = 0
		return nil
	}

	// v holds the source positions of the parabolas on the envelope, z the
	// x-coordinates where consecutive envelope parabolas intersect.
	v := mempool.GetInt32(n)
	z := mempool.GetFloat32(n + 1)
	defer mempool.PutInt32(v)
	defer mempool.PutFloat32(z)

	k := 0
	v[0] = 0
	z[0] = math32.Inf(-1)
	z[1] = math32.Inf(1)
	for q := 1; q < n; q++ {
		s := intersect(src, int(v[k]), q, a, b)
		for s <= z[k] {
			// The new parabola buries the envelope tail.
			k--
			s = intersect(src, int(v[k]), q, a, b)
		}
		k++
		v[k] = int32(q)
		z[k] = s
		z[k+1] = math32.Inf(1)
	}

	k = 0
	for q := range n {
		for z[k+1] < float32(q) {
			k++
		}
		d := float32(q) - float32(v[k])
		dst[q] = a*d*d + b*d + src[int(v[k])]
		ptr[q] = v[k]
	}
	return nil
}

// intersect returns the x-coordinate where the parabola rooted at q meets the
// one rooted at p (p < q).
func intersect(src []float32, p, q int, a, b float32) float32 {
	fp := float32(p)
	fq := float32(q)
	return ((src[q] - src[p]) - b*(fq-fp) + a*(fq*fq-fp*fp)) / (2 * a * (fq - fp))
}
