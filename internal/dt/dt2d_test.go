package dt

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/pictor/internal/field"
)

// bruteForce2D is the O((w*h)^2) pairwise search the separable transform
// replaces.
func bruteForce2D(in *field.Scalar, ax, bx, ay, by float32) *field.Scalar {
	out := field.NewScalar(in.W, in.H)
	for r := range in.H {
		for c := range in.W {
			best := field.NegInf
			for rs := range in.H {
				for cs := range in.W {
					dx := float32(c - cs)
					dy := float32(r - rs)
					v := in.At(cs, rs) - ax*dx*dx - bx*dx - ay*dy*dy - by*dy
					if v > best {
						best = v
					}
				}
			}
			out.Set(c, r, best)
		}
	}
	return out
}

func TestTransform2DSinglePeak(t *testing.T) {
	// A lone peak on a deeply negative background: every location must
	// trace back to the peak with score 1 - dx^2 - dy^2.
	const w, h = 8, 6
	const c0, r0 = 5, 2
	in := field.NewScalarFilled(w, h, -1e4)
	in.Set(c0, r0, 1)

	out, ix, iy, err := Transform2D(in, 1, 0, 1, 0)
	require.NoError(t, err)

	for r := range h {
		for c := range w {
			dx := float32(c - c0)
			dy := float32(r - r0)
			assert.InDeltaf(t, 1-dx*dx-dy*dy, out.At(c, r), 1e-3, "score at (%d,%d)", c, r)
			assert.Equalf(t, int32(c0), ix.At(c, r), "ix at (%d,%d)", c, r)
			assert.Equalf(t, int32(r0), iy.At(c, r), "iy at (%d,%d)", c, r)
		}
	}
}

func TestTransform2DMatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	for range 20 {
		w := 2 + rng.Intn(9)
		h := 2 + rng.Intn(9)
		in := field.NewScalar(w, h)
		for i := range in.Data {
			in.Data[i] = rng.Float32()*10 - 5
		}
		ax := rng.Float32()*2 + 0.1
		ay := rng.Float32()*2 + 0.1
		bx := rng.Float32() - 0.5
		by := rng.Float32() - 0.5

		out, ix, iy, err := Transform2D(in, ax, bx, ay, by)
		require.NoError(t, err)

		want := bruteForce2D(in, ax, bx, ay, by)
		for r := range h {
			for c := range w {
				assert.InDeltaf(t, want.At(c, r), out.At(c, r), 1e-3, "score at (%d,%d) %dx%d", c, r, w, h)

				// The index pair must achieve the reported score.
				cs, rs := int(ix.At(c, r)), int(iy.At(c, r))
				dx := float32(c - cs)
				dy := float32(r - rs)
				achieved := in.At(cs, rs) - ax*dx*dx - bx*dx - ay*dy*dy - by*dy
				assert.InDeltaf(t, out.At(c, r), achieved, 1e-3, "index pair at (%d,%d)", c, r)
			}
		}
	}
}

func TestTransform2DSingleRowAndColumn(t *testing.T) {
	row := field.NewScalar(5, 1)
	row.Set(2, 0, 3)
	out, ix, iy, err := Transform2D(row, 1, 0, 1, 0)
	require.NoError(t, err)
	assert.InDelta(t, 3.0, out.At(2, 0), 1e-4)
	// One step off the peak, the peak still wins: 3 - 1 > 0.
	assert.InDelta(t, 2.0, out.At(1, 0), 1e-4)
	assert.Equal(t, int32(2), ix.At(1, 0))
	assert.Equal(t, int32(0), iy.At(4, 0))

	col := field.NewScalar(1, 5)
	col.Set(0, 3, 2)
	out, _, iy, err = Transform2D(col, 1, 0, 1, 0)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, out.At(0, 3), 1e-4)
	assert.InDelta(t, 1.0, out.At(0, 2), 1e-4)
	assert.Equal(t, int32(3), iy.At(0, 2))
}

func TestTransform2DGuards(t *testing.T) {
	_, _, _, err := Transform2D(&field.Scalar{W: 0, H: 0}, 1, 0, 1, 0)
	require.ErrorIs(t, err, field.ErrDegenerateInput)

	_, _, _, err = Transform2D(field.NewScalar(3, 3), 0, 0, 1, 0)
	require.Error(t, err)

	_, _, _, err = Transform2D(field.NewScalar(3, 3), 1, 0, -2, 0)
	require.Error(t, err)
}
