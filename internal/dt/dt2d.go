package dt

import (
	"fmt"

	"github.com/MeKo-Tech/pictor/internal/field"
	"github.com/MeKo-Tech/pictor/internal/mempool"
)

// Transform2D computes, for every output location (r,c),
//
//	out[r,c] = max_{r',c'} { in[r',c'] - ax*(c-c')^2 - bx*(c-c') - ay*(r-r')^2 - by*(r-r') }
//
// returning the transformed field plus two index fields recording the
// maximizing source: ix[r,c] holds c', iy[r,c] holds r'.
//
// The quadratic cost is separable, so the transform runs as two linear 1D
// passes: first across every row (the column dimension), then down every
// column of the intermediate field. The first pass already fixes the best
// source column per intermediate location, so the final column index must be
// re-read at the row the second pass selected; without that composition the
// index pair would not name the true 2D source.
//
// ax and ay must be positive (a proper spring). The maximization is run
// through Transform1D's minimization form by negating the input and the
// result.
func Transform2D(in *field.Scalar, ax, bx, ay, by float32) (*field.Scalar, *field.Index, *field.Index, error) {
	w, h := in.W, in.H
	if w == 0 || h == 0 {
		return nil, nil, nil, fmt.Errorf("%w: empty field %dx%d", field.ErrDegenerateInput, w, h)
	}
	if ax <= 0 || ay <= 0 {
		return nil, nil, nil, fmt.Errorf("spring coefficients must be positive, got ax=%g ay=%g", ax, ay)
	}

	neg := mempool.GetFloat32(w * h)
	tmp := mempool.GetFloat32(w * h)
	defer mempool.PutFloat32(neg)
	defer mempool.PutFloat32(tmp)
	for i, v := range in.Data {
		neg[i] = -v
	}

	// Row pass: best source column per (row, output column).
	ixp := field.NewIndex(w, h)
	for r := range h {
		if err := Transform1D(neg[r*w:(r+1)*w], tmp[r*w:(r+1)*w], ixp.Data[r*w:(r+1)*w], ax, bx); err != nil {
			return nil, nil, nil, err
		}
	}

	// Column pass over the intermediate field.
	out := field.NewScalar(w, h)
	iy := field.NewIndex(w, h)
	colSrc := mempool.GetFloat32(h)
	colDst := mempool.GetFloat32(h)
	colPtr := mempool.GetInt32(h)
	defer mempool.PutFloat32(colSrc)
	defer mempool.PutFloat32(colDst)
	defer mempool.PutInt32(colPtr)
	for c := range w {
		for r := range h {
			colSrc[r] = tmp[r*w+c]
		}
		if err := Transform1D(colSrc[:h], colDst[:h], colPtr[:h], ay, by); err != nil {
			return nil, nil, nil, err
		}
		for r := range h {
			out.Data[r*w+c] = -colDst[r]
			iy.Data[r*w+c] = colPtr[r]
		}
	}

	// Compose the row-pass column indices with the column-pass row choice.
	ix := field.NewIndex(w, h)
	for r := range h {
		for c := range w {
			ix.Data[r*w+c] = ixp.Data[int(iy.Data[r*w+c])*w+c]
		}
	}
	return out, ix, iy, nil
}
