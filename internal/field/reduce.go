package field

import "fmt"

// MaxReduce reduces a stack of K aligned scalar fields to a single field by
// taking the elementwise maximum across the stack, recording which field won
// at each location. Ties break toward the lowest stack index.
//
// K must be greater than 1 and all fields must share identical dimensions.
func MaxReduce(in []*Scalar) (*Scalar, *Index, error) {
	k := len(in)
	if k <= 1 {
		return nil, nil, fmt.Errorf("%w: max reduction needs more than one field, got %d", ErrDegenerateInput, k)
	}
	for i := 1; i < k; i++ {
		if !in[i].SameSize(in[i-1]) {
			return nil, nil, fmt.Errorf("%w: field %d is %dx%d, field %d is %dx%d",
				ErrDimensionMismatch, i, in[i].W, in[i].H, i-1, in[i-1].W, in[i-1].H)
		}
	}

	maxv := NewScalar(in[0].W, in[0].H)
	maxi := NewIndex(in[0].W, in[0].H)
	for n := range maxv.Data {
		v := NegInf
		var i int32
		for kk := range k {
			if in[kk].Data[n] > v {
				i = int32(kk)
				v = in[kk].Data[n]
			}
		}
		maxv.Data[n] = v
		maxi.Data[n] = i
	}
	return maxv, maxi, nil
}

// PickScalar gathers one value per location from a stack of K aligned scalar
// fields: out[loc] = in[idx[loc]][loc]. Every entry of idx must lie in [0, K).
func PickScalar(in []*Scalar, idx *Index) (*Scalar, error) {
	if err := checkPick(len(in), idx, func(i int) (int, int) { return in[i].W, in[i].H }); err != nil {
		return nil, err
	}
	out := NewScalar(idx.W, idx.H)
	for n, i := range idx.Data {
		out.Data[n] = in[i].Data[n]
	}
	return out, nil
}

// PickIndex gathers one entry per location from a stack of K aligned index
// fields: out[loc] = in[idx[loc]][loc]. Every entry of idx must lie in [0, K).
func PickIndex(in []*Index, idx *Index) (*Index, error) {
	if err := checkPick(len(in), idx, func(i int) (int, int) { return in[i].W, in[i].H }); err != nil {
		return nil, err
	}
	out := NewIndex(idx.W, idx.H)
	for n, i := range idx.Data {
		out.Data[n] = in[i].Data[n]
	}
	return out, nil
}

// checkPick validates a gather: a non-empty stack, aligned dimensions, and
// every index entry within [0, K). The range check runs before any gather
// access so a malformed index field can never read out of bounds.
func checkPick(k int, idx *Index, dims func(int) (int, int)) error {
	if k == 0 {
		return fmt.Errorf("%w: empty field stack", ErrDegenerateInput)
	}
	for i := range k {
		w, h := dims(i)
		if w != idx.W || h != idx.H {
			return fmt.Errorf("%w: field %d is %dx%d, index field is %dx%d",
				ErrDimensionMismatch, i, w, h, idx.W, idx.H)
		}
	}
	for n, v := range idx.Data {
		if v < 0 || int(v) >= k {
			return fmt.Errorf("%w: entry %d at offset %d, stack size %d", ErrIndexOutOfRange, v, n, k)
		}
	}
	return nil
}
