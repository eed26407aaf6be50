package dp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/pictor/internal/field"
	"github.com/MeKo-Tech/pictor/internal/model"
)

func TestArgminRequiresMin(t *testing.T) {
	eng, err := New(chainModel(), Config{NScales: 1})
	require.NoError(t, err)
	_, err = eng.Argmin(0, 0)
	require.ErrorIs(t, err, ErrNotMinimized)
}

func TestBacktraceFollowsAnchor(t *testing.T) {
	// A lone strong child peak, anchored (2,1) off its parent: the best
	// root location sits at peak-(2,1) and the back-traced child location
	// is the peak itself.
	const w, h = 10, 9
	const px, py = 6, 5 // child peak

	m := chainModel()
	m.Parts[1].Anchor = model.Anchor{X: 2, Y: 1}

	rootU := field.NewScalar(w, h)
	childU := field.NewScalar(w, h)
	childU.Set(px, py, 100)

	eng, err := New(m, Config{NScales: 1})
	require.NoError(t, err)
	require.NoError(t, eng.Min([]*field.Scalar{rootU, childU}))

	best, ok, err := eng.Best(50)
	require.NoError(t, err)
	require.True(t, ok)

	assert.InDelta(t, 100.0, best.Score, 1e-3)
	assert.Equal(t, 0, best.Scale)
	require.Len(t, best.Parts, 2)
	assert.Equal(t, PartHit{X: px - 2, Y: py - 1, Mixture: 0}, best.Parts[0])
	assert.Equal(t, PartHit{X: px, Y: py, Mixture: 0}, best.Parts[1])
}

// mixtureModel builds a root with one child and two mixtures. The bias matrix
// makes child mixture 0 the only viable choice for parent mixture 0, while
// parent mixture 1 is free to take the stronger child mixture.
func mixtureModel() *model.Model {
	return &model.Model{
		Name:      "mix",
		NMixtures: 2,
		Parts: []model.Part{
			{Name: "root", Pos: 0, Parent: -1, Children: []int{1}},
			{
				Name:   "limb",
				Pos:    1,
				Parent: 0,
				Springs: []model.Spring{
					{AX: 1, AY: 1},
					{AX: 1, AY: 1},
				},
				Bias: [][]float32{
					{0, -1000},
					{0, 0},
				},
			},
		},
	}
}

func TestArgminSelectsMixturesByBias(t *testing.T) {
	const w, h = 9, 9
	locA := PartHit{X: 2, Y: 3, Mixture: 0}
	locB := PartHit{X: 6, Y: 6, Mixture: 1}

	m := mixtureModel()
	eng, err := New(m, Config{NScales: 1})
	require.NoError(t, err)

	// Slots: (root,m0), (root,m1), (limb,m0), (limb,m1).
	resp := []*field.Scalar{
		field.NewScalar(w, h),
		field.NewScalar(w, h),
		field.NewScalar(w, h),
		field.NewScalar(w, h),
	}
	resp[2].Set(locA.X, locA.Y, 5)
	resp[3].Set(locB.X, locB.Y, 9)
	require.NoError(t, eng.Min(resp))

	cands, err := eng.Argmin(4.5, 0)
	require.NoError(t, err)
	require.NotEmpty(t, cands)

	// The overall best is root mixture 1 riding the stronger child mixture.
	best := cands[0]
	assert.InDelta(t, 9.0, best.Score, 1e-3)
	assert.Equal(t, 1, best.Parts[0].Mixture)
	assert.Equal(t, locB, best.Parts[1])

	// Among root-mixture-0 candidates the heavy bias forbids child
	// mixture 1, so the best of them sits on the weaker peak.
	var m0 *Candidate
	for i := range cands {
		if cands[i].Parts[0].Mixture == 0 {
			m0 = &cands[i]
			break
		}
	}
	require.NotNil(t, m0, "expected a root-mixture-0 candidate")
	assert.InDelta(t, 5.0, m0.Score, 1e-3)
	assert.Equal(t, locA, m0.Parts[1])
}

func TestArgminThresholdAndLimit(t *testing.T) {
	const w, h = 8, 8
	eng, err := New(chainModel(), Config{NScales: 1})
	require.NoError(t, err)

	rootU := field.NewScalar(w, h)
	childU := field.NewScalar(w, h)
	childU.Set(4, 4, 10)
	require.NoError(t, eng.Min([]*field.Scalar{rootU, childU}))

	all, err := eng.Argmin(8, 0)
	require.NoError(t, err)
	require.NotEmpty(t, all)
	for i := 1; i < len(all); i++ {
		assert.GreaterOrEqual(t, all[i-1].Score, all[i].Score, "candidates not sorted")
	}
	for _, c := range all {
		assert.GreaterOrEqual(t, c.Score, float32(8))
	}

	capped, err := eng.Argmin(8, 2)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(capped), 2)

	none, err := eng.Argmin(1e6, 0)
	require.NoError(t, err)
	assert.Empty(t, none)

	_, ok, err := eng.Best(1e6)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestThreeLevelChainBacktrace(t *testing.T) {
	// root -> mid -> tip, peaks arranged so every anchor is honored.
	m := &model.Model{
		Name:      "arm",
		NMixtures: 1,
		Parts: []model.Part{
			{Name: "root", Pos: 0, Parent: -1, Children: []int{1}},
			{
				Name: "mid", Pos: 1, Parent: 0, Children: []int{2},
				Anchor:  model.Anchor{X: 1, Y: 0},
				Springs: []model.Spring{{AX: 1, AY: 1}},
				Bias:    [][]float32{{0}},
			},
			{
				Name: "tip", Pos: 2, Parent: 1,
				Anchor:  model.Anchor{X: 1, Y: 1},
				Springs: []model.Spring{{AX: 1, AY: 1}},
				Bias:    [][]float32{{0}},
			},
		},
	}

	const w, h = 8, 8
	resp := []*field.Scalar{
		field.NewScalar(w, h), // root
		field.NewScalar(w, h), // mid
		field.NewScalar(w, h), // tip
	}
	resp[0].Set(3, 3, 10)
	resp[1].Set(4, 3, 10) // root + (1,0)
	resp[2].Set(5, 4, 10) // mid + (1,1)

	eng, err := New(m, Config{NScales: 1})
	require.NoError(t, err)
	require.NoError(t, eng.Min(resp))

	best, ok, err := eng.Best(25)
	require.NoError(t, err)
	require.True(t, ok)

	assert.InDelta(t, 30.0, best.Score, 1e-3)
	assert.Equal(t, PartHit{X: 3, Y: 3}, best.Parts[0])
	assert.Equal(t, PartHit{X: 4, Y: 3}, best.Parts[1])
	assert.Equal(t, PartHit{X: 5, Y: 4}, best.Parts[2])
}
