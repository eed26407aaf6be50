package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoPartModel() *Model {
	return &Model{
		Name:      "pair",
		NMixtures: 2,
		Parts: []Part{
			{Name: "torso", Pos: 0, Parent: -1, Children: []int{1}},
			{
				Name:   "head",
				Pos:    1,
				Parent: 0,
				Anchor: Anchor{X: 0, Y: -4},
				Springs: []Spring{
					{AX: 0.05, AY: 0.05},
					{AX: 0.1, AY: 0.1},
				},
				Bias: [][]float32{{0, -0.5}, {-0.5, 0}},
			},
		},
	}
}

func TestValidateAccepts(t *testing.T) {
	require.NoError(t, twoPartModel().Validate())
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Model)
	}{
		{"no parts", func(m *Model) { m.Parts = nil }},
		{"zero mixtures", func(m *Model) { m.NMixtures = 0 }},
		{"non-root first", func(m *Model) { m.Parts[0].Parent = 1 }},
		{"second root", func(m *Model) { m.Parts[1].Parent = -1 }},
		{"position mismatch", func(m *Model) { m.Parts[1].Pos = 5 }},
		{"spring count", func(m *Model) { m.Parts[1].Springs = m.Parts[1].Springs[:1] }},
		{"negative spring", func(m *Model) { m.Parts[1].Springs[0].AX = -1 }},
		{"bias rows", func(m *Model) { m.Parts[1].Bias = m.Parts[1].Bias[:1] }},
		{"bias cols", func(m *Model) { m.Parts[1].Bias[0] = m.Parts[1].Bias[0][:1] }},
		{"child out of order", func(m *Model) { m.Parts[0].Children = []int{0} }},
		{"bad filter shape", func(m *Model) {
			m.Parts[0].Filters = []Filter{
				{W: 2, H: 2, Weights: []float32{1, 2, 3}},
				{W: 2, H: 2, Weights: []float32{1, 2, 3, 4}},
			}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := twoPartModel()
			tt.mutate(m)
			assert.Error(t, m.Validate())
		})
	}
}

func TestSlotAddressing(t *testing.T) {
	m := twoPartModel()
	// index = nparts*nmixtures*scale + nmixtures*part + mixture
	assert.Equal(t, 0, m.Slot(0, 0, 0))
	assert.Equal(t, 1, m.Slot(0, 0, 1))
	assert.Equal(t, 2, m.Slot(0, 1, 0))
	assert.Equal(t, 4, m.Slot(1, 0, 0))
	assert.Equal(t, 7, m.Slot(1, 1, 1))
	assert.Equal(t, 8, m.ResponseLen(2))
}

func TestTreePredicates(t *testing.T) {
	m := twoPartModel()
	assert.True(t, m.Root().IsRoot())
	assert.False(t, m.Root().IsLeaf())
	assert.True(t, m.Parts[1].IsLeaf())
	assert.False(t, m.HasFilters())
}
