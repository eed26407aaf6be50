// Package model holds the tree-structured part model the engine consumes:
// part geometry, spring weights, mixture biases and appearance filters. The
// tree is stored as a flat arena of Part records addressed by position index
// with the parent/child relation kept as index columns, root first, so
// traversal never chases pointers.
package model

import (
	"errors"
	"fmt"
)

// Anchor is the expected 2D offset of a part relative to its parent's frame.
type Anchor struct {
	X int `yaml:"x"`
	Y int `yaml:"y"`
}

// Spring holds the quadratic deformation coefficients for one mixture. The
// pairwise cost between a part at displacement (dx,dy) from its ideal anchor
// position is AX*dx^2 + BX*dx + AY*dy^2 + BY*dy.
type Spring struct {
	AX float32 `yaml:"ax"`
	BX float32 `yaml:"bx"`
	AY float32 `yaml:"ay"`
	BY float32 `yaml:"by"`
}

// Filter is a small linear appearance template convolved with the feature
// pyramid to produce a part's unary response field.
type Filter struct {
	W       int       `yaml:"w"`
	H       int       `yaml:"h"`
	Weights []float32 `yaml:"weights"`
}

// Part is one node of the tree. Position indices are stable, root first, and
// address slices of the flat response array.
type Part struct {
	Name     string
	Pos      int
	Parent   int // -1 for the root
	Children []int
	Anchor   Anchor
	Springs  []Spring    // one per mixture; unused on the root
	Bias     [][]float32 // [parent mixture][child mixture]; unused on the root
	Filters  []Filter    // one per mixture; optional when responses come from elsewhere
}

// IsRoot reports whether the part has no parent.
func (p *Part) IsRoot() bool { return p.Parent < 0 }

// IsLeaf reports whether the part owns no children.
func (p *Part) IsLeaf() bool { return len(p.Children) == 0 }

// Model is a complete part tree plus its model-wide mixture count.
type Model struct {
	Name      string
	NMixtures int
	Parts     []Part
}

// NParts returns the number of parts in the tree.
func (m *Model) NParts() int { return len(m.Parts) }

// Root returns the root part.
func (m *Model) Root() *Part { return &m.Parts[0] }

// Slot returns the flat response-array index of (part, mixture) at the given
// scale: nparts*nmixtures*scale + nmixtures*part + mixture.
func (m *Model) Slot(scale, part, mixture int) int {
	return m.NParts()*m.NMixtures*scale + m.NMixtures*part + mixture
}

// ResponseLen returns the expected length of a flat response array holding
// nscales pyramid levels.
func (m *Model) ResponseLen(nscales int) int {
	return m.NParts() * m.NMixtures * nscales
}

var errNoParts = errors.New("model has no parts")

// Validate checks the structural invariants the engine relies on: exactly one
// root at position zero, every parent preceding its children (which makes the
// arena order a valid reverse post-order), and per-mixture weight and bias
// shapes consistent with the model-wide mixture count.
func (m *Model) Validate() error {
	if len(m.Parts) == 0 {
		return errNoParts
	}
	if m.NMixtures < 1 {
		return fmt.Errorf("model needs at least one mixture, got %d", m.NMixtures)
	}
	if !m.Parts[0].IsRoot() {
		return fmt.Errorf("part 0 %q must be the root", m.Parts[0].Name)
	}
	for i := range m.Parts {
		if err := m.validatePart(i); err != nil {
			return err
		}
	}
	return nil
}

func (m *Model) validatePart(i int) error {
	p := &m.Parts[i]
	if p.Pos != i {
		return fmt.Errorf("part %q: position %d stored at index %d", p.Name, p.Pos, i)
	}
	if i > 0 && p.IsRoot() {
		return fmt.Errorf("part %q: second root at position %d", p.Name, i)
	}
	if i > 0 && (p.Parent >= i || p.Parent < 0) {
		return fmt.Errorf("part %q: parent %d does not precede position %d", p.Name, p.Parent, i)
	}
	for _, c := range p.Children {
		if c <= i || c >= len(m.Parts) {
			return fmt.Errorf("part %q: child index %d out of order", p.Name, c)
		}
		if m.Parts[c].Parent != i {
			return fmt.Errorf("part %q: child %d does not point back", p.Name, c)
		}
	}
	if p.Filters != nil {
		if len(p.Filters) != m.NMixtures {
			return fmt.Errorf("part %q: %d filters for %d mixtures", p.Name, len(p.Filters), m.NMixtures)
		}
		for mi, f := range p.Filters {
			if f.W <= 0 || f.H <= 0 || len(f.Weights) != f.W*f.H {
				return fmt.Errorf("part %q mixture %d: filter %dx%d with %d weights",
					p.Name, mi, f.W, f.H, len(f.Weights))
			}
		}
	}
	if p.IsRoot() {
		return nil
	}

	// Non-root parts carry springs and the bias matrix for message passing.
	if len(p.Springs) != m.NMixtures {
		return fmt.Errorf("part %q: %d springs for %d mixtures", p.Name, len(p.Springs), m.NMixtures)
	}
	for mi, s := range p.Springs {
		if s.AX <= 0 || s.AY <= 0 {
			return fmt.Errorf("part %q mixture %d: spring coefficients ax=%g ay=%g must be positive",
				p.Name, mi, s.AX, s.AY)
		}
	}
	if len(p.Bias) != m.NMixtures {
		return fmt.Errorf("part %q: bias has %d rows for %d parent mixtures", p.Name, len(p.Bias), m.NMixtures)
	}
	for mp, row := range p.Bias {
		if len(row) != m.NMixtures {
			return fmt.Errorf("part %q: bias row %d has %d entries for %d child mixtures",
				p.Name, mp, len(row), m.NMixtures)
		}
	}
	return nil
}

// HasFilters reports whether every part carries appearance filters, i.e. the
// model can produce its own response fields from a feature pyramid.
func (m *Model) HasFilters() bool {
	for i := range m.Parts {
		if m.Parts[i].Filters == nil {
			return false
		}
	}
	return true
}
