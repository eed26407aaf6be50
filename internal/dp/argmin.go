package dp

import (
	"sort"
)

// PartHit is one part's placement inside a candidate detection.
type PartHit struct {
	X       int `json:"x"`
	Y       int `json:"y"`
	Mixture int `json:"mixture"`
}

// Candidate is one fully back-traced detection: a location and mixture for
// every part in the tree, the pyramid level it was found at, and the joint
// score.
type Candidate struct {
	Score float32   `json:"score"`
	Scale int       `json:"scale"`
	Parts []PartHit `json:"parts"`
}

// Argmin walks back down the tree from every root location scoring at least
// thresh, at every scale and root mixture, and returns the recovered
// candidates sorted by score descending. A positive limit caps the result
// after sorting. The walk is a pure lookup over the provenance fields stored
// during Min; no additional search happens here.
func (e *Engine) Argmin(thresh float32, limit int) ([]Candidate, error) {
	if e.resp == nil {
		return nil, ErrNotMinimized
	}

	var out []Candidate
	for scale := range e.cfg.NScales {
		for mr := range e.m.NMixtures {
			root := e.resp[e.m.Slot(scale, 0, mr)]
			for y := range root.H {
				for x := range root.W {
					score := root.At(x, y)
					if score < thresh {
						continue
					}
					out = append(out, e.backtrace(scale, mr, x, y, score))
				}
			}
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Best returns the single highest-scoring candidate, if any root location
// reaches thresh.
func (e *Engine) Best(thresh float32) (Candidate, bool, error) {
	cands, err := e.Argmin(thresh, 1)
	if err != nil {
		return Candidate{}, false, err
	}
	if len(cands) == 0 {
		return Candidate{}, false, nil
	}
	return cands[0], true, nil
}

// backtrace recovers every part's placement for one root maximum. Parts are
// visited in arena order, parents before children, so each part's parent
// placement is already known; the stored provenance fields carry absolute
// child coordinates with the anchor shift folded in.
func (e *Engine) backtrace(scale, rootMixture, x, y int, score float32) Candidate {
	parts := make([]PartHit, e.m.NParts())
	parts[0] = PartHit{X: x, Y: y, Mixture: rootMixture}
	for p := 1; p < e.m.NParts(); p++ {
		at := parts[e.m.Parts[p].Parent]
		msg := e.msgs[e.m.Slot(scale, p, at.Mixture)]
		parts[p] = PartHit{
			X:       int(msg.ix.At(at.X, at.Y)),
			Y:       int(msg.iy.At(at.X, at.Y)),
			Mixture: int(msg.ik.At(at.X, at.Y)),
		}
	}
	return Candidate{Score: score, Scale: scale, Parts: parts}
}
