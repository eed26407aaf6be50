// Package dp implements min-sum message passing over a tree-structured part
// model. Each non-root part sends its parent a distance-transformed,
// anchor-shifted, bias-weighted message; after one post-order pass the root's
// response fields hold the best total score of the whole configuration at
// every location. A second, top-down pass (Argmin) recovers the per-part
// locations behind each maximum as pure index lookups.
package dp

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/MeKo-Tech/pictor/internal/dt"
	"github.com/MeKo-Tech/pictor/internal/field"
	"github.com/MeKo-Tech/pictor/internal/model"
)

// Config holds engine settings.
type Config struct {
	NScales int // pyramid levels in the response array
	Workers int // concurrent scale passes; 0 or 1 runs sequentially, <0 uses all CPUs
}

// message is the provenance a part stores per parent mixture: where the best
// child placement came from (absolute source coordinates in the child's
// field) and which child mixture won.
type message struct {
	ix *field.Index
	iy *field.Index
	ik *field.Index
}

// Engine runs inference for one model. An Engine is not safe for concurrent
// use; each Min call owns the response array it was given until the matching
// Argmin calls are done.
type Engine struct {
	m    *model.Model
	cfg  Config
	resp []*field.Scalar
	msgs []message
}

// ErrNotMinimized is returned by Argmin before any Min pass has run.
var ErrNotMinimized = errors.New("no minimization pass has run")

// New creates an engine for the given model.
func New(m *model.Model, cfg Config) (*Engine, error) {
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid model: %w", err)
	}
	if cfg.NScales < 1 {
		return nil, fmt.Errorf("engine needs at least one scale, got %d", cfg.NScales)
	}
	if cfg.Workers < 0 {
		cfg.Workers = runtime.NumCPU()
	}
	return &Engine{m: m, cfg: cfg}, nil
}

// Min walks the part tree from the leaves to the root at every scale,
// overwriting the response array in place with min-marginals: after it
// returns, the slot of (part, mixture, scale) holds that part's unary score
// plus the best achievable score of its whole subtree, and the root's slots
// hold the final joint score at every location.
//
// The parts arena is ordered root first with every parent preceding its
// children, so visiting positions in reverse order is a post-order traversal
// without recursion.
//
// Scales are independent of one another and are processed concurrently when
// Workers allows; each scale owns a statically disjoint slice of the
// response array, so no locking is needed.
func (e *Engine) Min(responses []*field.Scalar) error {
	if err := e.checkResponses(responses); err != nil {
		return err
	}
	e.resp = responses
	e.msgs = make([]message, e.m.ResponseLen(e.cfg.NScales))

	if e.cfg.Workers > 1 && e.cfg.NScales > 1 {
		return e.minParallel()
	}
	for scale := range e.cfg.NScales {
		if err := e.minScale(scale); err != nil {
			return err
		}
	}
	return nil
}

// minParallel runs the per-scale passes on a bounded worker pool.
func (e *Engine) minParallel() error {
	jobs := make(chan int, e.cfg.NScales)
	errs := make([]error, e.cfg.NScales)

	var wg sync.WaitGroup
	for range min(e.cfg.Workers, e.cfg.NScales) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for scale := range jobs {
				errs[scale] = e.minScale(scale)
			}
		}()
	}
	for scale := range e.cfg.NScales {
		jobs <- scale
	}
	close(jobs)
	wg.Wait()

	return errors.Join(errs...)
}

// checkResponses verifies the response array against the model geometry
// before any field is touched: a mismatch here is a configuration bug, never
// a transient condition.
func (e *Engine) checkResponses(responses []*field.Scalar) error {
	want := e.m.ResponseLen(e.cfg.NScales)
	if len(responses) != want {
		return fmt.Errorf("%w: response array has %d fields, model wants %d",
			field.ErrDimensionMismatch, len(responses), want)
	}
	for scale := range e.cfg.NScales {
		base := e.m.Slot(scale, 0, 0)
		first := responses[base]
		if first == nil {
			return fmt.Errorf("response field %d is nil", base)
		}
		for i := base; i < e.m.Slot(scale, e.m.NParts()-1, e.m.NMixtures-1)+1; i++ {
			if responses[i] == nil {
				return fmt.Errorf("response field %d is nil", i)
			}
			if !responses[i].SameSize(first) {
				return fmt.Errorf("%w: scale %d field %d is %dx%d, expected %dx%d",
					field.ErrDimensionMismatch, scale, i, responses[i].W, responses[i].H, first.W, first.H)
			}
		}
	}
	return nil
}

// minScale passes messages up the tree at one pyramid level.
func (e *Engine) minScale(scale int) error {
	for p := e.m.NParts() - 1; p >= 1; p-- {
		if err := e.passMessage(scale, p); err != nil {
			return fmt.Errorf("scale %d: %w", scale, err)
		}
	}
	return nil
}

// passMessage computes the message part p contributes to its parent: per
// child mixture a distance transform of p's (already child-augmented) field
// under that mixture's spring, shifted by p's anchor; then per parent mixture
// the bias-weighted best child mixture at every location. The winning score
// accumulates into the parent's slot, and the provenance fields are kept for
// the back-trace.
func (e *Engine) passMessage(scale, p int) error {
	part := &e.m.Parts[p]
	nm := e.m.NMixtures

	shifted := make([]*field.Scalar, nm)
	srcX := make([]*field.Index, nm)
	srcY := make([]*field.Index, nm)
	for mc := range nm {
		in := e.resp[e.m.Slot(scale, p, mc)]
		s := part.Springs[mc]
		score, ix, iy, err := dt.Transform2D(in, s.AX, s.BX, s.AY, s.BY)
		if err != nil {
			return fmt.Errorf("part %q mixture %d: %w", part.Name, mc, err)
		}
		shifted[mc], srcX[mc], srcY[mc] = shiftByAnchor(score, ix, iy, part.Anchor)
	}

	for mp := range nm {
		best, msg, err := combineMixtures(part, shifted, srcX, srcY, mp)
		if err != nil {
			return fmt.Errorf("part %q parent mixture %d: %w", part.Name, mp, err)
		}
		e.msgs[e.m.Slot(scale, p, mp)] = msg
		if err := e.resp[e.m.Slot(scale, part.Parent, mp)].Add(best); err != nil {
			return fmt.Errorf("part %q parent mixture %d: %w", part.Name, mp, err)
		}
	}
	return nil
}

// combineMixtures picks, per location, the best child mixture for one parent
// mixture. With a single mixture there is nothing to reduce over and the
// message is the lone shifted field plus its bias.
func combineMixtures(part *model.Part, shifted []*field.Scalar, srcX, srcY []*field.Index, mp int) (*field.Scalar, message, error) {
	nm := len(shifted)
	if nm == 1 {
		best := shifted[0].AddScalar(part.Bias[mp][0])
		return best, message{
			ix: srcX[0],
			iy: srcY[0],
			ik: field.NewIndex(best.W, best.H),
		}, nil
	}

	weighted := make([]*field.Scalar, nm)
	for mc := range nm {
		weighted[mc] = shifted[mc].AddScalar(part.Bias[mp][mc])
	}
	best, ik, err := field.MaxReduce(weighted)
	if err != nil {
		return nil, message{}, err
	}
	ix, err := field.PickIndex(srcX, ik)
	if err != nil {
		return nil, message{}, err
	}
	iy, err := field.PickIndex(srcY, ik)
	if err != nil {
		return nil, message{}, err
	}
	return best, message{ix: ix, iy: iy, ik: ik}, nil
}

// shiftByAnchor moves a transformed child field into its parent's coordinate
// frame: the message at parent location (x,y) is the child's value at
// (x+ax, y+ay). Locations whose shifted source falls outside the field are
// invalidated with the additive identity of the max reduction, negative
// infinity, so they can never win. The bounds are clipped independently per
// axis. Index entries keep absolute child coordinates, which makes the
// back-trace a plain lookup.
func shiftByAnchor(score *field.Scalar, ix, iy *field.Index, a model.Anchor) (*field.Scalar, *field.Index, *field.Index) {
	w, h := score.W, score.H
	outS := field.NewScalarFilled(w, h, field.NegInf)
	outX := field.NewIndex(w, h)
	outY := field.NewIndex(w, h)
	for y := range h {
		sy := y + a.Y
		if sy < 0 || sy >= h {
			continue
		}
		for x := range w {
			sx := x + a.X
			if sx < 0 || sx >= w {
				continue
			}
			outS.Data[y*w+x] = score.Data[sy*w+sx]
			outX.Data[y*w+x] = ix.Data[sy*w+sx]
			outY.Data[y*w+x] = iy.Data[sy*w+sx]
		}
	}
	return outS, outX, outY
}

// Responses exposes the transformed response array after a Min pass, for
// callers needing finer introspection than candidates.
func (e *Engine) Responses() []*field.Scalar { return e.resp }

// Model returns the model the engine was built for.
func (e *Engine) Model() *model.Model { return e.m }
