// Package detector drives a full detection run: it obtains per-part response
// fields from a source (filter correlation over a feature pyramid, or an ONNX
// heatmap backbone), hands them to the message-passing engine, and maps the
// back-traced candidates to image coordinates.
package detector

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"math"

	"github.com/MeKo-Tech/pictor/internal/common"
	"github.com/MeKo-Tech/pictor/internal/dp"
	"github.com/MeKo-Tech/pictor/internal/field"
	"github.com/MeKo-Tech/pictor/internal/model"
	"github.com/MeKo-Tech/pictor/internal/onnx"
	"github.com/MeKo-Tech/pictor/internal/pyramid"
)

// Source produces a flat response array for an image, plus the resampling
// factor of every scale in it.
type Source interface {
	Responses(img image.Image, m *model.Model) ([]*field.Scalar, []float64, error)
}

// Config holds detection settings.
type Config struct {
	Threshold     float32 // minimum joint score for a candidate
	MaxCandidates int     // cap on returned candidates, 0 = unlimited
	Workers       int     // concurrent scale passes in the engine
	Pyramid       pyramid.Config
}

// DefaultConfig returns detection defaults.
func DefaultConfig() Config {
	return Config{Threshold: 0, MaxCandidates: 16, Pyramid: pyramid.DefaultConfig()}
}

// Detector runs inference for one model with one response source.
type Detector struct {
	model *model.Model
	cfg   Config
	src   Source
}

// New creates a detector using filter correlation over a feature pyramid.
// The model must carry appearance filters.
func New(m *model.Model, cfg Config) (*Detector, error) {
	if m == nil {
		return nil, errors.New("nil model")
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid model: %w", err)
	}
	if !m.HasFilters() {
		return nil, fmt.Errorf("model %q carries no appearance filters; use NewWithSource", m.Name)
	}
	return &Detector{model: m, cfg: cfg, src: &pyramidSource{cfg: cfg.Pyramid}}, nil
}

// NewWithSource creates a detector on an externally supplied response source.
func NewWithSource(m *model.Model, cfg Config, src Source) (*Detector, error) {
	if m == nil {
		return nil, errors.New("nil model")
	}
	if src == nil {
		return nil, errors.New("nil response source")
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid model: %w", err)
	}
	return &Detector{model: m, cfg: cfg, src: src}, nil
}

// Model returns the detector's part model.
func (d *Detector) Model() *model.Model { return d.model }

// Detect runs the full pipeline on one image.
func (d *Detector) Detect(img image.Image) (*Result, error) {
	if img == nil {
		return nil, errors.New("nil image")
	}
	timer := common.NewNamedTimer("detect")

	responses, scales, err := d.src.Responses(img, d.model)
	if err != nil {
		return nil, fmt.Errorf("response source: %w", err)
	}

	eng, err := dp.New(d.model, dp.Config{NScales: len(scales), Workers: d.cfg.Workers})
	if err != nil {
		return nil, err
	}
	if err := eng.Min(responses); err != nil {
		return nil, fmt.Errorf("minimization: %w", err)
	}
	cands, err := eng.Argmin(d.cfg.Threshold, d.cfg.MaxCandidates)
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	res := &Result{
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
	}
	for _, c := range cands {
		res.Detections = append(res.Detections, d.toImageSpace(c, scales))
	}
	res.ProcessingTime = timer.Stop()
	slog.Debug("Detection complete",
		"model", d.model.Name,
		"scales", len(scales),
		"candidates", len(res.Detections),
		"duration", res.ProcessingTime)
	return res, nil
}

// DetectResponses runs the engine on an already-built response array,
// bypassing any image handling. Candidates stay in response-field
// coordinates.
func (d *Detector) DetectResponses(responses []*field.Scalar, nscales int) ([]dp.Candidate, error) {
	eng, err := dp.New(d.model, dp.Config{NScales: nscales, Workers: d.cfg.Workers})
	if err != nil {
		return nil, err
	}
	if err := eng.Min(responses); err != nil {
		return nil, err
	}
	return eng.Argmin(d.cfg.Threshold, d.cfg.MaxCandidates)
}

// toImageSpace rescales a candidate's part placements from its pyramid level
// back to input-image coordinates.
func (d *Detector) toImageSpace(c dp.Candidate, scales []float64) Detection {
	det := Detection{Score: c.Score, Scale: c.Scale}
	factor := scales[c.Scale]
	for i, ph := range c.Parts {
		det.Parts = append(det.Parts, PartPlacement{
			Name:    d.model.Parts[i].Name,
			X:       int(math.Round(float64(ph.X) / factor)),
			Y:       int(math.Round(float64(ph.Y) / factor)),
			Mixture: ph.Mixture,
		})
	}
	return det
}

// pyramidSource correlates model filters with a feature pyramid.
type pyramidSource struct {
	cfg pyramid.Config
}

func (s *pyramidSource) Responses(img image.Image, m *model.Model) ([]*field.Scalar, []float64, error) {
	p, err := pyramid.Build(img, s.cfg)
	if err != nil {
		return nil, nil, err
	}
	resp, err := pyramid.Responses(p, m)
	if err != nil {
		return nil, nil, err
	}
	return resp, p.Scales, nil
}

// ONNXSource adapts the heatmap backbone to the detector's Source interface.
// The backbone emits a single native scale.
type ONNXSource struct {
	Backbone *onnx.Source
}

func (s *ONNXSource) Responses(img image.Image, m *model.Model) ([]*field.Scalar, []float64, error) {
	resp, nscales, err := s.Backbone.Responses(img, m)
	if err != nil {
		return nil, nil, err
	}
	scales := make([]float64, nscales)
	for i := range scales {
		scales[i] = 1
	}
	return resp, scales, nil
}
