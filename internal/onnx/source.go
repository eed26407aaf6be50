package onnx

import (
	"errors"
	"fmt"
	"image"
	"os"
	"sync"

	"github.com/yalue/onnxruntime_go"

	"github.com/MeKo-Tech/pictor/internal/field"
	"github.com/MeKo-Tech/pictor/internal/model"
)

// Config holds settings for the heatmap source.
type Config struct {
	ModelPath   string // path to the ONNX heatmap model
	LibraryPath string // optional explicit ONNX Runtime library path
	InputName   string // graph input name
	OutputName  string // graph output name
	NumThreads  int    // intra-op threads, 0 leaves the runtime default
}

// DefaultConfig returns the heatmap source defaults.
func DefaultConfig() Config {
	return Config{InputName: "image", OutputName: "heatmaps"}
}

// Validate checks the configuration without touching the runtime.
func (c Config) Validate() error {
	if c.ModelPath == "" {
		return errors.New("onnx source needs a model path")
	}
	if _, err := os.Stat(c.ModelPath); err != nil {
		return fmt.Errorf("onnx model: %w", err)
	}
	if c.InputName == "" || c.OutputName == "" {
		return errors.New("onnx source needs input and output names")
	}
	if c.NumThreads < 0 {
		return fmt.Errorf("invalid thread count %d", c.NumThreads)
	}
	return nil
}

// Source produces response fields by running a heatmap backbone: the graph
// output carries one channel per (part, mixture), in the engine's slot order.
type Source struct {
	cfg     Config
	session *onnxruntime_go.DynamicAdvancedSession
	mu      sync.Mutex
}

// NewSource validates the configuration and opens an inference session.
func NewSource(cfg Config) (*Source, error) {
	if cfg.InputName == "" {
		cfg.InputName = DefaultConfig().InputName
	}
	if cfg.OutputName == "" {
		cfg.OutputName = DefaultConfig().OutputName
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := initEnvironment(cfg.LibraryPath); err != nil {
		return nil, err
	}

	opts, err := onnxruntime_go.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("creating session options: %w", err)
	}
	defer func() {
		if err := opts.Destroy(); err != nil {
			fmt.Fprintf(os.Stderr, "Error destroying session options: %v\n", err)
		}
	}()
	if cfg.NumThreads > 0 {
		if err := opts.SetIntraOpNumThreads(cfg.NumThreads); err != nil {
			return nil, fmt.Errorf("setting thread count: %w", err)
		}
	}

	session, err := onnxruntime_go.NewDynamicAdvancedSession(cfg.ModelPath,
		[]string{cfg.InputName}, []string{cfg.OutputName}, opts)
	if err != nil {
		return nil, fmt.Errorf("creating ONNX session: %w", err)
	}
	return &Source{cfg: cfg, session: session}, nil
}

// Responses runs the backbone on an image and splits the heatmap channels
// into the flat response array for a single scale.
func (s *Source) Responses(img image.Image, m *model.Model) ([]*field.Scalar, int, error) {
	data, shape, err := imageToTensor(img)
	if err != nil {
		return nil, 0, err
	}

	input, err := onnxruntime_go.NewTensor(onnxruntime_go.NewShape(shape...), data)
	if err != nil {
		return nil, 0, fmt.Errorf("creating input tensor: %w", err)
	}
	defer func() {
		if err := input.Destroy(); err != nil {
			fmt.Fprintf(os.Stderr, "Error destroying input tensor: %v\n", err)
		}
	}()

	s.mu.Lock()
	session := s.session
	s.mu.Unlock()
	if session == nil {
		return nil, 0, errors.New("onnx source is closed")
	}

	outputs := []onnxruntime_go.Value{nil}
	if err := session.Run([]onnxruntime_go.Value{input}, outputs); err != nil {
		return nil, 0, fmt.Errorf("inference failed: %w", err)
	}
	out := outputs[0]
	defer func() {
		if err := out.Destroy(); err != nil {
			fmt.Fprintf(os.Stderr, "Error destroying output tensor: %v\n", err)
		}
	}()

	floatOut, ok := out.(*onnxruntime_go.Tensor[float32])
	if !ok {
		return nil, 0, fmt.Errorf("expected float32 heatmaps, got %T", out)
	}

	channels := m.NParts() * m.NMixtures
	outShape := out.GetShape()
	if err := validateHeatmapShape(outShape, channels); err != nil {
		return nil, 0, err
	}
	h, w := int(outShape[2]), int(outShape[3])
	raw := floatOut.GetData()

	// Channel order matches the single-scale slot order:
	// nmixtures*part + mixture.
	resp := make([]*field.Scalar, channels)
	for c := range channels {
		f := field.NewScalar(w, h)
		copy(f.Data, raw[c*w*h:(c+1)*w*h])
		resp[c] = f
	}
	return resp, 1, nil
}

// Close releases the inference session. The runtime environment stays up for
// the life of the process, matching how other sessions share it.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return nil
	}
	err := s.session.Destroy()
	s.session = nil
	if err != nil {
		return fmt.Errorf("destroying ONNX session: %w", err)
	}
	return nil
}
