// Package server exposes part detection over HTTP and WebSocket.
package server

import (
	"image"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MeKo-Tech/pictor/internal/detector"
	"github.com/MeKo-Tech/pictor/internal/model"
)

// detectorInterface defines the methods the server needs from a detector.
type detectorInterface interface {
	Detect(img image.Image) (*detector.Result, error)
	Model() *model.Model
}

// Server holds the HTTP server state and dependencies.
type Server struct {
	detector    detectorInterface
	corsOrigin  string
	maxUploadMB int64
	timeoutSec  int
	rateLimiter *RateLimiter
}

// Config holds server configuration.
type Config struct {
	Host            string
	Port            int
	CORSOrigin      string
	MaxUploadMB     int64
	TimeoutSec      int
	ModelPath       string
	DetectorConfig  detector.Config
	RateLimit       *RateLimitConfig
}

// HealthResponse is the /health payload.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Time    string `json:"time"`
}

// PartInfo describes one part of the loaded model.
type PartInfo struct {
	Name     string `json:"name"`
	Parent   int    `json:"parent"`
	Mixtures int    `json:"mixtures"`
}

// ModelResponse is the /model payload.
type ModelResponse struct {
	Name     string     `json:"name"`
	Mixtures int        `json:"mixtures"`
	Parts    []PartInfo `json:"parts"`
}

// DetectResponse wraps a detection result or an error.
type DetectResponse struct {
	Success bool             `json:"success"`
	Result  *detector.Result `json:"result,omitempty"`
	Error   string           `json:"error,omitempty"`
}

// NewServer creates a detection server, loading the part model from
// config.ModelPath.
func NewServer(config Config) (*Server, error) {
	m, err := model.Load(config.ModelPath)
	if err != nil {
		return nil, err
	}
	det, err := detector.New(m, config.DetectorConfig)
	if err != nil {
		return nil, err
	}
	return newServerWith(det, config), nil
}

// NewServerWithDetector creates a server around an existing detector.
func NewServerWithDetector(det detectorInterface, config Config) *Server {
	return newServerWith(det, config)
}

func newServerWith(det detectorInterface, config Config) *Server {
	s := &Server{
		detector:    det,
		corsOrigin:  config.CORSOrigin,
		maxUploadMB: config.MaxUploadMB,
		timeoutSec:  config.TimeoutSec,
	}
	if config.RateLimit != nil {
		s.rateLimiter = NewRateLimiter(*config.RateLimit)
	}
	return s
}

// SetupRoutes configures the HTTP routes.
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", s.corsMiddleware(s.healthHandler))
	mux.HandleFunc("/model", s.corsMiddleware(s.modelHandler))
	mux.HandleFunc("/detect", s.corsMiddleware(s.rateLimitMiddleware(s.detectHandler)))
	mux.HandleFunc("/ws", s.detectWebSocketHandler)
	mux.Handle("/metrics", promhttp.Handler())
}
