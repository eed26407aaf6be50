// Package config defines the application configuration and loads it from
// files, environment variables and command-line flags.
package config

import (
	"fmt"
	"strings"

	"github.com/MeKo-Tech/pictor/internal/detector"
	"github.com/MeKo-Tech/pictor/internal/onnx"
	"github.com/MeKo-Tech/pictor/internal/pyramid"
)

// Config represents the complete configuration for the pictor application.
// It covers all commands (detect, serve, bench) and supports loading from
// configuration files, environment variables, and command-line flags.
type Config struct {
	// Global settings
	ModelPath string `mapstructure:"model_path" yaml:"model_path" json:"model_path"`
	LogLevel  string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose   bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	// Detection settings
	Detector DetectorConfig `mapstructure:"detector" yaml:"detector" json:"detector"`

	// Feature pyramid settings
	Pyramid PyramidConfig `mapstructure:"pyramid" yaml:"pyramid" json:"pyramid"`

	// ONNX heatmap backbone settings
	ONNX ONNXConfig `mapstructure:"onnx" yaml:"onnx" json:"onnx"`

	// Server configuration (for serve command)
	Server ServerConfig `mapstructure:"server" yaml:"server" json:"server"`
}

// DetectorConfig contains part detection settings.
type DetectorConfig struct {
	Threshold     float32 `mapstructure:"threshold" yaml:"threshold" json:"threshold"`
	MaxCandidates int     `mapstructure:"max_candidates" yaml:"max_candidates" json:"max_candidates"`
	Workers       int     `mapstructure:"workers" yaml:"workers" json:"workers"`
}

// PyramidConfig contains feature pyramid settings.
type PyramidConfig struct {
	Interval int `mapstructure:"interval" yaml:"interval" json:"interval"`
	Levels   int `mapstructure:"levels" yaml:"levels" json:"levels"`
	MinSize  int `mapstructure:"min_size" yaml:"min_size" json:"min_size"`
}

// ONNXConfig contains heatmap backbone settings. When Enabled is false the
// detector correlates model filters over the pyramid instead.
type ONNXConfig struct {
	Enabled     bool   `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	ModelPath   string `mapstructure:"model_path" yaml:"model_path" json:"model_path"`
	LibraryPath string `mapstructure:"library_path" yaml:"library_path" json:"library_path"`
	InputName   string `mapstructure:"input_name" yaml:"input_name" json:"input_name"`
	OutputName  string `mapstructure:"output_name" yaml:"output_name" json:"output_name"`
	NumThreads  int    `mapstructure:"num_threads" yaml:"num_threads" json:"num_threads"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host            string `mapstructure:"host" yaml:"host" json:"host"`
	Port            int    `mapstructure:"port" yaml:"port" json:"port"`
	CORSOrigin      string `mapstructure:"cors_origin" yaml:"cors_origin" json:"cors_origin"`
	MaxUploadMB     int    `mapstructure:"max_upload_mb" yaml:"max_upload_mb" json:"max_upload_mb"`
	TimeoutSec      int    `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	det := detector.DefaultConfig()
	pyr := pyramid.DefaultConfig()
	return Config{
		LogLevel: "info",
		Verbose:  false,
		Detector: DetectorConfig{
			Threshold:     det.Threshold,
			MaxCandidates: det.MaxCandidates,
			Workers:       det.Workers,
		},
		Pyramid: PyramidConfig{
			Interval: pyr.Interval,
			Levels:   pyr.Levels,
			MinSize:  pyr.MinSize,
		},
		ONNX: ONNXConfig{
			Enabled:    false,
			InputName:  "image",
			OutputName: "heatmaps",
			NumThreads: 0,
		},
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8080,
			CORSOrigin:      "*",
			MaxUploadMB:     50,
			TimeoutSec:      30,
			ShutdownTimeout: 10,
		},
	}
}

// Validate checks the configuration and returns the first problem found.
func (c *Config) Validate() error {
	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLogLevels, c.LogLevel) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)",
			c.LogLevel, strings.Join(validLogLevels, ", "))
	}

	if c.Detector.MaxCandidates < 0 {
		return fmt.Errorf("invalid detector max candidates: %d (must not be negative)", c.Detector.MaxCandidates)
	}
	if c.Pyramid.Interval <= 0 {
		return fmt.Errorf("invalid pyramid interval: %d (must be positive)", c.Pyramid.Interval)
	}
	if c.Pyramid.Levels <= 0 {
		return fmt.Errorf("invalid pyramid levels: %d (must be positive)", c.Pyramid.Levels)
	}
	if c.Pyramid.MinSize <= 0 {
		return fmt.Errorf("invalid pyramid min size: %d (must be positive)", c.Pyramid.MinSize)
	}

	if c.ONNX.Enabled {
		if c.ONNX.ModelPath == "" {
			return fmt.Errorf("onnx backbone enabled but no model path set")
		}
		if c.ONNX.NumThreads < 0 {
			return fmt.Errorf("invalid onnx num threads: %d (must not be negative)", c.ONNX.NumThreads)
		}
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be between 1 and 65535)", c.Server.Port)
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("invalid max upload size: %d (must be positive)", c.Server.MaxUploadMB)
	}
	if c.Server.TimeoutSec <= 0 {
		return fmt.Errorf("invalid timeout: %d (must be positive)", c.Server.TimeoutSec)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("invalid shutdown timeout: %d (must be positive)", c.Server.ShutdownTimeout)
	}

	return nil
}

// ToDetectorConfig converts to the detector package's configuration.
func (c *Config) ToDetectorConfig() detector.Config {
	return detector.Config{
		Threshold:     c.Detector.Threshold,
		MaxCandidates: c.Detector.MaxCandidates,
		Workers:       c.Detector.Workers,
		Pyramid:       c.ToPyramidConfig(),
	}
}

// ToPyramidConfig converts to the pyramid package's configuration.
func (c *Config) ToPyramidConfig() pyramid.Config {
	return pyramid.Config{
		Interval: c.Pyramid.Interval,
		Levels:   c.Pyramid.Levels,
		MinSize:  c.Pyramid.MinSize,
	}
}

// ToONNXConfig converts to the onnx package's configuration.
func (c *Config) ToONNXConfig() onnx.Config {
	return onnx.Config{
		ModelPath:   c.ONNX.ModelPath,
		LibraryPath: c.ONNX.LibraryPath,
		InputName:   c.ONNX.InputName,
		OutputName:  c.ONNX.OutputName,
		NumThreads:  c.ONNX.NumThreads,
	}
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
