// Package models resolves part-model and backbone files on disk.
package models

import (
	"errors"
	"os"
	"path/filepath"
)

// Model type categories for the organized directory structure.
const (
	TypeParts    = "parts"
	TypeBackbone = "backbone"
)

// Default models directory.
const DefaultModelsDir = "models"

// Environment variable for models directory override.
const EnvModelsDir = "PICTOR_MODELS_DIR"

// findProjectRoot finds the project root by looking for go.mod.
func findProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", errors.New("could not find project root (go.mod not found)")
}

// GetModelsDir returns the models directory path from various sources.
// Priority: 1. Explicit modelsDir parameter, 2. Environment variable,
// 3. Project root + default.
func GetModelsDir(modelsDir string) string {
	if modelsDir != "" {
		return modelsDir
	}

	if envDir := os.Getenv(EnvModelsDir); envDir != "" {
		return envDir
	}

	if projectRoot, err := findProjectRoot(); err == nil {
		return filepath.Join(projectRoot, DefaultModelsDir)
	}

	return DefaultModelsDir
}

// ResolveModelPath resolves a model filename to its full path. Files can live
// in a per-type subdirectory or flat in the models directory.
func ResolveModelPath(modelsDir, modelType, filename string) string {
	baseDir := GetModelsDir(modelsDir)

	if modelType != "" {
		organizedPath := filepath.Join(baseDir, modelType, filename)
		if _, err := os.Stat(organizedPath); err == nil {
			return organizedPath
		}
	}

	return filepath.Join(baseDir, filename)
}

// GetPartModelPath returns the path for a part-model description file.
func GetPartModelPath(modelsDir, filename string) string {
	return ResolveModelPath(modelsDir, TypeParts, filename)
}

// GetBackbonePath returns the path for an ONNX backbone file.
func GetBackbonePath(modelsDir, filename string) string {
	return ResolveModelPath(modelsDir, TypeBackbone, filename)
}

// ListModelFiles lists model description files found under the models
// directory, searching both organized and flat layouts.
func ListModelFiles(modelsDir string) ([]string, error) {
	baseDir := GetModelsDir(modelsDir)

	var files []string
	for _, dir := range []string{filepath.Join(baseDir, TypeParts), baseDir} {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			ext := filepath.Ext(e.Name())
			if ext == ".yaml" || ext == ".yml" {
				files = append(files, filepath.Join(dir, e.Name()))
			}
		}
	}
	if len(files) == 0 {
		return nil, errors.New("no model files found in " + baseDir)
	}
	return files, nil
}
