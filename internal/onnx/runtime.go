// Package onnx wraps ONNX Runtime as an alternative response source: a CNN
// backbone emitting one heatmap per (part, mixture), consumed by the
// message-passing engine in place of filter correlation.
package onnx

import (
	"fmt"
	"os"
	"runtime"

	"github.com/yalue/onnxruntime_go"
)

const (
	// EnvLibraryPath overrides the ONNX Runtime shared library location.
	EnvLibraryPath = "PICTOR_ONNX_LIB"

	libLinux   = "libonnxruntime.so"
	libDarwin  = "libonnxruntime.dylib"
	libWindows = "onnxruntime.dll"
)

// libraryName returns the platform's shared library file name.
func libraryName() (string, error) {
	switch runtime.GOOS {
	case "linux":
		return libLinux, nil
	case "darwin":
		return libDarwin, nil
	case "windows":
		return libWindows, nil
	default:
		return "", fmt.Errorf("unsupported platform for ONNX Runtime: %s", runtime.GOOS)
	}
}

// initEnvironment points onnxruntime_go at the shared library and initializes
// the runtime environment once per process.
func initEnvironment(libraryPath string) error {
	if onnxruntime_go.IsInitialized() {
		return nil
	}
	path := libraryPath
	if path == "" {
		path = os.Getenv(EnvLibraryPath)
	}
	if path == "" {
		name, err := libraryName()
		if err != nil {
			return err
		}
		// Rely on the system loader search path.
		path = name
	}
	onnxruntime_go.SetSharedLibraryPath(path)
	if err := onnxruntime_go.InitializeEnvironment(); err != nil {
		return fmt.Errorf("initializing ONNX Runtime: %w", err)
	}
	return nil
}
