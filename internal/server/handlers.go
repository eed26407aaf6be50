package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	_ "golang.org/x/image/bmp"

	"github.com/MeKo-Tech/pictor/internal/version"
)

// healthHandler returns server health status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := HealthResponse{
		Status:  "healthy",
		Version: version.Version,
		Time:    time.Now().UTC().Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding health response: %v\n", err)
	}
}

// modelHandler returns information about the loaded part model.
func (s *Server) modelHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	m := s.detector.Model()
	response := ModelResponse{
		Name:     m.Name,
		Mixtures: m.NMixtures,
	}
	for _, p := range m.Parts {
		response.Parts = append(response.Parts, PartInfo{
			Name:     p.Name,
			Parent:   p.Parent,
			Mixtures: m.NMixtures,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding model response: %v\n", err)
	}
}

// detectHandler runs detection on an uploaded image.
func (s *Server) detectHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadMB*1024*1024)

	if err := r.ParseMultipartForm(s.maxUploadMB * 1024 * 1024); err != nil {
		s.writeErrorResponse(w, "Failed to parse form data", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		s.writeErrorResponse(w, "No image file provided", http.StatusBadRequest)
		return
	}
	defer func() { _ = file.Close() }()

	if header.Size > s.maxUploadMB*1024*1024 {
		s.writeErrorResponse(w, "File too large", http.StatusRequestEntityTooLarge)
		return
	}
	uploadSizeBytes.Observe(float64(header.Size))

	imageData, err := io.ReadAll(file)
	if err != nil {
		s.writeErrorResponse(w, "Failed to read image data", http.StatusInternalServerError)
		return
	}

	img, _, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		s.writeErrorResponse(w, "Invalid image format", http.StatusBadRequest)
		return
	}

	start := time.Now()
	res, err := s.detector.Detect(img)
	duration := time.Since(start)
	if err != nil {
		detectRequestsTotal.WithLabelValues("http", "error").Inc()
		s.writeErrorResponse(w, fmt.Sprintf("Detection failed: %v", err), http.StatusInternalServerError)
		return
	}

	detectRequestsTotal.WithLabelValues("http", "success").Inc()
	detectProcessingDuration.WithLabelValues("http").Observe(duration.Seconds())
	detectionsFound.WithLabelValues("http").Observe(float64(len(res.Detections)))

	// Optional limit on returned candidates.
	if limit := formOrQuery(r, "limit"); limit != "" {
		if n, err := strconv.Atoi(limit); err == nil && n >= 0 && n < len(res.Detections) {
			res.Detections = res.Detections[:n]
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(DetectResponse{Success: true, Result: res}); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding detect response: %v\n", err)
	}
}

// formOrQuery reads a parameter from the form body, falling back to the URL.
func formOrQuery(r *http.Request, key string) string {
	if v := r.FormValue(key); v != "" {
		return v
	}
	return r.URL.Query().Get(key)
}

// writeErrorResponse writes a JSON error response.
func (s *Server) writeErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := DetectResponse{
		Success: false,
		Error:   message,
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing error response: %v\n", err)
	}
}
