package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/pictor/internal/detector"
	"github.com/MeKo-Tech/pictor/internal/model"
)

// stubDetector returns a canned result, or fails when err is set.
type stubDetector struct {
	result *detector.Result
	err    error
}

func (d *stubDetector) Detect(img image.Image) (*detector.Result, error) {
	if d.err != nil {
		return nil, d.err
	}
	return d.result, nil
}

func (d *stubDetector) Model() *model.Model {
	return &model.Model{
		Name:      "stub",
		NMixtures: 2,
		Parts: []model.Part{
			{Name: "body", Parent: -1},
			{Name: "limb", Pos: 1, Parent: 0},
		},
	}
}

func testResult() *detector.Result {
	return &detector.Result{
		Width:  32,
		Height: 32,
		Detections: []detector.Detection{
			{Score: 4, Parts: []detector.PartPlacement{{Name: "body", X: 5, Y: 5}}},
			{Score: 2, Parts: []detector.PartPlacement{{Name: "body", X: 9, Y: 9}}},
		},
	}
}

func newTestServer(det detectorInterface) *Server {
	return NewServerWithDetector(det, Config{
		CORSOrigin:  "*",
		MaxUploadMB: 10,
		TimeoutSec:  5,
	})
}

// pngUpload builds a multipart body with a small PNG under the given field.
func pngUpload(t *testing.T, field string) (*bytes.Buffer, string) {
	t.Helper()
	var img bytes.Buffer
	require.NoError(t, png.Encode(&img, image.NewGray(image.Rect(0, 0, 16, 16))))

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile(field, "test.png")
	require.NoError(t, err)
	_, err = fw.Write(img.Bytes())
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &body, mw.FormDataContentType()
}

func TestHealthHandler(t *testing.T) {
	s := newTestServer(&stubDetector{result: testResult()})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.healthHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.NotEmpty(t, resp.Time)

	req = httptest.NewRequest(http.MethodPost, "/health", nil)
	rec = httptest.NewRecorder()
	s.healthHandler(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestModelHandler(t *testing.T) {
	s := newTestServer(&stubDetector{result: testResult()})

	req := httptest.NewRequest(http.MethodGet, "/model", nil)
	rec := httptest.NewRecorder()
	s.modelHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp ModelResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "stub", resp.Name)
	assert.Equal(t, 2, resp.Mixtures)
	require.Len(t, resp.Parts, 2)
	assert.Equal(t, "body", resp.Parts[0].Name)
	assert.Equal(t, -1, resp.Parts[0].Parent)
}

func TestDetectHandler(t *testing.T) {
	s := newTestServer(&stubDetector{result: testResult()})

	body, contentType := pngUpload(t, "image")
	req := httptest.NewRequest(http.MethodPost, "/detect", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	s.detectHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp DetectResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	require.NotNil(t, resp.Result)
	assert.Len(t, resp.Result.Detections, 2)
}

func TestDetectHandlerLimit(t *testing.T) {
	s := newTestServer(&stubDetector{result: testResult()})

	body, contentType := pngUpload(t, "image")
	req := httptest.NewRequest(http.MethodPost, "/detect?limit=1", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	s.detectHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp DetectResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Result)
	assert.Len(t, resp.Result.Detections, 1)
}

func TestDetectHandlerErrors(t *testing.T) {
	s := newTestServer(&stubDetector{result: testResult()})

	// Wrong method
	req := httptest.NewRequest(http.MethodGet, "/detect", nil)
	rec := httptest.NewRecorder()
	s.detectHandler(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	// Missing file field
	body, contentType := pngUpload(t, "picture")
	req = httptest.NewRequest(http.MethodPost, "/detect", body)
	req.Header.Set("Content-Type", contentType)
	rec = httptest.NewRecorder()
	s.detectHandler(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Corrupt image data
	var garbage bytes.Buffer
	mw := multipart.NewWriter(&garbage)
	fw, err := mw.CreateFormFile("image", "bad.png")
	require.NoError(t, err)
	_, err = fw.Write([]byte("not an image"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	req = httptest.NewRequest(http.MethodPost, "/detect", &garbage)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec = httptest.NewRecorder()
	s.detectHandler(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Detector failure
	s = newTestServer(&stubDetector{err: errors.New("engine exploded")})
	body, contentType = pngUpload(t, "image")
	req = httptest.NewRequest(http.MethodPost, "/detect", body)
	req.Header.Set("Content-Type", contentType)
	rec = httptest.NewRecorder()
	s.detectHandler(rec, req)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp DetectResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "engine exploded")
}

func TestSetupRoutes(t *testing.T) {
	s := newTestServer(&stubDetector{result: testResult()})
	mux := http.NewServeMux()
	s.SetupRoutes(mux)

	srv := httptest.NewServer(mux)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp2, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer func() { _ = resp2.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp2.StatusCode)
}
