package server

import (
	"bytes"
	"encoding/json"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialTestWebSocket(t *testing.T, s *Server) (*websocket.Conn, func()) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(s.detectWebSocketHandler))
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	if resp != nil {
		_ = resp.Body.Close()
	}
	return conn, func() {
		_ = conn.Close()
		srv.Close()
	}
}

func readDetectResponse(t *testing.T, conn *websocket.Conn) WebSocketDetectResponse {
	t.Helper()
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var resp WebSocketDetectResponse
	require.NoError(t, json.Unmarshal(data, &resp))
	return resp
}

func TestWebSocketDetect(t *testing.T) {
	s := newTestServer(&stubDetector{result: testResult()})
	conn, cleanup := dialTestWebSocket(t, s)
	defer cleanup()

	var img bytes.Buffer
	require.NoError(t, png.Encode(&img, image.NewGray(image.Rect(0, 0, 8, 8))))

	req := WebSocketDetectRequest{Type: "detect", Image: img.Bytes()}
	data, err := json.Marshal(req)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, data))

	first := readDetectResponse(t, conn)
	assert.Equal(t, "processing", first.Status)
	assert.NotEmpty(t, first.RequestID)

	var final WebSocketDetectResponse
	for {
		final = readDetectResponse(t, conn)
		if final.Status != "processing" {
			break
		}
	}
	require.Equal(t, "completed", final.Status)
	assert.InDelta(t, 1.0, final.Progress, 1e-9)
	assert.NotNil(t, final.Result)
	assert.Equal(t, first.RequestID, final.RequestID)
}

func TestWebSocketDetectLimit(t *testing.T) {
	s := newTestServer(&stubDetector{result: testResult()})
	conn, cleanup := dialTestWebSocket(t, s)
	defer cleanup()

	var img bytes.Buffer
	require.NoError(t, png.Encode(&img, image.NewGray(image.Rect(0, 0, 8, 8))))

	data, err := json.Marshal(WebSocketDetectRequest{Type: "detect", Image: img.Bytes(), Limit: 1})
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, data))

	var final WebSocketDetectResponse
	for {
		final = readDetectResponse(t, conn)
		if final.Status != "processing" {
			break
		}
	}
	require.Equal(t, "completed", final.Status)

	// Result round-tripped through interface{}, re-marshal to inspect
	raw, err := json.Marshal(final.Result)
	require.NoError(t, err)
	var result struct {
		Detections []json.RawMessage `json:"detections"`
	}
	require.NoError(t, json.Unmarshal(raw, &result))
	assert.Len(t, result.Detections, 1)
}

func TestWebSocketInvalidRequests(t *testing.T) {
	s := newTestServer(&stubDetector{result: testResult()})
	conn, cleanup := dialTestWebSocket(t, s)
	defer cleanup()

	// Unsupported type
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"transcribe"}`)))
	resp := readDetectResponse(t, conn)
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, "invalid_request", resp.ErrorType)

	// Missing image data
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"detect"}`)))
	for {
		resp = readDetectResponse(t, conn)
		if resp.Status != "processing" {
			break
		}
	}
	assert.Equal(t, "error", resp.Status)

	// Unparseable JSON
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{nope")))
	resp = readDetectResponse(t, conn)
	assert.Equal(t, "error", resp.Status)
}
