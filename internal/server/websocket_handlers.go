package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocket upgrader with reasonable defaults.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow connections from any origin in development
		// In production, you should check against allowed origins
		return true
	},
}

// WebSocketDetectRequest is a detection request sent over WebSocket. Image
// bytes travel base64-encoded inside the JSON message.
type WebSocketDetectRequest struct {
	Type  string `json:"type"` // "detect"
	Image []byte `json:"image,omitempty"`
	Limit int    `json:"limit,omitempty"`
}

// WebSocketConnWriter is the write side of a WebSocket connection.
type WebSocketConnWriter interface {
	WriteMessage(messageType int, data []byte) error
}

// WebSocketDetectResponse is a detection response sent over WebSocket.
type WebSocketDetectResponse struct {
	Type      string      `json:"type"`
	Status    string      `json:"status"` // "processing", "completed", "error"
	Progress  float64     `json:"progress,omitempty"`
	Result    interface{} `json:"result,omitempty"`
	Error     string      `json:"error,omitempty"`
	ErrorType string      `json:"error_type,omitempty"`
	RequestID string      `json:"request_id,omitempty"`
}

// detectWebSocketHandler handles WebSocket connections for streaming detection.
func (s *Server) detectWebSocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade connection to WebSocket", "error", err)
		return
	}
	defer func() {
		_ = conn.Close()
	}()

	websocketConnections.Inc()
	defer websocketConnections.Dec()

	slog.Info("WebSocket connection established", "remote_addr", r.RemoteAddr)

	s.handleWebSocketConnection(conn)
}

// handleWebSocketConnection processes messages from a WebSocket connection.
func (s *Server) handleWebSocketConnection(conn *websocket.Conn) {
	// Read deadline prevents hanging connections
	_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	// Periodic pings keep the connection alive
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			if err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(10*time.Second)); err != nil {
				return
			}
		}
	}()

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Error("WebSocket error", "error", err)
			}
			break
		}

		websocketMessagesTotal.WithLabelValues("received").Inc()

		if messageType == websocket.TextMessage {
			s.handleWebSocketMessage(conn, data)
		}
	}
}

// handleWebSocketMessage processes one WebSocket message.
func (s *Server) handleWebSocketMessage(conn *websocket.Conn, data []byte) {
	var req WebSocketDetectRequest
	if err := json.Unmarshal(data, &req); err != nil {
		s.sendWebSocketError(conn, "invalid_request", fmt.Sprintf("Failed to parse request: %v", err))
		return
	}

	if req.Type != "detect" {
		s.sendWebSocketError(conn, "invalid_request", "Unsupported request type: "+req.Type)
		return
	}

	requestID := strconv.FormatInt(time.Now().UnixNano(), 10)

	s.sendWebSocketResponse(conn, WebSocketDetectResponse{
		Type:      "detect_response",
		Status:    "processing",
		Progress:  0.0,
		RequestID: requestID,
	})

	s.processWebSocketDetect(conn, req, requestID)
}

// processWebSocketDetect runs detection for one WebSocket request.
func (s *Server) processWebSocketDetect(conn *websocket.Conn, req WebSocketDetectRequest, requestID string) {
	if len(req.Image) == 0 {
		s.sendWebSocketError(conn, "invalid_request", "No image data provided")
		return
	}

	img, _, err := image.Decode(bytes.NewReader(req.Image))
	if err != nil {
		s.sendWebSocketError(conn, "processing_error", fmt.Sprintf("Failed to decode image: %v", err))
		return
	}

	s.sendWebSocketResponse(conn, WebSocketDetectResponse{
		Type:      "detect_response",
		Status:    "processing",
		Progress:  0.5,
		RequestID: requestID,
	})

	start := time.Now()
	res, err := s.detector.Detect(img)
	duration := time.Since(start)

	if err != nil {
		detectRequestsTotal.WithLabelValues("websocket", "error").Inc()
		s.sendWebSocketError(conn, "processing_error", fmt.Sprintf("Detection failed: %v", err))
		return
	}

	detectRequestsTotal.WithLabelValues("websocket", "success").Inc()
	detectProcessingDuration.WithLabelValues("websocket").Observe(duration.Seconds())
	detectionsFound.WithLabelValues("websocket").Observe(float64(len(res.Detections)))

	if req.Limit > 0 && req.Limit < len(res.Detections) {
		res.Detections = res.Detections[:req.Limit]
	}

	s.sendWebSocketResponse(conn, WebSocketDetectResponse{
		Type:      "detect_response",
		Status:    "completed",
		Progress:  1.0,
		Result:    res,
		RequestID: requestID,
	})
}

// sendWebSocketResponse sends a response message over WebSocket.
func (s *Server) sendWebSocketResponse(conn WebSocketConnWriter, response WebSocketDetectResponse) {
	data, err := json.Marshal(response)
	if err != nil {
		slog.Error("Failed to marshal WebSocket response", "error", err)
		return
	}

	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		slog.Error("Failed to send WebSocket message", "error", err)
		return
	}

	websocketMessagesTotal.WithLabelValues("sent").Inc()
}

// sendWebSocketError sends an error message over WebSocket.
func (s *Server) sendWebSocketError(conn WebSocketConnWriter, errorType, message string) {
	response := WebSocketDetectResponse{
		Type:      "error",
		Status:    "error",
		Error:     message,
		ErrorType: errorType,
	}

	data, err := json.Marshal(response)
	if err != nil {
		slog.Error("Failed to marshal WebSocket error response", "error", err)
		return
	}

	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		slog.Error("Failed to send WebSocket error message", "error", err)
		return
	}

	websocketMessagesTotal.WithLabelValues("sent").Inc()
}
