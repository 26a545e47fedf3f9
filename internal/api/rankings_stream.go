// Package api provides the HTTP handlers of the ranking server and its
// standard JSON error envelope.
package api

import (
	"bytes"
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/onnwee/skyrank/internal/catalog"
	"github.com/onnwee/skyrank/internal/middleware"
	"github.com/onnwee/skyrank/internal/pipeline"
)

// Stream message types.
const (
	StreamMessageProgress = "progress"
	StreamMessageResult   = "result"
	StreamMessageError    = "error"
)

// ProgressEvery throttles progress messages to one per this many generations.
const ProgressEvery = 10

const (
	streamRequestTimeout = 10 * time.Second
	streamWriteTimeout   = 10 * time.Second
)

// StreamMessage is one server message on a ranking stream.
type StreamMessage struct {
	Type        string           `json:"type"`
	Category    catalog.Category `json:"category,omitempty"`
	Generation  int              `json:"generation,omitempty"`
	BestFitness float64          `json:"best_fitness,omitempty"`
	Result      *pipeline.Result `json:"result,omitempty"`
	Error       *ErrorDetail     `json:"error,omitempty"`
}

// Clients without an Origin header are accepted; browser clients must be
// same-origin.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

// streamConn serializes writes from the fusion workers and the handler.
type streamConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *streamConn) send(msg StreamMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
	return c.conn.WriteJSON(msg)
}

func (c *streamConn) close(code int, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, text), time.Now().Add(time.Second))
	_ = c.conn.Close()
}

// Stream handles GET /v1/rankings/stream. The client sends one
// RankingRequest; the server answers with progress messages, then a result
// or error message, then closes. Closing the connection early cancels the
// run.
func (h *RankingHandlers) Stream(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		h.logger.WarnContext(r.Context(), "failed to upgrade websocket connection", "error", err)
		return
	}
	conn.SetReadLimit(maxRequestBytes)
	sc := &streamConn{conn: conn}

	// The hijacked request context is not cancelled on disconnect; the
	// reader goroutine below does that.
	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	defer cancel()

	requestID := middleware.GetRequestID(ctx)
	logger := h.logger.With("request_id", requestID)

	_ = conn.SetReadDeadline(time.Now().Add(streamRequestTimeout))
	_, data, err := conn.ReadMessage()
	if err != nil {
		logger.InfoContext(ctx, "ranking stream closed before a request was received", "error", err)
		_ = conn.Close()
		return
	}
	req, err := decodeRankingRequest(bytes.NewReader(data))
	if err != nil {
		h.streamError(ctx, sc, err)
		return
	}
	_ = conn.SetReadDeadline(time.Time{})

	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					logger.WarnContext(ctx, "ranking stream closed unexpectedly", "error", err)
				}
				return
			}
		}
	}()

	logger.InfoContext(ctx, "ranking stream started")
	progress := func(category catalog.Category, generation int, best float64) {
		if (generation+1)%ProgressEvery != 0 {
			return
		}
		if err := sc.send(StreamMessage{
			Type:        StreamMessageProgress,
			Category:    category,
			Generation:  generation + 1,
			BestFitness: best,
		}); err != nil {
			cancel()
		}
	}

	res, err := h.run(ctx, req, progress)
	if err != nil {
		if ctx.Err() != nil {
			logger.InfoContext(ctx, "ranking stream cancelled by client")
			_ = conn.Close()
			return
		}
		h.streamError(ctx, sc, err)
		return
	}

	if err := sc.send(StreamMessage{Type: StreamMessageResult, Result: res}); err != nil {
		logger.WarnContext(ctx, "failed to send ranking result", "error", err)
		_ = conn.Close()
		return
	}
	sc.close(websocket.CloseNormalClosure, "done")
}

func (h *RankingHandlers) streamError(ctx context.Context, sc *streamConn, err error) {
	status, code, message := classifyRunError(err)
	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(ctx, "ranking stream failed", "error", err)
	}
	_ = sc.send(StreamMessage{Type: StreamMessageError, Error: &ErrorDetail{Code: code, Message: message}})
	closeCode := websocket.ClosePolicyViolation
	if status >= http.StatusInternalServerError {
		closeCode = websocket.CloseInternalServerErr
	}
	sc.close(closeCode, code)
}
