package api

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"tubescribe/internal/pipeline"
)

// upgrader accepts any origin: the endpoint exists for browser
// extensions, whose origin is whatever page the user is on.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// wsFrame is one message on the progress stream.
type wsFrame struct {
	Type     string           `json:"type"` // "progress", "result", "error"
	Progress *pipeline.Event  `json:"progress,omitempty"`
	Result   *pipeline.Result `json:"result,omitempty"`
	Error    *apiError        `json:"error,omitempty"`
}

// wsConn wraps a connection with a write lock. gorilla connections do
// not support concurrent writers.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsConn) send(f wsFrame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(f)
}

// handleTranscribeWS runs one transcription per connection: the first
// client frame is the request, then stage progress streams out as it
// happens, and the final frame is the result or the error.
func (s *Server) handleTranscribeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		s.logger.Debug("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()
	c := &wsConn{conn: conn}

	// Browsers cannot set custom headers on websocket dials, so the
	// account id may ride in the request frame instead.
	var req struct {
		TranscriptionRequest
		AccountID string `json:"account_id"`
	}
	if err := conn.ReadJSON(&req); err != nil {
		c.send(wsFrame{Type: "error", Error: &apiError{
			Code: http.StatusBadRequest, Type: "invalid_input", Message: "invalid request frame",
		}})
		return
	}

	accountID := r.Header.Get(accountHeader)
	if accountID == "" {
		accountID = req.AccountID
	}

	res, err := s.pipe.Run(r.Context(), pipeline.Request{
		AccountID:     accountID,
		Input:         req.Input,
		WantSummary:   req.Summary,
		RawTranscript: []byte(req.RawTranscript),
		RawLanguage:   req.RawLanguage,
		RawGenerated:  req.RawGenerated,
		Progress: func(ev pipeline.Event) {
			if err := c.send(wsFrame{Type: "progress", Progress: &ev}); err != nil {
				s.logger.Debug("progress write failed", "error", err)
			}
		},
	})
	if err != nil {
		ae := mapError(err)
		if ae.Code == http.StatusInternalServerError {
			s.logger.Error("websocket transcription failed", "error", err)
		}
		c.send(wsFrame{Type: "error", Error: &ae})
		return
	}

	if err := c.send(wsFrame{Type: "result", Result: res}); err != nil {
		s.logger.Debug("result write failed", "error", err)
	}
}
