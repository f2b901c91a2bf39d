// Package api implements the transcription HTTP API.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/mmcdole/gofeed"

	"tubescribe/internal/buildinfo"
	"tubescribe/internal/feed"
	"tubescribe/internal/pipeline"
	"tubescribe/internal/report"
	"tubescribe/internal/store"
	"tubescribe/internal/youtube"
)

// accountHeader carries the caller's account identity. Upstream
// billing infrastructure authenticates it; this service trusts it.
const accountHeader = "X-Account-ID"

// writeJSON encodes v as JSON to w, logging any errors at debug level.
// Errors here typically mean the client disconnected mid-response,
// which is not actionable but worth tracking for debugging.
func writeJSON(w http.ResponseWriter, v any, logger *slog.Logger) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Debug("failed to write JSON response", "error", err)
	}
}

// apiError is the wire form of a failure.
type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    int    `json:"code"`
	Hint    string `json:"hint,omitempty"`
}

// mapError translates pipeline failures onto the wire taxonomy.
func mapError(err error) apiError {
	switch {
	case errors.Is(err, pipeline.ErrInvalidInput):
		return apiError{Code: http.StatusBadRequest, Type: "invalid_input", Message: err.Error()}
	case errors.Is(err, pipeline.ErrQuotaExceeded):
		return apiError{Code: http.StatusPaymentRequired, Type: "quota_exceeded", Message: "free plan limit reached"}
	case errors.Is(err, youtube.ErrNoCaptions):
		return apiError{
			Code:    http.StatusNotFound,
			Type:    "no_captions",
			Message: err.Error(),
			Hint:    "the video may still be reachable from the browser; retry with a client-extracted raw_transcript payload",
		}
	case errors.Is(err, pipeline.ErrNoSegments):
		return apiError{Code: http.StatusUnprocessableEntity, Type: "no_segments", Message: err.Error()}
	case errors.Is(err, pipeline.ErrTimeout):
		return apiError{Code: http.StatusGatewayTimeout, Type: "timeout", Message: err.Error()}
	default:
		return apiError{Code: http.StatusInternalServerError, Type: "internal", Message: "internal error"}
	}
}

// Runner executes transcription requests. Satisfied by
// *pipeline.Pipeline.
type Runner interface {
	Run(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
}

// Server is the HTTP API server.
type Server struct {
	address string
	port    int
	pipe    Runner
	store   store.Store // nil when persistence is disabled
	feed    *feed.Client
	logger  *slog.Logger
	server  *http.Server
}

// NewServer creates a new API server. st may be nil.
func NewServer(address string, port int, pipe Runner, st store.Store, feedClient *feed.Client, logger *slog.Logger) *Server {
	if feedClient == nil {
		feedClient = feed.NewClient("")
	}
	return &Server{
		address: address,
		port:    port,
		pipe:    pipe,
		store:   st,
		feed:    feedClient,
		logger:  logger,
	}
}

// Handler builds the route table. Exposed separately from Start so
// tests can drive it through httptest.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Transcription endpoints
	mux.HandleFunc("POST /v1/transcriptions", s.handleTranscriptionCreate)
	mux.HandleFunc("GET /v1/transcriptions", s.handleTranscriptionList)
	mux.HandleFunc("GET /v1/transcriptions/{id}", s.handleTranscriptionGet)
	mux.HandleFunc("GET /v1/transcriptions/{id}/report", s.handleTranscriptionReport)

	// Stateless extraction endpoint, CORS-open for browser extensions
	mux.HandleFunc("GET /v1/videos/{id}/transcript", s.handleVideoTranscript)
	mux.HandleFunc("OPTIONS /v1/videos/{id}/transcript", s.handleVideoTranscriptPreflight)

	// Channel feed
	mux.HandleFunc("GET /v1/channels/{channelID}/videos", s.handleChannelVideos)

	// Progress streaming
	mux.HandleFunc("GET /v1/transcribe/ws", s.handleTranscribeWS)

	// Health endpoints
	mux.HandleFunc("GET /v1/version", s.handleVersion)
	mux.HandleFunc("GET /healthz", s.handleHealth)

	return s.withLogging(mux)
}

// Start begins serving HTTP requests.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.address, s.port),
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second, // a transcription run can take the full pipeline ceiling
	}

	addr := s.address
	if addr == "" {
		addr = "0.0.0.0"
	}
	s.logger.Info("starting API server", "address", addr, "port", s.port)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start),
		)
	})
}

func (s *Server) errorResponse(w http.ResponseWriter, ae apiError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(ae.Code)
	writeJSON(w, map[string]any{"error": ae}, s.logger)
}

// TranscriptionRequest is the transcription submission body.
type TranscriptionRequest struct {
	Input         string `json:"input"`
	Summary       bool   `json:"summary,omitempty"`
	RawTranscript string `json:"raw_transcript,omitempty"`
	RawLanguage   string `json:"raw_language,omitempty"`
	RawGenerated  bool   `json:"raw_generated,omitempty"`
}

func (s *Server) handleTranscriptionCreate(w http.ResponseWriter, r *http.Request) {
	var req TranscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, apiError{Code: http.StatusBadRequest, Type: "invalid_input", Message: "invalid request body"})
		return
	}

	res, err := s.pipe.Run(r.Context(), pipeline.Request{
		AccountID:     r.Header.Get(accountHeader),
		Input:         req.Input,
		WantSummary:   req.Summary,
		RawTranscript: []byte(req.RawTranscript),
		RawLanguage:   req.RawLanguage,
		RawGenerated:  req.RawGenerated,
	})
	if err != nil {
		ae := mapError(err)
		if ae.Code == http.StatusInternalServerError {
			s.logger.Error("transcription failed", "error", err)
		}
		s.errorResponse(w, ae)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, res, s.logger)
}

func (s *Server) handleTranscriptionGet(w http.ResponseWriter, r *http.Request) {
	rec, ae := s.loadTranscription(r)
	if ae != nil {
		s.errorResponse(w, *ae)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, rec, s.logger)
}

func (s *Server) handleTranscriptionList(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.errorResponse(w, apiError{Code: http.StatusNotFound, Type: "not_found", Message: "persistence is disabled"})
		return
	}
	accountID := r.Header.Get(accountHeader)
	if accountID == "" {
		s.errorResponse(w, apiError{Code: http.StatusBadRequest, Type: "invalid_input", Message: accountHeader + " header required"})
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			s.errorResponse(w, apiError{Code: http.StatusBadRequest, Type: "invalid_input", Message: "limit must be a positive integer"})
			return
		}
		limit = n
	}

	recs, err := s.store.ListTranscriptions(r.Context(), accountID, limit)
	if err != nil {
		s.logger.Error("list transcriptions failed", "account_id", accountID, "error", err)
		s.errorResponse(w, apiError{Code: http.StatusInternalServerError, Type: "internal", Message: "internal error"})
		return
	}
	if recs == nil {
		recs = []*store.Transcription{}
	}
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]any{"transcriptions": recs}, s.logger)
}

func (s *Server) handleTranscriptionReport(w http.ResponseWriter, r *http.Request) {
	rec, ae := s.loadTranscription(r)
	if ae != nil {
		s.errorResponse(w, *ae)
		return
	}

	md := report.Build(&pipeline.Result{
		VideoID:         rec.VideoID,
		Title:           rec.Title,
		Channel:         rec.Channel,
		ThumbnailURL:    rec.ThumbnailURL,
		Language:        rec.Language,
		Generated:       rec.Generated,
		PlainText:       rec.PlainText,
		TimestampedText: rec.TimestampedText,
		WordCount:       rec.WordCount,
		Summary:         rec.Summary,
		Elapsed:         time.Duration(rec.ElapsedMs) * time.Millisecond,
	}, report.Options{Timestamps: true, Now: rec.CreatedAt})

	if r.URL.Query().Get("format") == "html" {
		html, err := report.RenderHTML(md)
		if err != nil {
			s.logger.Error("render report html failed", "id", rec.ID, "error", err)
			s.errorResponse(w, apiError{Code: http.StatusInternalServerError, Type: "internal", Message: "internal error"})
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, html)
		return
	}

	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", report.Filename(rec.Title)+"_report.md"))
	fmt.Fprint(w, md)
}

// loadTranscription resolves the {id} path parameter against the
// store, mapping absence and disablement onto the error taxonomy.
func (s *Server) loadTranscription(r *http.Request) (*store.Transcription, *apiError) {
	if s.store == nil {
		return nil, &apiError{Code: http.StatusNotFound, Type: "not_found", Message: "persistence is disabled"}
	}
	id := r.PathValue("id")
	rec, err := s.store.GetTranscription(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, &apiError{Code: http.StatusNotFound, Type: "not_found", Message: "no transcription with id " + id}
	}
	if err != nil {
		s.logger.Error("get transcription failed", "id", id, "error", err)
		return nil, &apiError{Code: http.StatusInternalServerError, Type: "internal", Message: "internal error"}
	}
	return rec, nil
}

// handleVideoTranscript serves single-shot extraction with no account
// and no persistence. Responses are cacheable and CORS-open so the
// browser extension can call it from any page.
func (s *Server) handleVideoTranscript(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")

	res, err := s.pipe.Run(r.Context(), pipeline.Request{Input: r.PathValue("id")})
	if err != nil {
		ae := mapError(err)
		if ae.Code == http.StatusInternalServerError {
			s.logger.Error("video transcript failed", "error", err)
		}
		s.errorResponse(w, ae)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "public, max-age=300")
	writeJSON(w, res, s.logger)
}

func (s *Server) handleVideoTranscriptPreflight(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleChannelVideos(w http.ResponseWriter, r *http.Request) {
	channelID := r.PathValue("channelID")
	entries, err := s.feed.RecentVideos(r.Context(), channelID)
	if err != nil {
		var httpErr gofeed.HTTPError
		if errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusNotFound {
			s.errorResponse(w, apiError{Code: http.StatusBadRequest, Type: "invalid_input", Message: "unknown channel " + channelID})
			return
		}
		s.logger.Error("channel feed failed", "channel_id", channelID, "error", err)
		s.errorResponse(w, apiError{Code: http.StatusBadGateway, Type: "upstream_unavailable", Message: "channel feed unavailable"})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]any{
		"channel_id": channelID,
		"videos":     entries,
	}, s.logger)
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, buildinfo.Info(), s.logger)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]string{"status": "healthy"}, s.logger)
}
