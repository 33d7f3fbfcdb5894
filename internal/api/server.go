// Package api exposes the game over HTTP: lifecycle commands, mode and voice
// input, snapshots and a WebSocket snapshot stream.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/tomz197/swarmship/internal/ai"
	"github.com/tomz197/swarmship/internal/feed"
	"github.com/tomz197/swarmship/internal/input"
	"github.com/tomz197/swarmship/internal/loop"
	"github.com/tomz197/swarmship/internal/loop/config"
	"github.com/tomz197/swarmship/internal/loop/server"
	"github.com/tomz197/swarmship/internal/mode"
)

// Error types of the JSON error body.
const (
	ErrTypeInvalidRequest = "invalid_request"
	ErrTypeInvalidMode    = "invalid_mode"
	ErrTypeBusy           = "busy"
	ErrTypeUnavailable    = "unavailable"
	ErrTypeInternal       = "internal"
)

// Game is what the API drives. *server.Server implements it.
type Game interface {
	Start() error
	Pause() error
	Reset() error
	SetMode(m mode.Mode) error
	Resize(width, height int) error
	Snapshot() *loop.Snapshot
	Subscribe() (<-chan *loop.Snapshot, func(), error)
	Controls() *input.Controls
}

var _ Game = (*server.Server)(nil)

// ErrorResponse is the body of every 4xx and 5xx answer.
type ErrorResponse struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Server handles HTTP requests.
type Server struct {
	game      Game
	logger    *log.Logger
	upgrader  websocket.Upgrader
	interval  time.Duration
	startTime time.Time
}

// NewServer creates an API server for game.
func NewServer(game Game, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{
		game:   game,
		logger: logger.WithPrefix("api"),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		interval:  config.StreamInterval,
		startTime: time.Now(),
	}
}

// Routes sets up the HTTP routes.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/game/start", s.handleCommand(s.game.Start))
		r.Post("/game/pause", s.handleCommand(s.game.Pause))
		r.Post("/game/reset", s.handleCommand(s.game.Reset))
		r.Put("/game/mode", s.handleMode)
		r.Put("/game/size", s.handleResize)
		r.Post("/voice", s.handleVoice)
		r.Get("/snapshot", s.handleSnapshot)
		r.Get("/stream", s.handleStream)
		r.Post("/ai/action", s.handleAIAction)
	})

	return r
}

// writeJSON writes a JSON response with proper headers.
func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("encode response", "err", err)
	}
}

// writeError writes a structured error response.
func (s *Server) writeError(w http.ResponseWriter, status int, errType, message string) {
	s.writeJSON(w, status, ErrorResponse{Type: errType, Message: message})
}

// commandError maps a queueing failure to a response.
func (s *Server) commandError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, server.ErrQueueFull):
		s.writeError(w, http.StatusServiceUnavailable, ErrTypeBusy, err.Error())
	case errors.Is(err, mode.ErrUnknownMode):
		s.writeError(w, http.StatusBadRequest, ErrTypeInvalidMode, err.Error())
	case errors.Is(err, loop.ErrInvalidBounds):
		s.writeError(w, http.StatusBadRequest, ErrTypeInvalidRequest, err.Error())
	default:
		s.writeError(w, http.StatusInternalServerError, ErrTypeInternal, err.Error())
	}
}

// HealthResponse reports liveness and the state of the input feeds.
type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime"`
	Tick    uint64        `json:"tick"`
	Running bool          `json:"running"`
	Mode    string        `json:"mode"`
	Feeds   []feed.Status `json:"feeds"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	snap := s.game.Snapshot()

	status := "ok"
	for _, f := range snap.Feeds {
		if f.State == feed.StateStopped {
			status = "degraded"
		}
	}

	s.writeJSON(w, http.StatusOK, HealthResponse{
		Status:  status,
		Uptime:  time.Since(s.startTime).Truncate(time.Second).String(),
		Tick:    snap.Tick,
		Running: snap.Running,
		Mode:    snap.ModeName,
		Feeds:   snap.Feeds,
	})
}

// CommandResponse acknowledges a queued command.
type CommandResponse struct {
	Status string `json:"status"`
}

func (s *Server) handleCommand(send func() error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := send(); err != nil {
			s.commandError(w, err)
			return
		}
		s.writeJSON(w, http.StatusAccepted, CommandResponse{Status: "queued"})
	}
}

// ModeRequest selects a mode by number.
type ModeRequest struct {
	Mode int `json:"mode"`
}

func (s *Server) handleMode(w http.ResponseWriter, r *http.Request) {
	var req ModeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, ErrTypeInvalidRequest, "invalid JSON body")
		return
	}

	m, err := mode.Parse(req.Mode)
	if err != nil {
		s.logger.Warn("mode change rejected", "mode", req.Mode)
		s.writeError(w, http.StatusBadRequest, ErrTypeInvalidMode, err.Error())
		return
	}

	if err := s.game.SetMode(m); err != nil {
		s.commandError(w, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, CommandResponse{Status: "queued"})
}

// ResizeRequest changes the simulation bounds.
type ResizeRequest struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (s *Server) handleResize(w http.ResponseWriter, r *http.Request) {
	var req ResizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, ErrTypeInvalidRequest, "invalid JSON body")
		return
	}
	if err := s.game.Resize(req.Width, req.Height); err != nil {
		s.commandError(w, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, CommandResponse{Status: "queued"})
}

// VoiceRequest carries a transcript.
type VoiceRequest struct {
	Transcript string `json:"transcript"`
}

// VoiceResponse tells whether the transcript named a mode.
type VoiceResponse struct {
	Matched bool   `json:"matched"`
	Mode    string `json:"mode,omitempty"`
}

func (s *Server) handleVoice(w http.ResponseWriter, r *http.Request) {
	var req VoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, ErrTypeInvalidRequest, "invalid JSON body")
		return
	}
	if req.Transcript == "" {
		s.writeError(w, http.StatusBadRequest, ErrTypeInvalidRequest, "transcript is required")
		return
	}

	resp := VoiceResponse{}
	if m, ok := s.game.Controls().OnVoiceCommand(req.Transcript); ok {
		resp.Matched = true
		resp.Mode = m.String()
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.game.Snapshot())
}

func (s *Server) handleAIAction(w http.ResponseWriter, r *http.Request) {
	var req ai.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, ErrTypeInvalidRequest, "invalid JSON body")
		return
	}
	s.writeJSON(w, http.StatusOK, ai.Response{Action: ai.Decide(req.Observation)})
}
