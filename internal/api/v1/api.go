// Package v1 implements the REST API and the playback boundary.
package v1

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os/exec"
	"strconv"

	"github.com/vmunix/ytarr/internal/manifest"
	"github.com/vmunix/ytarr/internal/source"
	"github.com/vmunix/ytarr/internal/sync"
)

// Streamer spawns the progressive-download fallback process.
type Streamer interface {
	StreamCommand(ctx context.Context, videoURL string) *exec.Cmd
}

// Server is the v1 API server.
type Server struct {
	registry *source.Registry
	engine   *sync.Engine
	resolver *manifest.Resolver
	streamer Streamer
	history  *sync.HistoryStore
	log      *slog.Logger
	version  string

	// baseCtx bounds background work spawned by manual sync triggers.
	baseCtx context.Context
}

// Config holds the server's collaborators.
type Config struct {
	Registry *source.Registry
	Engine   *sync.Engine
	Resolver *manifest.Resolver
	Streamer Streamer
	History  *sync.HistoryStore
	Logger   *slog.Logger
	Version  string
	BaseCtx  context.Context
}

// New creates a new v1 API server.
func New(cfg Config) *Server {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	baseCtx := cfg.BaseCtx
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	return &Server{
		registry: cfg.Registry,
		engine:   cfg.Engine,
		resolver: cfg.Resolver,
		streamer: cfg.Streamer,
		history:  cfg.History,
		log:      log,
		version:  cfg.Version,
		baseCtx:  baseCtx,
	}
}

// RegisterRoutes registers API routes on the given mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	// Playback boundary
	mux.HandleFunc("GET /stream/{id}", s.stream)

	// Sources
	mux.HandleFunc("GET /api/v1/sources", s.listSources)
	mux.HandleFunc("GET /api/v1/sources/find", s.findSource)
	mux.HandleFunc("POST /api/v1/sources", s.addSource)
	mux.HandleFunc("GET /api/v1/sources/{id}", s.getSource)
	mux.HandleFunc("PUT /api/v1/sources/{id}", s.updateSource)
	mux.HandleFunc("DELETE /api/v1/sources/{id}", s.deleteSource)
	mux.HandleFunc("POST /api/v1/sources/{id}/reset", s.resetSource)
	mux.HandleFunc("POST /api/v1/sources/{id}/sync", s.syncSource)

	// Settings
	mux.HandleFunc("GET /api/v1/settings", s.getSettings)
	mux.HandleFunc("PUT /api/v1/settings/server-address", s.updateServerAddress)
	mux.HandleFunc("PUT /api/v1/settings/check-interval", s.updateCheckInterval)
	mux.HandleFunc("PUT /api/v1/settings/media-path", s.updateMediaPath)
	mux.HandleFunc("POST /api/v1/settings/pause", s.togglePause)
	mux.HandleFunc("POST /api/v1/settings/maintenance", s.toggleMaintenance)

	// System
	mux.HandleFunc("GET /api/v1/history", s.listHistory)
	mux.HandleFunc("GET /api/v1/status", s.getStatus)
}

// Error response
type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(errorResponse{Error: message})
}

func writeJSON(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(data)
}

// writeSourceError maps registry errors to HTTP status codes.
func writeSourceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, source.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, source.ErrDuplicate),
		errors.Is(err, source.ErrInvalid),
		errors.Is(err, source.ErrKindMismatch):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// queryInt extracts an optional integer from the query string.
func queryInt(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return i
}
