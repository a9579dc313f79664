package v1

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/vmunix/ytarr/internal/sync"
)

func (s *Server) listSources(w http.ResponseWriter, r *http.Request) {
	tracked := s.registry.Snapshot()

	out := make([]SourceResponse, 0, len(tracked))
	for _, t := range tracked {
		out = append(out, sourceResponse(t, countStubs(t.MediaDir)))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getSource(w http.ResponseWriter, r *http.Request) {
	t, ok := s.registry.Get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "source not found")
		return
	}
	writeJSON(w, http.StatusOK, sourceResponse(t, countStubs(t.MediaDir)))
}

// findSource resolves a source by exact id or fuzzy display-name match, so
// CLI users don't have to paste uuids.
func (s *Server) findSource(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "missing query parameter: q")
		return
	}

	t, ok := s.registry.FindByName(query)
	if !ok {
		writeError(w, http.StatusNotFound, "no source matching "+query)
		return
	}
	writeJSON(w, http.StatusOK, sourceResponse(t, countStubs(t.MediaDir)))
}

func (s *Server) addSource(w http.ResponseWriter, r *http.Request) {
	var req SourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	t, err := s.registry.Add(req.descriptor())
	if err != nil {
		writeSourceError(w, err)
		return
	}

	s.log.Info("source added", "id", t.ID, "name", t.Descriptor.Name)
	writeJSON(w, http.StatusCreated, sourceResponse(t, 0))
}

func (s *Server) updateSource(w http.ResponseWriter, r *http.Request) {
	var req SourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	t, err := s.registry.Update(r.PathValue("id"), req.descriptor())
	if err != nil {
		writeSourceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sourceResponse(t, countStubs(t.MediaDir)))
}

func (s *Server) deleteSource(w http.ResponseWriter, r *http.Request) {
	if err := s.registry.Remove(r.PathValue("id")); err != nil {
		writeSourceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) resetSource(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.registry.Reset(id); err != nil {
		writeSourceError(w, err)
		return
	}
	s.log.Info("source reset", "id", id)
	w.WriteHeader(http.StatusNoContent)
}

// syncSource starts an immediate sync cycle for one source. The cycle runs
// in the background; a scheduled rescan already in flight for the same
// source is not awaited, the manual run is independent.
func (s *Server) syncSource(w http.ResponseWriter, r *http.Request) {
	t, ok := s.registry.Get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "source not found")
		return
	}

	go func() {
		count, err := s.engine.Process(s.baseCtx, t)
		switch {
		case errors.Is(err, sync.ErrInFlight):
			s.log.Info("manual sync skipped, already running", "source", t.Descriptor.Name)
		case err != nil:
			s.log.Error("manual sync failed", "source", t.Descriptor.Name, "error", err)
		default:
			s.log.Info("manual sync finished", "source", t.Descriptor.Name, "new_videos", count)
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

func (s *Server) listHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusServiceUnavailable, "history not enabled")
		return
	}

	records, err := s.history.List(r.URL.Query().Get("source"), queryInt(r, "limit", 50))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) getStatus(w http.ResponseWriter, r *http.Request) {
	settings := s.registry.Settings()
	writeJSON(w, http.StatusOK, StatusResponse{
		Status:  "ok",
		Version: s.version,
		Sources: len(s.registry.Snapshot()),
		Paused:  settings.Paused,
	})
}

// countStubs counts .strm files across a source's season directories.
func countStubs(mediaDir string) int {
	seasons, err := os.ReadDir(mediaDir)
	if err != nil {
		return 0
	}

	count := 0
	for _, season := range seasons {
		if !season.IsDir() {
			continue
		}
		files, err := os.ReadDir(filepath.Join(mediaDir, season.Name()))
		if err != nil {
			continue
		}
		for _, f := range files {
			if strings.HasSuffix(f.Name(), ".strm") {
				count++
			}
		}
	}
	return count
}
