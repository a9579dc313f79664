package v1

import (
	"encoding/json"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/vmunix/ytarr/internal/source"
)

func (s *Server) getSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, settingsResponse(s.registry.Settings()))
}

func settingsResponse(st source.Settings) SettingsResponse {
	return SettingsResponse{
		ServerAddress:         st.ServerAddress,
		CheckIntervalMinutes:  st.CheckIntervalMinutes,
		MediaPath:             st.MediaPath,
		Paused:                st.Paused,
		MaintainManifestCache: st.MaintainManifestCache,
	}
}

func (s *Server) updateServerAddress(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ServerAddress string `json:"server_address"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	addr := req.ServerAddress
	if !strings.HasPrefix(addr, "http://") && !strings.HasPrefix(addr, "https://") {
		addr = "http://" + addr
	}
	if u, err := url.Parse(addr); err != nil || u.Host == "" {
		writeError(w, http.StatusBadRequest, "invalid server address")
		return
	}

	if err := s.registry.UpdateSettings(func(st *source.Settings) { st.ServerAddress = addr }); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, settingsResponse(s.registry.Settings()))
}

func (s *Server) updateCheckInterval(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CheckIntervalMinutes int `json:"check_interval_minutes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if req.CheckIntervalMinutes <= 0 {
		writeError(w, http.StatusBadRequest, "check interval must be positive")
		return
	}

	if err := s.registry.UpdateSettings(func(st *source.Settings) {
		st.CheckIntervalMinutes = req.CheckIntervalMinutes
	}); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, settingsResponse(s.registry.Settings()))
}

func (s *Server) updateMediaPath(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MediaPath string `json:"media_path"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	info, err := os.Stat(req.MediaPath)
	if err != nil || !info.IsDir() {
		writeError(w, http.StatusBadRequest, "directory does not exist")
		return
	}

	if err := s.registry.UpdateSettings(func(st *source.Settings) { st.MediaPath = req.MediaPath }); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, settingsResponse(s.registry.Settings()))
}

func (s *Server) togglePause(w http.ResponseWriter, r *http.Request) {
	if err := s.registry.UpdateSettings(func(st *source.Settings) { st.Paused = !st.Paused }); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	settings := s.registry.Settings()
	s.log.Info("background tasks toggled", "paused", settings.Paused)
	writeJSON(w, http.StatusOK, settingsResponse(settings))
}

func (s *Server) toggleMaintenance(w http.ResponseWriter, r *http.Request) {
	if err := s.registry.UpdateSettings(func(st *source.Settings) {
		st.MaintainManifestCache = !st.MaintainManifestCache
	}); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	settings := s.registry.Settings()
	s.log.Info("manifest maintenance toggled", "enabled", settings.MaintainManifestCache)
	writeJSON(w, http.StatusOK, settingsResponse(settings))
}
