package v1

import (
	"time"

	"github.com/vmunix/ytarr/internal/source"
)

// SourceRequest is the create/update payload for a tracked source.
type SourceRequest struct {
	Kind       string `json:"kind"`
	Name       string `json:"name"`
	Handle     string `json:"handle,omitempty"`
	PlaylistID string `json:"playlist_id,omitempty"`
	MaxVideos  *int   `json:"max_videos,omitempty"`
	MaxAgeDays *int   `json:"max_age_days,omitempty"`
}

func (r SourceRequest) descriptor() source.Descriptor {
	return source.Descriptor{
		Kind:       source.Kind(r.Kind),
		Name:       r.Name,
		Handle:     r.Handle,
		PlaylistID: r.PlaylistID,
		MaxVideos:  r.MaxVideos,
		MaxAgeDays: r.MaxAgeDays,
	}
}

// SourceResponse is one tracked source plus derived library state.
type SourceResponse struct {
	ID          string    `json:"id"`
	Kind        string    `json:"kind"`
	Name        string    `json:"name"`
	Handle      string    `json:"handle,omitempty"`
	PlaylistID  string    `json:"playlist_id,omitempty"`
	MaxVideos   *int      `json:"max_videos,omitempty"`
	MaxAgeDays  *int      `json:"max_age_days,omitempty"`
	LastChecked time.Time `json:"last_checked"`
	MediaDir    string    `json:"media_dir"`
	VideoCount  int       `json:"video_count"`
}

func sourceResponse(t source.Tracked, videoCount int) SourceResponse {
	return SourceResponse{
		ID:          t.ID,
		Kind:        string(t.Descriptor.Kind),
		Name:        t.Descriptor.Name,
		Handle:      t.Descriptor.Handle,
		PlaylistID:  t.Descriptor.PlaylistID,
		MaxVideos:   t.Descriptor.MaxVideos,
		MaxAgeDays:  t.Descriptor.MaxAgeDays,
		LastChecked: t.LastChecked,
		MediaDir:    t.MediaDir,
		VideoCount:  videoCount,
	}
}

// SettingsResponse mirrors the runtime settings document.
type SettingsResponse struct {
	ServerAddress         string `json:"server_address"`
	CheckIntervalMinutes  int    `json:"check_interval_minutes"`
	MediaPath             string `json:"media_path"`
	Paused                bool   `json:"background_tasks_paused"`
	MaintainManifestCache bool   `json:"maintain_manifest_cache"`
}

// StatusResponse reports daemon health.
type StatusResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Sources int    `json:"sources"`
	Paused  bool   `json:"background_tasks_paused"`
}
