// Package source defines tracked channels/playlists and the registry that owns them.
package source

import (
	"fmt"
	"strings"
	"time"
)

// Kind discriminates the two source variants.
type Kind string

const (
	KindChannel  Kind = "channel"
	KindPlaylist Kind = "playlist"
)

// Descriptor describes what a tracked source points at and which constraints
// apply to it. Channel fields and Playlist fields are mutually exclusive;
// Kind decides which set is meaningful.
type Descriptor struct {
	Kind Kind   `json:"kind"`
	Name string `json:"name"`

	// Channel only
	Handle     string `json:"handle,omitempty"`
	MaxVideos  *int   `json:"max_videos,omitempty"`
	MaxAgeDays *int   `json:"max_age_days,omitempty"`

	// Playlist only
	PlaylistID string `json:"playlist_id,omitempty"`
}

// Tracked is one registered source. ID is stable across descriptor edits;
// LastChecked is the sync watermark and MediaDir is the artifact tree root
// owned exclusively by this source.
type Tracked struct {
	ID          string     `json:"id"`
	Descriptor  Descriptor `json:"source"`
	LastChecked time.Time  `json:"last_checked"`
	MediaDir    string     `json:"media_dir"`
}

// Validate checks the descriptor for the fields its kind requires.
func (d Descriptor) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalid)
	}
	switch d.Kind {
	case KindChannel:
		if d.Handle == "" {
			return fmt.Errorf("%w: channel handle is required", ErrInvalid)
		}
		return nil
	case KindPlaylist:
		if d.PlaylistID == "" {
			return fmt.Errorf("%w: playlist id is required", ErrInvalid)
		}
		return nil
	}
	return fmt.Errorf("%w: unknown source kind %q", ErrInvalid, d.Kind)
}

// HandleOrID returns the upstream identifier: the channel handle or the
// playlist id. Also used as the media directory name.
func (d Descriptor) HandleOrID() string {
	switch d.Kind {
	case KindChannel:
		return d.Handle
	case KindPlaylist:
		return d.PlaylistID
	}
	panic("source: unknown kind " + string(d.Kind))
}

// VideosURL returns the listing URL for the source.
func (d Descriptor) VideosURL() string {
	switch d.Kind {
	case KindChannel:
		return fmt.Sprintf("https://www.youtube.com/@%s/videos", strings.TrimPrefix(d.Handle, "@"))
	case KindPlaylist:
		return fmt.Sprintf("https://www.youtube.com/playlist?list=%s", d.PlaylistID)
	}
	panic("source: unknown kind " + string(d.Kind))
}

// CollectionURL returns the URL used for collection-level metadata (images).
func (d Descriptor) CollectionURL() string {
	switch d.Kind {
	case KindChannel:
		return fmt.Sprintf("https://www.youtube.com/@%s", strings.TrimPrefix(d.Handle, "@"))
	case KindPlaylist:
		return fmt.Sprintf("https://www.youtube.com/playlist?list=%s", d.PlaylistID)
	}
	panic("source: unknown kind " + string(d.Kind))
}

// InitialWatermark computes the watermark a new or freshly reset source
// starts from: channels with a max age bound start that far back, everything
// else starts from the zero time so the first sync fetches all history.
func (d Descriptor) InitialWatermark(now time.Time) time.Time {
	switch d.Kind {
	case KindChannel:
		if d.MaxAgeDays != nil {
			return now.AddDate(0, 0, -*d.MaxAgeDays)
		}
		return time.Time{}
	case KindPlaylist:
		return time.Time{}
	}
	panic("source: unknown kind " + string(d.Kind))
}

// VideoURL builds the canonical watch URL for a single video id.
func VideoURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}
