// Package manifest resolves, filters and caches HLS manifests for playback.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// defaultTTL is used when a manifest carries no expiry marker.
const defaultTTL = 6 * time.Hour

// validitySlack invalidates entries this many seconds before their actual
// expiry, so a player never receives a manifest about to go stale mid-stream.
const validitySlack = 300

// Entry is one cached manifest. Entries are always overwritten whole.
type Entry struct {
	VideoID string
	Content string
	// Expires is epoch seconds, parsed from the manifest URLs or defaulted.
	Expires int64
}

// NewEntry builds an entry, extracting the expiry from the "expire/<epoch>/"
// marker YouTube embeds in segment URLs. Without a marker the entry lives
// for the default TTL from now.
func NewEntry(videoID, content string, now time.Time) Entry {
	e := Entry{VideoID: videoID, Content: content, Expires: now.Add(defaultTTL).Unix()}
	for _, line := range strings.Split(content, "\n") {
		_, rest, ok := strings.Cut(line, "expire/")
		if !ok {
			continue
		}
		raw, _, _ := strings.Cut(rest, "/")
		if exp, err := strconv.ParseInt(raw, 10, 64); err == nil {
			e.Expires = exp
			break
		}
	}
	return e
}

// Valid reports whether the entry can still be served.
func (e Entry) Valid(now time.Time) bool {
	return e.Expires > now.Unix()+validitySlack
}

// ExpiringWithin reports whether the entry expires inside the window; the
// cache sweep refreshes those ahead of demand.
func (e Entry) ExpiringWithin(now time.Time, window time.Duration) bool {
	return e.Expires < now.Add(window).Unix()
}

// Store keeps one plain-text <id>.m3u8 file per video.
type Store struct {
	dir string
}

// NewStore creates a store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the cache directory.
func (s *Store) Dir() string { return s.dir }

// Path returns the cache file path for a video id.
func (s *Store) Path(videoID string) string {
	return filepath.Join(s.dir, videoID+".m3u8")
}

// Load reads the cached entry for a video id.
func (s *Store) Load(videoID string, now time.Time) (Entry, error) {
	data, err := os.ReadFile(s.Path(videoID))
	if err != nil {
		return Entry{}, err
	}
	return NewEntry(videoID, string(data), now), nil
}

// Save overwrites the entry's cache file.
func (s *Store) Save(e Entry) error {
	if err := s.Ensure(); err != nil {
		return err
	}
	if err := os.WriteFile(s.Path(e.VideoID), []byte(e.Content), 0o644); err != nil {
		return fmt.Errorf("write manifest cache: %w", err)
	}
	return nil
}

// List returns the ids of all cached manifests.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read manifest cache: %w", err)
	}
	var ids []string
	for _, ent := range entries {
		name := ent.Name()
		if id, ok := strings.CutSuffix(name, ".m3u8"); ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// Ensure creates the cache directory and its .ignore file so the media
// server doesn't index the manifests as library content.
func (s *Store) Ensure() error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create manifest cache dir: %w", err)
	}
	ignore := filepath.Join(s.dir, ".ignore")
	if _, err := os.Stat(ignore); os.IsNotExist(err) {
		if err := os.WriteFile(ignore, nil, 0o644); err != nil {
			return fmt.Errorf("create .ignore: %w", err)
		}
	}
	return nil
}
