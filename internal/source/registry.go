package source

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hbollon/go-edlib"
)

// Settings are the runtime-mutable settings persisted alongside the sources.
type Settings struct {
	ServerAddress         string `json:"server_address"`
	CheckIntervalMinutes  int    `json:"check_interval_minutes"`
	MediaPath             string `json:"media_path"`
	Paused                bool   `json:"background_tasks_paused"`
	MaintainManifestCache bool   `json:"maintain_manifest_cache"`
}

// document is the full on-disk registry state. It is read once at startup and
// rewritten whole on every mutation; there are no partial updates.
type document struct {
	Settings Settings  `json:"settings"`
	Sources  []Tracked `json:"sources"`
}

// Registry is the shared mutable aggregate of tracked sources and settings.
// All reads work on copies taken under the read lock; every mutation holds
// the write lock only for the in-memory update plus the store rewrite, never
// across a network or subprocess call.
type Registry struct {
	mu   sync.RWMutex
	path string
	doc  document
}

// Load reads the registry document from path, creating it with the given
// default settings when it doesn't exist yet.
func Load(path string, defaults Settings) (*Registry, error) {
	r := &Registry{path: path}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		r.doc = document{Settings: defaults}
		if err := r.save(); err != nil {
			return nil, err
		}
		return r, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read registry: %w", err)
	}

	if err := json.Unmarshal(data, &r.doc); err != nil {
		return nil, fmt.Errorf("parse registry: %w", err)
	}
	return r, nil
}

// save rewrites the whole document. Callers must hold the write lock
// (or have exclusive access during Load).
func (r *Registry) save() error {
	data, err := json.MarshalIndent(r.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode registry: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return fmt.Errorf("create registry dir: %w", err)
	}
	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write registry: %w", err)
	}
	if err := os.Rename(tmp, r.path); err != nil {
		return fmt.Errorf("write registry: %w", err)
	}
	return nil
}

// Add registers a new source and returns it. The media directory is derived
// from the handle or playlist id under the configured media path.
func (r *Registry) Add(d Descriptor) (Tracked, error) {
	if err := d.Validate(); err != nil {
		return Tracked{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, t := range r.doc.Sources {
		if t.Descriptor.Kind == d.Kind && t.Descriptor.HandleOrID() == d.HandleOrID() {
			return Tracked{}, fmt.Errorf("%w: %s", ErrDuplicate, d.HandleOrID())
		}
	}

	t := Tracked{
		ID:          uuid.NewString(),
		Descriptor:  d,
		LastChecked: d.InitialWatermark(time.Now()),
		MediaDir:    filepath.Join(r.doc.Settings.MediaPath, d.HandleOrID()),
	}
	r.doc.Sources = append(r.doc.Sources, t)

	if err := r.save(); err != nil {
		return Tracked{}, err
	}
	return t, nil
}

// Update replaces a source's descriptor. The kind is immutable; the ID,
// watermark and media directory are preserved across edits.
func (r *Registry) Update(id string, d Descriptor) (Tracked, error) {
	if err := d.Validate(); err != nil {
		return Tracked{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.index(id)
	if i < 0 {
		return Tracked{}, ErrNotFound
	}
	if r.doc.Sources[i].Descriptor.Kind != d.Kind {
		return Tracked{}, ErrKindMismatch
	}

	r.doc.Sources[i].Descriptor = d
	if err := r.save(); err != nil {
		return Tracked{}, err
	}
	return r.doc.Sources[i], nil
}

// Remove deletes a source and its media directory.
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.index(id)
	if i < 0 {
		return ErrNotFound
	}

	dir := r.doc.Sources[i].MediaDir
	r.doc.Sources = append(r.doc.Sources[:i], r.doc.Sources[i+1:]...)
	if err := r.save(); err != nil {
		return err
	}

	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("remove media dir: %w", err)
	}
	return nil
}

// Reset rewinds a source's watermark to its initial value and deletes its
// media directory so the next sync rebuilds the artifact tree from scratch.
func (r *Registry) Reset(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.index(id)
	if i < 0 {
		return ErrNotFound
	}

	t := &r.doc.Sources[i]
	t.LastChecked = t.Descriptor.InitialWatermark(time.Now())

	if err := os.RemoveAll(t.MediaDir); err != nil {
		return fmt.Errorf("remove media dir: %w", err)
	}
	return r.save()
}

// AdvanceWatermark moves a source's watermark forward to t. A missing id is
// not an error: the source was deleted while its scan was in flight and the
// completion simply has nothing to record. The watermark never regresses
// through this path; Reset is the only way back.
func (r *Registry) AdvanceWatermark(id string, t time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.index(id)
	if i < 0 {
		return nil
	}
	if !t.After(r.doc.Sources[i].LastChecked) {
		return nil
	}

	r.doc.Sources[i].LastChecked = t
	return r.save()
}

// Get returns a copy of the source with the given id.
func (r *Registry) Get(id string) (Tracked, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i := r.index(id)
	if i < 0 {
		return Tracked{}, false
	}
	return r.doc.Sources[i], true
}

// Snapshot returns a point-in-time copy of all tracked sources. Scans
// operate on this copy with the lock released.
func (r *Registry) Snapshot() []Tracked {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Tracked, len(r.doc.Sources))
	copy(out, r.doc.Sources)
	return out
}

// Settings returns a copy of the current runtime settings.
func (r *Registry) Settings() Settings {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.doc.Settings
}

// UpdateSettings applies fn to the settings under the write lock and
// persists the result.
func (r *Registry) UpdateSettings(fn func(*Settings)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	fn(&r.doc.Settings)
	return r.save()
}

// minMatchScore is the Jaro-Winkler similarity below which FindByName
// reports no match.
const minMatchScore = 0.7

// FindByName resolves a source by fuzzy-matching display names, so CLI users
// can say "sync tech talks" instead of pasting a uuid. Exact id matches win
// outright.
func (r *Registry) FindByName(query string) (Tracked, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	best := -1
	bestScore := float32(0)
	for i, t := range r.doc.Sources {
		if t.ID == query {
			return t, true
		}
		score := edlib.JaroWinklerSimilarity(normalizeName(query), normalizeName(t.Descriptor.Name))
		if score > bestScore {
			best, bestScore = i, score
		}
	}

	if best < 0 || bestScore < minMatchScore {
		return Tracked{}, false
	}
	return r.doc.Sources[best], true
}

func (r *Registry) index(id string) int {
	for i, t := range r.doc.Sources {
		if t.ID == id {
			return i
		}
	}
	return -1
}
