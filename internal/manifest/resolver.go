package manifest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/vmunix/ytarr/internal/source"
	"github.com/vmunix/ytarr/internal/ytdlp"
)

// ErrFallback signals that no manifest could be produced and the caller
// should degrade to direct progressive streaming. Every resolution failure
// maps onto it: the playback boundary's contract is "always answer".
var ErrFallback = errors.New("manifest unavailable, fall back to direct stream")

// Inspector provides single-video metadata with manifest-discovery hints.
type Inspector interface {
	Inspect(ctx context.Context, videoURL string) (*ytdlp.VideoMeta, error)
}

// Resolver produces filtered, cached manifests for video ids.
type Resolver struct {
	inspector Inspector
	store     *Store
	client    *http.Client
	log       *slog.Logger
	now       func() time.Time
}

// NewResolver creates a resolver. client may be nil to use http.DefaultClient.
func NewResolver(inspector Inspector, store *Store, client *http.Client, log *slog.Logger) *Resolver {
	if client == nil {
		client = http.DefaultClient
	}
	if log == nil {
		log = slog.Default()
	}
	return &Resolver{
		inspector: inspector,
		store:     store,
		client:    client,
		log:       log,
		now:       time.Now,
	}
}

// Store returns the underlying cache store.
func (r *Resolver) Store() *Store { return r.store }

// Resolve returns the playable manifest for a video id, serving a valid
// cached copy without any network traffic when possible.
func (r *Resolver) Resolve(ctx context.Context, videoID string) (string, error) {
	if e, err := r.store.Load(videoID, r.now()); err == nil && e.Valid(r.now()) {
		r.log.Debug("manifest cache hit", "video", videoID)
		return e.Content, nil
	}
	return r.Refresh(ctx, videoID)
}

// Refresh fetches, filters and caches the manifest for a video id,
// bypassing the valid-cache short-circuit. The cache sweep uses it to renew
// entries ahead of expiry. All failures surface as ErrFallback.
func (r *Resolver) Refresh(ctx context.Context, videoID string) (string, error) {
	meta, err := r.inspector.Inspect(ctx, source.VideoURL(videoID))
	if err != nil {
		return "", fmt.Errorf("%w: inspect %s: %v", ErrFallback, videoID, err)
	}

	url, ok := meta.ManifestURL()
	if !ok {
		return "", fmt.Errorf("%w: no manifest url for %s", ErrFallback, videoID)
	}

	body, err := r.fetch(ctx, url)
	if err != nil {
		return "", fmt.Errorf("%w: fetch %s: %v", ErrFallback, videoID, err)
	}
	if !strings.Contains(body, "#EXTM3U") {
		return "", fmt.Errorf("%w: %s is not an HLS playlist", ErrFallback, videoID)
	}

	filtered := Filter(body)

	e := NewEntry(videoID, filtered, r.now())
	if err := r.store.Save(e); err != nil {
		// The manifest is still good; only the next request pays again.
		r.log.Warn("manifest cache write failed", "video", videoID, "error", err)
	}

	return filtered, nil
}

func (r *Resolver) fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(body), nil
}
