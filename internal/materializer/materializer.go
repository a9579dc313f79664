// Package materializer writes the on-disk stand-in for one video: a .strm
// stub pointing at the playback endpoint, a .nfo metadata file and a
// thumbnail. No video bytes are ever stored.
package materializer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/vmunix/ytarr/internal/source"
	"github.com/vmunix/ytarr/internal/ytdlp"
)

// ErrBadUploadDate is returned for records whose upload date can't yield a
// season bucket.
var ErrBadUploadDate = errors.New("invalid upload date")

// ThumbnailLister provides collection-level image candidates.
type ThumbnailLister interface {
	Thumbnails(ctx context.Context, url string) ([]ytdlp.Thumbnail, error)
}

// Materializer writes per-video and per-collection artifacts. It has no
// internal locking: the sync engine schedules at most one writer per source.
type Materializer struct {
	client *http.Client
	thumbs ThumbnailLister
	log    *slog.Logger
}

// New creates a materializer. client may be nil to use http.DefaultClient.
func New(client *http.Client, thumbs ThumbnailLister, log *slog.Logger) *Materializer {
	if client == nil {
		client = http.DefaultClient
	}
	if log == nil {
		log = slog.Default()
	}
	return &Materializer{client: client, thumbs: thumbs, log: log}
}

// StubPath returns where the video's .strm stub lives. Its existence is the
// sole "already materialized" signal.
func StubPath(src source.Tracked, video ytdlp.VideoRecord) (string, error) {
	season, err := seasonFromDate(video.UploadDate)
	if err != nil {
		return "", err
	}
	base := SafeFilename(video.UploadDate + " - " + video.Title)
	return filepath.Join(src.MediaDir, "Season "+season, base+".strm"), nil
}

// Materialize writes the artifact set for one video. Returns true when the
// video was newly created, false when its stub already existed. The stub
// existence check runs before any network fetch, and the stub itself is
// written last so a crash mid-way leaves the video unfinished, not falsely
// done.
func (m *Materializer) Materialize(ctx context.Context, video ytdlp.VideoRecord, src source.Tracked, serverAddr string) (bool, error) {
	stub, err := StubPath(src, video)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(stub); err == nil {
		return false, nil
	}

	seasonDir := filepath.Dir(stub)
	if err := os.MkdirAll(seasonDir, 0o755); err != nil {
		return false, fmt.Errorf("create season dir: %w", err)
	}

	base := strings.TrimSuffix(filepath.Base(stub), ".strm")

	img, err := m.fetchImage(ctx, video.ThumbnailURL)
	if err != nil {
		return false, fmt.Errorf("thumbnail: %w", err)
	}
	if err := os.WriteFile(filepath.Join(seasonDir, base+"-thumb.jpg"), img, 0o644); err != nil {
		return false, fmt.Errorf("write thumbnail: %w", err)
	}

	nfo, err := episodeNFO(video)
	if err != nil {
		return false, err
	}
	if err := os.WriteFile(filepath.Join(seasonDir, base+".nfo"), nfo, 0o644); err != nil {
		return false, fmt.Errorf("write nfo: %w", err)
	}

	if err := os.WriteFile(stub, []byte(StubURL(serverAddr, video.ID)), 0o644); err != nil {
		return false, fmt.Errorf("write stub: %w", err)
	}
	return true, nil
}

// EnsureStructure creates the collection directory plus best-effort images
// and summary metadata. Only the directory itself is load-bearing; image and
// nfo failures are logged and the sync continues.
func (m *Materializer) EnsureStructure(ctx context.Context, src source.Tracked) error {
	if err := os.MkdirAll(src.MediaDir, 0o755); err != nil {
		return fmt.Errorf("create media dir: %w", err)
	}

	poster, landscape := m.collectionImages(ctx, src.Descriptor)
	m.writeImage(ctx, poster, filepath.Join(src.MediaDir, "poster.jpg"))
	m.writeImage(ctx, landscape, filepath.Join(src.MediaDir, "landscape.jpg"))

	nfo, err := showNFO(src.Descriptor)
	if err != nil {
		m.log.Warn("collection nfo failed", "source", src.Descriptor.Name, "error", err)
		return nil
	}
	if err := os.WriteFile(filepath.Join(src.MediaDir, "tvshow.nfo"), nfo, 0o644); err != nil {
		m.log.Warn("collection nfo failed", "source", src.Descriptor.Name, "error", err)
	}
	return nil
}

// collectionImages picks poster and landscape URLs from the upstream
// thumbnail table. Channels use the avatar and banner rows; playlists use
// any sufficiently wide thumbnail for both roles.
func (m *Materializer) collectionImages(ctx context.Context, d source.Descriptor) (poster, landscape string) {
	thumbs, err := m.thumbs.Thumbnails(ctx, d.CollectionURL())
	if err != nil {
		m.log.Warn("collection images unavailable", "source", d.Name, "error", err)
		return "", ""
	}

	for _, t := range thumbs {
		switch d.Kind {
		case source.KindChannel:
			switch t.ID {
			case "avatar_uncropped":
				poster = t.URL
			case "banner_uncropped":
				landscape = t.URL
			}
		case source.KindPlaylist:
			if t.Width >= 1280 {
				poster = t.URL
				landscape = t.URL
			}
		}
	}
	return poster, landscape
}

func (m *Materializer) writeImage(ctx context.Context, url, path string) {
	if url == "" {
		return
	}
	img, err := m.fetchImage(ctx, url)
	if err != nil {
		m.log.Warn("image fetch failed", "url", url, "error", err)
		return
	}
	if err := os.WriteFile(path, img, 0o644); err != nil {
		m.log.Warn("image write failed", "path", path, "error", err)
	}
}

func (m *Materializer) fetchImage(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch image: %w", err)
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch image: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch image: status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// StubURL builds the single line written into a .strm stub: this system's
// own playback endpoint for the video.
func StubURL(serverAddr, videoID string) string {
	addr := strings.TrimSuffix(serverAddr, "/")
	if !strings.HasPrefix(addr, "http://") && !strings.HasPrefix(addr, "https://") {
		addr = "http://" + addr
	}
	return addr + "/stream/" + videoID
}

// seasonFromDate derives the season bucket (upload year) from YYYYMMDD.
func seasonFromDate(uploadDate string) (string, error) {
	if len(uploadDate) < 4 {
		return "", fmt.Errorf("%w: %q", ErrBadUploadDate, uploadDate)
	}
	year := uploadDate[:4]
	for _, r := range year {
		if r < '0' || r > '9' {
			return "", fmt.Errorf("%w: %q", ErrBadUploadDate, uploadDate)
		}
	}
	return year, nil
}
