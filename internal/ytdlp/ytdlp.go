// Package ytdlp wraps the yt-dlp subprocess used for listings, single-video
// metadata and progressive stream fallback. The tool is rate-limited and
// flaky upstream, so every metadata invocation goes through a single-slot
// lease: at most one yt-dlp process is talking to YouTube at a time,
// system-wide.
package ytdlp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"

	"golang.org/x/sync/semaphore"
)

// ListRequest bounds a collection listing.
type ListRequest struct {
	URL string
	// DateAfter is a YYYYMMDD lower bound; empty means no date filter.
	DateAfter string
	// MaxCount limits how many playlist entries are fetched; 0 means all.
	MaxCount int
}

// VideoMeta is the single-video metadata document.
type VideoMeta struct {
	Formats []Format `json:"formats"`
}

// Format is one entry of the formats list.
type Format struct {
	ManifestURL string `json:"manifest_url"`
}

// ManifestURL returns the first format exposing a manifest-discovery URL.
func (m *VideoMeta) ManifestURL() (string, bool) {
	for _, f := range m.Formats {
		if f.ManifestURL != "" {
			return f.ManifestURL, true
		}
	}
	return "", false
}

// Thumbnail is one row of the --list-thumbnails table.
type Thumbnail struct {
	ID    string
	Width int
	URL   string
}

// Client invokes yt-dlp. Safe for concurrent use; concurrent metadata calls
// queue on the lease.
type Client struct {
	binary  string
	cookies string
	lease   *semaphore.Weighted
	log     *slog.Logger
}

// New creates a yt-dlp client.
func New(binary, cookies string, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		binary:  binary,
		cookies: cookies,
		lease:   semaphore.NewWeighted(1),
		log:     log,
	}
}

// run executes yt-dlp under the lease and returns stdout. Non-zero exit or
// empty stdout is a fetch failure.
func (c *Client) run(ctx context.Context, args []string) ([]byte, error) {
	if err := c.lease.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer c.lease.Release(1)

	cmd := exec.CommandContext(ctx, c.binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%w: %v: %s", ErrInvocation, err, strings.TrimSpace(stderr.String()))
	}
	if stderr.Len() > 0 {
		// Partial failures (skipped videos) land on stderr without failing the run.
		c.log.Debug("yt-dlp stderr", "output", stderr.String())
	}
	if stdout.Len() == 0 {
		return nil, ErrNoOutput
	}
	return stdout.Bytes(), nil
}

// List fetches the metadata listing for a collection, one JSON record per
// line. Individual malformed records are dropped; only spawn failures,
// non-zero exits and empty output surface as errors.
func (c *Client) List(ctx context.Context, req ListRequest) ([]VideoRecord, error) {
	args := []string{
		"--compat-options", "no-youtube-channel-redirect",
		"--compat-options", "no-youtube-unavailable-videos",
		"--no-warnings",
		"--dump-json",
		"--ignore-errors",
		"--cookies", c.cookies,
		"--sleep-interval", "8",
		"--max-sleep-interval", "60",
		"--retries", "infinite",
	}
	if req.DateAfter != "" {
		args = append(args, "--dateafter", req.DateAfter)
	}
	if req.MaxCount > 0 {
		args = append(args, "--playlist-start", "1", "--playlist-end", strconv.Itoa(req.MaxCount))
	}
	args = append(args, req.URL)

	c.log.Info("listing videos", "url", req.URL, "date_after", req.DateAfter, "max", req.MaxCount)

	stdout, err := c.run(ctx, args)
	if err != nil {
		return nil, err
	}
	return parseRecords(stdout), nil
}

// Inspect fetches the metadata document for one video.
func (c *Client) Inspect(ctx context.Context, videoURL string) (*VideoMeta, error) {
	stdout, err := c.run(ctx, []string{"-j", "--no-playlist", "--cookies", c.cookies, videoURL})
	if err != nil {
		return nil, err
	}

	var meta VideoMeta
	if err := json.Unmarshal(stdout, &meta); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	return &meta, nil
}

// Thumbnails lists the available collection images for a channel or playlist
// page without touching any playlist entries.
func (c *Client) Thumbnails(ctx context.Context, url string) ([]Thumbnail, error) {
	stdout, err := c.run(ctx, []string{
		"--list-thumbnails",
		"--restrict-filenames",
		"--ignore-errors",
		"--no-warnings",
		"--playlist-items", "0",
		url,
	})
	if err != nil {
		return nil, err
	}
	return parseThumbnails(string(stdout)), nil
}

// parseThumbnails extracts (id, width, url) rows from the thumbnail table.
// Header and malformed rows are skipped.
func parseThumbnails(out string) []Thumbnail {
	var thumbs []Thumbnail
	for _, line := range strings.Split(out, "\n") {
		parts := strings.Fields(line)
		if len(parts) < 4 {
			continue
		}
		width, _ := strconv.Atoi(parts[1])
		thumbs = append(thumbs, Thumbnail{
			ID:    parts[0],
			Width: width,
			URL:   parts[len(parts)-1],
		})
	}
	return thumbs
}

// StreamCommand builds the progressive-download fallback invocation. The
// caller owns the process: wire up stdout, start it, and relay the bytes.
// Streaming runs outside the lease; a long playback must not starve
// metadata calls.
func (c *Client) StreamCommand(ctx context.Context, videoURL string) *exec.Cmd {
	return exec.CommandContext(ctx, c.binary,
		"-o", "-",
		"-f", "22/18/best[ext=mp4]",
		"--no-playlist",
		"--no-warnings",
		"--cookies", c.cookies,
		videoURL,
	)
}
