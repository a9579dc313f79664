// Package sync implements the incremental discovery engine: per source,
// decide what counts as new, materialize artifacts idempotently and advance
// the watermark.
package sync

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	stdsync "sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/vmunix/ytarr/internal/source"
	"github.com/vmunix/ytarr/internal/ytdlp"
)

// watermarkMargin rewinds the date bound below the watermark to absorb
// upload-date skew between YouTube's listing and the actual publish time.
const watermarkMargin = 48 * time.Hour

// Lister fetches collection listings.
type Lister interface {
	List(ctx context.Context, req ytdlp.ListRequest) ([]ytdlp.VideoRecord, error)
}

// Materializer writes per-video artifacts and the collection structure.
type Materializer interface {
	EnsureStructure(ctx context.Context, src source.Tracked) error
	Materialize(ctx context.Context, video ytdlp.VideoRecord, src source.Tracked, serverAddr string) (bool, error)
}

// Warmer pre-populates the manifest cache for newly materialized videos.
type Warmer interface {
	Refresh(ctx context.Context, videoID string) (string, error)
}

// Engine runs sync cycles. At most one cycle per source runs at a time;
// overlapping calls for the same source fail with ErrInFlight.
type Engine struct {
	registry *source.Registry
	lister   Lister
	mat      Materializer
	warmer   Warmer
	history  *HistoryStore // optional
	cooldown *rate.Limiter
	log      *slog.Logger
	now      func() time.Time

	mu       stdsync.Mutex
	inFlight map[string]struct{}
}

// NewEngine creates a sync engine. cooldown throttles per-item work against
// the rate-limited upstream; history may be nil to disable cycle records.
func NewEngine(registry *source.Registry, lister Lister, mat Materializer, warmer Warmer,
	history *HistoryStore, cooldown time.Duration, log *slog.Logger) *Engine {

	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		registry: registry,
		lister:   lister,
		mat:      mat,
		warmer:   warmer,
		history:  history,
		cooldown: rate.NewLimiter(rate.Every(cooldown), 1),
		log:      log,
		now:      time.Now,
		inFlight: make(map[string]struct{}),
	}
}

// begin claims the per-source slot. Two cycles for the same source never
// overlap; a manual trigger during a scheduled rescan is dropped, not queued.
func (e *Engine) begin(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, busy := e.inFlight[id]; busy {
		return false
	}
	e.inFlight[id] = struct{}{}
	return true
}

func (e *Engine) end(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.inFlight, id)
}

// Process runs one sync cycle for a source and returns how many videos were
// newly materialized. The watermark advances whenever the listing succeeded
// with at least one usable item, regardless of per-video failures.
func (e *Engine) Process(ctx context.Context, src source.Tracked) (int, error) {
	if !e.begin(src.ID) {
		return 0, fmt.Errorf("%w: %s", ErrInFlight, src.Descriptor.Name)
	}
	defer e.end(src.ID)

	started := e.now()
	count, err := e.process(ctx, src)
	e.record(src, started, count, err)
	return count, err
}

func (e *Engine) process(ctx context.Context, src source.Tracked) (int, error) {
	log := e.log.With("source", src.Descriptor.Name)

	if err := e.mat.EnsureStructure(ctx, src); err != nil {
		return 0, err
	}

	req := ytdlp.ListRequest{
		URL:       src.Descriptor.VideosURL(),
		DateAfter: e.dateBound(src),
	}
	if src.Descriptor.Kind == source.KindChannel && src.Descriptor.MaxVideos != nil {
		req.MaxCount = *src.Descriptor.MaxVideos
	}

	records, err := e.lister.List(ctx, req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrListing, err)
	}

	sort.SliceStable(records, func(a, b int) bool {
		return records[a].UploadDate > records[b].UploadDate
	})
	if max := src.Descriptor.MaxVideos; src.Descriptor.Kind == source.KindChannel &&
		max != nil && len(records) > *max {
		records = records[:*max]
	}

	if len(records) == 0 {
		return 0, fmt.Errorf("%w: %s", ErrNoItems, src.Descriptor.Name)
	}

	serverAddr := e.registry.Settings().ServerAddress

	newVideos := 0
	for _, video := range records {
		created, err := e.mat.Materialize(ctx, video, src, serverAddr)
		if err != nil {
			// One bad video never aborts the batch.
			log.Error("materialize failed", "video", video.ID, "error", err)
			continue
		}
		if !created {
			continue
		}

		// Warm-up is best effort: a cold manifest cache only costs the
		// first playback a fetch.
		if _, err := e.warmer.Refresh(ctx, video.ID); err != nil {
			log.Warn("manifest warm-up failed", "video", video.ID, "error", err)
		}

		newVideos++
		if err := e.cooldown.Wait(ctx); err != nil {
			return newVideos, err
		}
	}

	log.Info("sync cycle finished", "new_videos", newVideos, "listed", len(records))

	// The listing succeeded, so everything older than now has been seen.
	// A source deleted mid-scan makes this a silent no-op.
	if err := e.registry.AdvanceWatermark(src.ID, e.now()); err != nil {
		return newVideos, fmt.Errorf("advance watermark: %w", err)
	}
	return newVideos, nil
}

// dateBound computes the YYYYMMDD lower bound for the listing: the later of
// the watermark minus the safety margin and the channel's max-age horizon.
// No applicable bound means fetch everything.
func (e *Engine) dateBound(src source.Tracked) string {
	var bound time.Time
	if !src.LastChecked.IsZero() {
		bound = src.LastChecked.Add(-watermarkMargin)
	}

	if src.Descriptor.Kind == source.KindChannel && src.Descriptor.MaxAgeDays != nil {
		horizon := e.now().AddDate(0, 0, -*src.Descriptor.MaxAgeDays)
		if horizon.After(bound) {
			bound = horizon
		}
	}

	if bound.IsZero() {
		return ""
	}
	return bound.Format("20060102")
}

func (e *Engine) record(src source.Tracked, started time.Time, count int, err error) {
	if e.history == nil {
		return
	}

	r := &Record{
		SourceID:   src.ID,
		SourceName: src.Descriptor.Name,
		StartedAt:  started,
		FinishedAt: e.now(),
		NewVideos:  count,
	}
	if err != nil {
		r.Error = err.Error()
	}

	if err := e.history.Add(r); err != nil {
		e.log.Error("history write failed", "source", src.Descriptor.Name, "error", err)
	}
}
