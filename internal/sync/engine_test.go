package sync

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/vmunix/ytarr/internal/source"
	"github.com/vmunix/ytarr/internal/ytdlp"
)

type fakeLister struct {
	records []ytdlp.VideoRecord
	err     error
	lastReq ytdlp.ListRequest
}

func (f *fakeLister) List(ctx context.Context, req ytdlp.ListRequest) ([]ytdlp.VideoRecord, error) {
	f.lastReq = req
	return f.records, f.err
}

type fakeMaterializer struct {
	existing    map[string]bool // video ids treated as already materialized
	failing     map[string]bool // video ids whose materialization errors
	materialize []string
}

func (f *fakeMaterializer) EnsureStructure(ctx context.Context, src source.Tracked) error {
	return nil
}

func (f *fakeMaterializer) Materialize(ctx context.Context, video ytdlp.VideoRecord, src source.Tracked, serverAddr string) (bool, error) {
	if f.failing[video.ID] {
		return false, errors.New("materialize boom")
	}
	if f.existing[video.ID] {
		return false, nil
	}
	f.materialize = append(f.materialize, video.ID)
	return true, nil
}

type fakeWarmer struct {
	err   error
	calls []string
}

func (f *fakeWarmer) Refresh(ctx context.Context, videoID string) (string, error) {
	f.calls = append(f.calls, videoID)
	return "#EXTM3U\n", f.err
}

func record(id, date string) ytdlp.VideoRecord {
	return ytdlp.VideoRecord{ID: id, Title: "Video " + id, UploadDate: date}
}

func testRegistry(t *testing.T) *source.Registry {
	t.Helper()
	dir := t.TempDir()
	r, err := source.Load(filepath.Join(dir, "sources.json"), source.Settings{
		ServerAddress: "http://localhost:8090",
		MediaPath:     dir,
	})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	return r
}

func addChannel(t *testing.T, r *source.Registry, handle string, maxVideos *int) source.Tracked {
	t.Helper()
	src, err := r.Add(source.Descriptor{
		Kind:      source.KindChannel,
		Name:      handle,
		Handle:    handle,
		MaxVideos: maxVideos,
	})
	if err != nil {
		t.Fatalf("Add() error: %v", err)
	}
	return src
}

func newTestEngine(r *source.Registry, lister Lister, mat Materializer, warmer Warmer) *Engine {
	return NewEngine(r, lister, mat, warmer, nil, time.Millisecond, nil)
}

func TestEngine_ProcessMaterializesNewVideos(t *testing.T) {
	registry := testRegistry(t)
	src := addChannel(t, registry, "techtalks", nil)

	lister := &fakeLister{records: []ytdlp.VideoRecord{
		record("old1", "20240101"),
		record("new1", "20240301"),
		record("new2", "20240215"),
	}}
	mat := &fakeMaterializer{existing: map[string]bool{"old1": true}}
	warmer := &fakeWarmer{}

	engine := newTestEngine(registry, lister, mat, warmer)

	count, err := engine.Process(context.Background(), src)
	if err != nil {
		t.Fatalf("Process() error: %v", err)
	}
	if count != 2 {
		t.Errorf("Process() = %d new videos, want 2", count)
	}
	if len(warmer.calls) != 2 {
		t.Errorf("warmer called %d times, want 2", len(warmer.calls))
	}

	got, _ := registry.Get(src.ID)
	if got.LastChecked.IsZero() {
		t.Errorf("watermark did not advance after a successful cycle")
	}
}

func TestEngine_MaxVideosKeepsMostRecent(t *testing.T) {
	registry := testRegistry(t)
	max := 2
	src := addChannel(t, registry, "techtalks", &max)

	lister := &fakeLister{records: []ytdlp.VideoRecord{
		record("a", "20240110"),
		record("b", "20240301"),
		record("c", "20240201"),
		record("d", "20231225"),
		record("e", "20240228"),
	}}
	mat := &fakeMaterializer{}
	engine := newTestEngine(registry, lister, mat, &fakeWarmer{})

	count, err := engine.Process(context.Background(), src)
	if err != nil {
		t.Fatalf("Process() error: %v", err)
	}
	if count != 2 {
		t.Errorf("Process() = %d, want 2", count)
	}
	if lister.lastReq.MaxCount != 2 {
		t.Errorf("ListRequest.MaxCount = %d, want 2", lister.lastReq.MaxCount)
	}

	want := []string{"b", "e"}
	if len(mat.materialize) != 2 || mat.materialize[0] != want[0] || mat.materialize[1] != want[1] {
		t.Errorf("materialized %v, want %v", mat.materialize, want)
	}
}

func TestEngine_ListingFailureLeavesWatermark(t *testing.T) {
	registry := testRegistry(t)
	src := addChannel(t, registry, "techtalks", nil)

	lister := &fakeLister{err: errors.New("network down")}
	engine := newTestEngine(registry, lister, &fakeMaterializer{}, &fakeWarmer{})

	_, err := engine.Process(context.Background(), src)
	if !errors.Is(err, ErrListing) {
		t.Fatalf("Process() error = %v, want ErrListing", err)
	}

	got, _ := registry.Get(src.ID)
	if !got.LastChecked.IsZero() {
		t.Errorf("watermark advanced despite listing failure")
	}
}

func TestEngine_EmptyListingIsNoItems(t *testing.T) {
	registry := testRegistry(t)
	src := addChannel(t, registry, "techtalks", nil)

	engine := newTestEngine(registry, &fakeLister{}, &fakeMaterializer{}, &fakeWarmer{})

	_, err := engine.Process(context.Background(), src)
	if !errors.Is(err, ErrNoItems) {
		t.Fatalf("Process() error = %v, want ErrNoItems", err)
	}

	got, _ := registry.Get(src.ID)
	if !got.LastChecked.IsZero() {
		t.Errorf("watermark advanced on an empty listing")
	}
}

func TestEngine_PerVideoFailureContinuesBatch(t *testing.T) {
	registry := testRegistry(t)
	src := addChannel(t, registry, "techtalks", nil)

	lister := &fakeLister{records: []ytdlp.VideoRecord{
		record("bad", "20240301"),
		record("good", "20240201"),
	}}
	mat := &fakeMaterializer{failing: map[string]bool{"bad": true}}
	engine := newTestEngine(registry, lister, mat, &fakeWarmer{})

	count, err := engine.Process(context.Background(), src)
	if err != nil {
		t.Fatalf("Process() error: %v", err)
	}
	if count != 1 {
		t.Errorf("Process() = %d, want 1", count)
	}

	got, _ := registry.Get(src.ID)
	if got.LastChecked.IsZero() {
		t.Errorf("watermark should advance when the listing itself succeeded")
	}
}

func TestEngine_WarmupFailureStillCounts(t *testing.T) {
	registry := testRegistry(t)
	src := addChannel(t, registry, "techtalks", nil)

	lister := &fakeLister{records: []ytdlp.VideoRecord{record("v1", "20240301")}}
	warmer := &fakeWarmer{err: errors.New("manifest unavailable")}
	engine := newTestEngine(registry, lister, &fakeMaterializer{}, warmer)

	count, err := engine.Process(context.Background(), src)
	if err != nil {
		t.Fatalf("Process() error: %v", err)
	}
	if count != 1 {
		t.Errorf("Process() = %d, want 1; warm-up failures must not uncount videos", count)
	}
}

type blockingLister struct {
	started chan struct{}
	release chan struct{}
}

func (b *blockingLister) List(ctx context.Context, req ytdlp.ListRequest) ([]ytdlp.VideoRecord, error) {
	close(b.started)
	<-b.release
	return []ytdlp.VideoRecord{record("v1", "20240301")}, nil
}

func TestEngine_ConcurrentCyclesForOneSourceAreExclusive(t *testing.T) {
	registry := testRegistry(t)
	src := addChannel(t, registry, "techtalks", nil)

	lister := &blockingLister{started: make(chan struct{}), release: make(chan struct{})}
	engine := newTestEngine(registry, lister, &fakeMaterializer{}, &fakeWarmer{})

	done := make(chan error, 1)
	go func() {
		_, err := engine.Process(context.Background(), src)
		done <- err
	}()
	<-lister.started

	if _, err := engine.Process(context.Background(), src); !errors.Is(err, ErrInFlight) {
		t.Errorf("overlapping Process() error = %v, want ErrInFlight", err)
	}

	close(lister.release)
	if err := <-done; err != nil {
		t.Fatalf("first Process() error: %v", err)
	}

	// The slot frees up once the cycle finishes.
	lister2 := &fakeLister{records: []ytdlp.VideoRecord{record("v2", "20240302")}}
	engine.lister = lister2
	if _, err := engine.Process(context.Background(), src); err != nil {
		t.Errorf("Process() after completion error = %v", err)
	}
}

func TestEngine_DateBound(t *testing.T) {
	registry := testRegistry(t)
	engine := newTestEngine(registry, &fakeLister{}, &fakeMaterializer{}, &fakeWarmer{})
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	engine.now = func() time.Time { return now }

	maxAge := 30
	tests := []struct {
		name string
		src  source.Tracked
		want string
	}{
		{
			name: "no watermark, no horizon",
			src:  source.Tracked{Descriptor: source.Descriptor{Kind: source.KindChannel}},
			want: "",
		},
		{
			name: "watermark minus margin",
			src: source.Tracked{
				Descriptor:  source.Descriptor{Kind: source.KindChannel},
				LastChecked: time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC),
			},
			want: "20240608",
		},
		{
			name: "max age horizon wins when later",
			src: source.Tracked{
				Descriptor:  source.Descriptor{Kind: source.KindChannel, MaxAgeDays: &maxAge},
				LastChecked: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			},
			want: "20240516",
		},
		{
			name: "playlist ignores max age",
			src: source.Tracked{
				Descriptor:  source.Descriptor{Kind: source.KindPlaylist},
				LastChecked: time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC),
			},
			want: "20240608",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := engine.dateBound(tt.src); got != tt.want {
				t.Errorf("dateBound() = %q, want %q", got, tt.want)
			}
		})
	}
}
