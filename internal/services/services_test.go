package services

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/yungbote/pathprogress/internal/data/repos"
	"github.com/yungbote/pathprogress/internal/data/repos/testutil"
	"github.com/yungbote/pathprogress/internal/domain/curriculum"
	types "github.com/yungbote/pathprogress/internal/domain/progress"
	"github.com/yungbote/pathprogress/internal/observability"
	"github.com/yungbote/pathprogress/internal/platform/apierr"
	"github.com/yungbote/pathprogress/internal/realtime"
	"github.com/yungbote/pathprogress/internal/realtime/bus"
)

type fixture struct {
	paths    PathService
	progress ProgressService
	metrics  *observability.Metrics

	mu     sync.Mutex
	events []realtime.SSEMessage
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	f := &fixture{metrics: observability.NewMetrics()}

	b := bus.NewMemoryBus()
	if err := b.StartForwarder(context.Background(), func(m realtime.SSEMessage) {
		f.mu.Lock()
		f.events = append(f.events, m)
		f.mu.Unlock()
	}); err != nil {
		t.Fatalf("StartForwarder: %v", err)
	}
	notifier := NewNotifier(b, f.metrics, log)
	f.paths = NewPathService(repos.NewPathRepo(db, log), notifier, f.metrics, log)
	f.progress = NewProgressService(f.paths, repos.NewPathProgressRepo(db, log), notifier, f.metrics, log)
	return f
}

func (f *fixture) lastEvent(t *testing.T) realtime.SSEMessage {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.events) == 0 {
		t.Fatalf("no events published")
	}
	return f.events[len(f.events)-1]
}

func wantStatus(t *testing.T, err error, status int, sentinel error) {
	t.Helper()
	if !errors.Is(err, sentinel) {
		t.Fatalf("want %v, got=%v", sentinel, err)
	}
	if got := apierr.StatusOf(err, 0); got != status {
		t.Fatalf("status: want=%d got=%d", status, got)
	}
}

func TestPathServiceCreateAndResolve(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	first, err := f.paths.Create(ctx, "Intro to Go", testutil.GoDoc())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	time.Sleep(time.Millisecond)
	if _, err := f.paths.Create(ctx, "Intro To Go!", nil); err != nil {
		t.Fatalf("Create second: %v", err)
	}
	if _, err := f.paths.Create(ctx, "  ", nil); !errors.Is(err, apierr.ErrInvalidArgument) {
		t.Fatalf("blank title: want invalid, got=%v", err)
	}
	fromDoc, err := f.paths.Create(ctx, "", &curriculum.Document{Title: "Rust Basics"})
	if err != nil || fromDoc.Title != "Rust Basics" {
		t.Fatalf("title from document: %v %+v", err, fromDoc)
	}

	got, err := f.paths.GetBySlug(ctx, "intro-to-go")
	if err != nil || got.ID != first.ID {
		t.Fatalf("GetBySlug: want first path, got=%v err=%v", got, err)
	}
	_, err = f.paths.GetBySlug(ctx, "haskell")
	wantStatus(t, err, http.StatusNotFound, apierr.ErrNotFound)
	_, err = f.paths.Get(ctx, "not-a-uuid")
	wantStatus(t, err, http.StatusNotFound, apierr.ErrNotFound)

	all, err := f.paths.List(ctx)
	if err != nil || len(all) != 3 {
		t.Fatalf("List: err=%v len=%d", err, len(all))
	}
}

func TestPathServiceUpdateMetadata(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p, _ := f.paths.Create(ctx, "Intro to Go", testutil.GoDoc())

	seen := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	updated, err := f.paths.UpdateMetadata(ctx, p.ID.String(), curriculum.Metadata{
		LastAccessed:     seen,
		Progress:         33,
		CompletedModules: 0,
		Status:           curriculum.StatusActive,
	})
	if err != nil {
		t.Fatalf("UpdateMetadata: %v", err)
	}
	if updated.Progress != 33 || updated.Status != curriculum.StatusActive || !updated.LastAccessedAt.Equal(seen) {
		t.Fatalf("returned path: %+v", updated)
	}
	stored, _ := f.paths.Get(ctx, p.ID.String())
	if stored.Progress != 33 || stored.Status != curriculum.StatusActive {
		t.Fatalf("stored path: %+v", stored)
	}
	if ev := f.lastEvent(t); ev.Event != realtime.SSEEventPathUpdated || ev.Channel != p.ID.String() {
		t.Fatalf("event: %+v", ev)
	}

	_, err = f.paths.UpdateMetadata(ctx, p.ID.String(), curriculum.Metadata{Status: "finished"})
	wantStatus(t, err, http.StatusBadRequest, apierr.ErrInvalidArgument)
	_, err = f.paths.UpdateMetadata(ctx, p.ID.String(), curriculum.Metadata{Status: curriculum.StatusActive, Progress: 101})
	wantStatus(t, err, http.StatusBadRequest, apierr.ErrInvalidArgument)
}

func TestProgressServicePutRecomputes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p, _ := f.paths.Create(ctx, "Intro to Go", testutil.GoDoc())

	_, err := f.progress.Get(ctx, p.ID.String(), "intro-to-go")
	wantStatus(t, err, http.StatusNotFound, apierr.ErrNotFound)

	body := &types.PathProgress{
		Items: map[string]types.ItemProgress{
			"m0-competency-0": {Status: types.StatusDone},
		},
		TotalItems:     1,
		CompletedItems: 7,
		TotalProgress:  100,
	}
	stored, err := f.progress.Put(ctx, p.ID.String(), "intro-to-go", body)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if stored.TotalItems != 3 || stored.CompletedItems != 1 || stored.TotalProgress != 33 {
		t.Fatalf("counters not recomputed: %+v", stored)
	}
	if stored.PathID != p.ID.String() || stored.Slug != "intro-to-go" {
		t.Fatalf("key not stamped: %+v", stored)
	}

	got, err := f.progress.Get(ctx, p.ID.String(), "intro-to-go")
	if err != nil || got.TotalProgress != 33 || got.StatusOf("m0-competency-0") != types.StatusDone {
		t.Fatalf("Get: err=%v p=%+v", err, got)
	}
	ev := f.lastEvent(t)
	upd, ok := ev.Data.(map[string]any)
	if ev.Event != realtime.SSEEventProgressUpdated || !ok || upd["total_progress"] != float64(33) {
		t.Fatalf("event: %+v", ev)
	}
	if n := f.metrics.ProgressWrites("ok"); n != 1 {
		t.Fatalf("progress writes metric: want=1 got=%v", n)
	}
}

func TestProgressServiceTotalNeverShrinks(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p, _ := f.paths.Create(ctx, "Intro to Go", testutil.GoDoc())

	if _, err := f.progress.Put(ctx, p.ID.String(), "intro-to-go", &types.PathProgress{TotalItems: 10}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	stored, err := f.progress.Put(ctx, p.ID.String(), "intro-to-go", &types.PathProgress{})
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if stored.TotalItems != 10 {
		t.Fatalf("total shrank: %+v", stored)
	}
}

func TestProgressServiceRejectsBadBodies(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p, _ := f.paths.Create(ctx, "Intro to Go", testutil.GoDoc())

	cases := []*types.PathProgress{
		nil,
		{Items: map[string]types.ItemProgress{"a": {Status: "finished"}}},
		{PathID: "someone-else"},
		{Slug: "other-slug"},
	}
	for i, body := range cases {
		if _, err := f.progress.Put(ctx, p.ID.String(), "intro-to-go", body); !errors.Is(err, apierr.ErrInvalidArgument) {
			t.Fatalf("case %d: want invalid, got=%v", i, err)
		}
	}
	_, err := f.progress.Put(ctx, "7c9e6679-7425-40de-944b-e07fc1f90ae7", "x", &types.PathProgress{})
	wantStatus(t, err, http.StatusNotFound, apierr.ErrNotFound)
}
