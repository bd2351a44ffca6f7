package progress

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/pathprogress/internal/domain/curriculum"
	types "github.com/yungbote/pathprogress/internal/domain/progress"
	"github.com/yungbote/pathprogress/internal/modules/progress/cache"
	"github.com/yungbote/pathprogress/internal/platform/apierr"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// oneModuleDoc is a module with 2 competencies, 1 resource and no assessments.
func oneModuleDoc() *curriculum.Document {
	return &curriculum.Document{
		Title: "Intro to Go",
		Modules: []curriculum.Module{{
			ID:           "m0",
			Title:        "Basics",
			Competencies: []curriculum.Entry{{Title: "Syntax"}, {Title: "Types"}},
			Resources:    []curriculum.Entry{{Title: "Tour of Go"}},
		}},
	}
}

func newTestStore(t *testing.T, clock *fakeClock) (*Store, *cache.Memory) {
	t.Helper()
	mem := cache.NewMemory()
	s := NewStore(mem, nil, WithClock(clock.Now))
	if err := s.Open(context.Background()); err != nil {
		t.Fatalf("Open: %v", err)
	}
	return s, mem
}

type fakeSource struct {
	mu    sync.Mutex
	snap  *types.PathProgress
	err   error
	calls int
}

func (f *fakeSource) GetProgress(ctx context.Context, pathID, slug string) (*types.PathProgress, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.snap.Clone(), nil
}

type fakePaths struct {
	paths []*curriculum.Path
}

func (f *fakePaths) ListPaths(ctx context.Context) ([]*curriculum.Path, error) {
	return f.paths, nil
}

func (f *fakePaths) GetPath(ctx context.Context, id string) (*curriculum.Path, error) {
	for _, p := range f.paths {
		if p.ID.String() == id {
			return p, nil
		}
	}
	return nil, apierr.ErrNotFound
}

type sinkCall struct {
	pathID string
	md     curriculum.Metadata
}

type fakeSink struct {
	mu    sync.Mutex
	calls []sinkCall
	err   error
}

func (f *fakeSink) UpdatePathMetadata(ctx context.Context, pathID string, md curriculum.Metadata) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, sinkCall{pathID: pathID, md: md})
	return f.err
}

type fakeWriter struct {
	mu   sync.Mutex
	puts []*types.PathProgress
}

func (f *fakeWriter) PutProgress(ctx context.Context, p *types.PathProgress) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts = append(f.puts, p.Clone())
	return nil
}

func mustPath(t *testing.T, title string, doc *curriculum.Document) *curriculum.Path {
	t.Helper()
	p := &curriculum.Path{ID: uuid.New(), Title: title}
	if err := p.SetDocument(doc); err != nil {
		t.Fatalf("SetDocument: %v", err)
	}
	return p
}

var errNetwork = errors.New("dial tcp: connection refused")
