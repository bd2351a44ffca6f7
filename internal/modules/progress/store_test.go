package progress

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	types "github.com/yungbote/pathprogress/internal/domain/progress"
	"github.com/yungbote/pathprogress/internal/platform/apierr"
)

var testKey = types.Key{PathID: "p1", Slug: "intro-to-go"}

func TestStoreGetHasNoSideEffects(t *testing.T) {
	s, mem := newTestStore(t, newFakeClock())
	if got := s.Get(testKey); got != nil {
		t.Fatalf("Get on empty store: got=%+v", got)
	}
	if mem.Saves() != 0 {
		t.Fatalf("Get must not persist")
	}
}

func TestStoreInitializeOnlyOnce(t *testing.T) {
	ctx := context.Background()
	s, mem := newTestStore(t, newFakeClock())

	init, err := s.Initialize(ctx, testKey, 3)
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if init.Key() != testKey {
		t.Fatalf("token key: got=%v", init.Key())
	}
	if _, err := s.SetItemStatus(ctx, testKey, "m0-competency-0", types.StatusDone); err != nil {
		t.Fatalf("SetItemStatus: %v", err)
	}
	saves := mem.Saves()

	if _, err := s.Initialize(ctx, testKey, 2); err != nil {
		t.Fatalf("second Initialize: %v", err)
	}
	got := s.Get(testKey)
	if got.TotalItems != 3 || got.CompletedItems != 1 {
		t.Fatalf("second Initialize changed record: %+v", got)
	}
	if mem.Saves() != saves {
		t.Fatalf("no-op Initialize should not persist")
	}
}

func TestStoreSetItemStatusIdempotent(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t, newFakeClock())
	if _, err := s.Initialize(ctx, testKey, 3); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	once, err := s.SetItemStatus(ctx, testKey, "m0-competency-0", types.StatusDone)
	if err != nil {
		t.Fatalf("SetItemStatus: %v", err)
	}
	twice, err := s.SetItemStatus(ctx, testKey, "m0-competency-0", types.StatusDone)
	if err != nil {
		t.Fatalf("SetItemStatus again: %v", err)
	}
	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("not idempotent:\n once=%+v\ntwice=%+v", once, twice)
	}
}

func TestStoreCompletedAtLifecycle(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	s, _ := newTestStore(t, clock)

	p, _ := s.SetItemStatus(ctx, testKey, "a", types.StatusDone)
	firstDone := p.Items["a"].CompletedAt
	if firstDone == nil || !firstDone.Equal(clock.Now()) {
		t.Fatalf("completed_at not stamped: %+v", p.Items["a"])
	}

	clock.Advance(time.Minute)
	p, _ = s.SetItemStatus(ctx, testKey, "a", types.StatusDone)
	if !p.Items["a"].CompletedAt.Equal(*firstDone) {
		t.Fatalf("repeat done moved completed_at")
	}
	if !p.LastAccessed.Equal(clock.Now()) {
		t.Fatalf("last_accessed not stamped")
	}

	p, _ = s.SetItemStatus(ctx, testKey, "a", types.StatusInProgress)
	if p.Items["a"].CompletedAt != nil {
		t.Fatalf("completed_at should clear for non-done status")
	}
	if p.CompletedItems != 0 || p.TotalProgress != 0 {
		t.Fatalf("counters after undo: %+v", p)
	}
}

func TestStoreTotalsNeverDecrease(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t, newFakeClock())

	check := func(prev int) int {
		t.Helper()
		got := s.Get(testKey).TotalItems
		if got < prev {
			t.Fatalf("total decreased: %d -> %d", prev, got)
		}
		return got
	}
	if _, err := s.Initialize(ctx, testKey, 2); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	total := check(0)
	for _, id := range []string{"a", "b", "c", "d"} {
		if _, err := s.SetItemStatus(ctx, testKey, id, types.StatusPending); err != nil {
			t.Fatalf("SetItemStatus: %v", err)
		}
		total = check(total)
	}
	if total != 4 {
		t.Fatalf("total follows key count: want=4 got=%d", total)
	}
	if _, err := s.Initialize(ctx, testKey, 1); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	total = check(total)
	if _, err := s.Initialize(ctx, testKey, 10); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if got := check(total); got != 10 {
		t.Fatalf("larger hint raises total: got=%d", got)
	}
}

func TestStoreSkipCountsTowardTotalOnly(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t, newFakeClock())
	if _, err := s.Initialize(ctx, testKey, 0); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	p, err := s.SetItemStatus(ctx, testKey, "a", types.StatusSkip)
	if err != nil {
		t.Fatalf("SetItemStatus: %v", err)
	}
	if p.TotalItems != 1 || p.CompletedItems != 0 || p.TotalProgress != 0 {
		t.Fatalf("skip counters: %+v", p)
	}
}

func TestStoreRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t, newFakeClock())

	if _, err := s.SetItemStatus(ctx, testKey, "a", types.Status("finished")); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("want ErrInvalidStatus, got=%v", err)
	}
	if _, err := s.SetItemStatus(ctx, types.Key{Slug: "x"}, "a", types.StatusDone); !errors.Is(err, apierr.ErrInvalidArgument) {
		t.Fatalf("want invalid key, got=%v", err)
	}
	if _, err := s.SetItemStatus(ctx, testKey, "  ", types.StatusDone); !errors.Is(err, ErrUnknownItem) {
		t.Fatalf("want ErrUnknownItem, got=%v", err)
	}
}

func TestStoreStateSurvivesReload(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	s, mem := newTestStore(t, clock)
	if _, err := s.Initialize(ctx, testKey, 3); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if _, err := s.SetItemStatus(ctx, testKey, "m0-competency-0", types.StatusDone); err != nil {
		t.Fatalf("SetItemStatus: %v", err)
	}

	reloaded := NewStore(mem, nil, WithClock(clock.Now))
	if err := reloaded.Open(ctx); err != nil {
		t.Fatalf("Open: %v", err)
	}
	got := reloaded.Get(testKey)
	if got == nil || got.CompletedItems != 1 || got.TotalItems != 3 {
		t.Fatalf("reloaded record: %+v", got)
	}
	if keys := reloaded.Keys(); len(keys) != 1 || keys[0] != testKey {
		t.Fatalf("Keys: %v", keys)
	}
}

type failingCache struct{ err error }

func (f failingCache) Load(ctx context.Context) (map[string]*types.PathProgress, error) {
	return nil, nil
}

func (f failingCache) Save(ctx context.Context, records map[string]*types.PathProgress) error {
	return f.err
}

func TestStoreKeepsMutationWhenSaveFails(t *testing.T) {
	ctx := context.Background()
	s := NewStore(failingCache{err: errors.New("disk full")}, nil)
	p, err := s.SetItemStatus(ctx, testKey, "a", types.StatusDone)
	if err == nil {
		t.Fatalf("expected save error")
	}
	if p == nil || p.CompletedItems != 1 {
		t.Fatalf("mutation should be returned: %+v", p)
	}
	if got := s.Get(testKey); got == nil || got.CompletedItems != 1 {
		t.Fatalf("mutation should stay in memory: %+v", got)
	}
}
