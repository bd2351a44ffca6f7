package progress

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	types "github.com/yungbote/pathprogress/internal/domain/progress"
	"github.com/yungbote/pathprogress/internal/platform/logger"
)

// Cache is the local durable copy of every PathProgress record, keyed by Key.String().
// Load runs once at session start; Save receives the full map after every mutation.
type Cache interface {
	Load(ctx context.Context) (map[string]*types.PathProgress, error)
	Save(ctx context.Context, records map[string]*types.PathProgress) error
}

// Initialized proves Store.Initialize ran for a key. Only the Store mints it.
type Initialized struct {
	key types.Key
}

func (i Initialized) Key() types.Key { return i.key }

type StoreOption func(*Store)

// WithClock overrides time.Now, mostly for tests.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// Store owns the in-memory progress records and writes them through to a Cache.
type Store struct {
	mu      sync.Mutex
	cache   Cache
	log     *logger.Logger
	now     func() time.Time
	records map[string]*types.PathProgress
}

func NewStore(cache Cache, baseLog *logger.Logger, opts ...StoreOption) *Store {
	if baseLog == nil {
		baseLog = logger.Nop()
	}
	s := &Store{
		cache:   cache,
		log:     baseLog.With("module", "ProgressStore"),
		now:     func() time.Time { return time.Now().UTC() },
		records: map[string]*types.PathProgress{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open loads the cache. Records already mutated in memory win over loaded copies.
func (s *Store) Open(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	loaded, err := s.cache.Load(ctx)
	if err != nil {
		return fmt.Errorf("load progress cache: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, rec := range loaded {
		if rec == nil {
			continue
		}
		if _, ok := s.records[k]; ok {
			continue
		}
		rec = rec.Clone()
		rec.Recompute()
		s.records[k] = rec
	}
	s.log.Debug("progress cache loaded", "records", len(loaded))
	return nil
}

// Close flushes every record to the cache.
func (s *Store) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persistLocked(ctx)
}

// Get returns a copy of the record, or nil.
func (s *Store) Get(key types.Key) *types.PathProgress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records[key.String()].Clone()
}

// Keys lists every cached key in sorted order.
func (s *Store) Keys() []types.Key {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.Key, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec.Key())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// Initialize creates an empty record with the curriculum's item count as baseline.
// An existing record is left alone apart from raising TotalItems to the hint.
func (s *Store) Initialize(ctx context.Context, key types.Key, totalItems int) (Initialized, error) {
	if err := validKey(key); err != nil {
		return Initialized{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[key.String()]
	switch {
	case !ok:
		s.records[key.String()] = types.New(key, totalItems, s.now())
	case totalItems > rec.TotalItems:
		rec.TotalItems = totalItems
		rec.Recompute()
	default:
		return Initialized{key: key}, nil
	}
	if err := s.persistLocked(ctx); err != nil {
		return Initialized{key: key}, err
	}
	return Initialized{key: key}, nil
}

// SetItemStatus upserts one item and refreshes the aggregates. Repeating a call with the
// same arguments leaves the record unchanged apart from LastAccessed.
func (s *Store) SetItemStatus(ctx context.Context, key types.Key, itemID string, status types.Status) (*types.PathProgress, error) {
	if err := validKey(key); err != nil {
		return nil, err
	}
	itemID = strings.TrimSpace(itemID)
	if itemID == "" {
		return nil, fmt.Errorf("empty item id: %w", ErrUnknownItem)
	}
	if !status.Valid() {
		return nil, fmt.Errorf("%q: %w", status, ErrInvalidStatus)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	rec, ok := s.records[key.String()]
	if !ok {
		rec = types.New(key, 0, now)
		s.records[key.String()] = rec
	}

	prev, existed := rec.Items[itemID]
	next := prev
	if !existed || prev.Status != status {
		next.Status = status
		next.UpdatedAt = now
	}
	if status == types.StatusDone {
		if next.CompletedAt == nil {
			ts := now
			next.CompletedAt = &ts
		}
	} else {
		next.CompletedAt = nil
	}
	rec.Items[itemID] = next
	rec.LastAccessed = now
	rec.Recompute()

	out := rec.Clone()
	if err := s.persistLocked(ctx); err != nil {
		return out, err
	}
	return out, nil
}

// Touch stamps LastAccessed on an existing record.
func (s *Store) Touch(ctx context.Context, key types.Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[key.String()]
	if !ok {
		return nil
	}
	rec.LastAccessed = s.now()
	return s.persistLocked(ctx)
}

// apply swaps in the record fn derives from the current one, all under the store lock,
// so an item change cannot land between the read and the write. fn gets a copy of the
// local record (nil when absent) and may return it modified. It returns the item count
// of the stored record.
func (s *Store) apply(ctx context.Context, key types.Key, fn func(local *types.PathProgress) *types.PathProgress) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := fn(s.records[key.String()].Clone())
	next.PathID, next.Slug = key.PathID, key.Slug
	next.Recompute()
	s.records[key.String()] = next
	return len(next.Items), s.persistLocked(ctx)
}

func (s *Store) persistLocked(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	snapshot := make(map[string]*types.PathProgress, len(s.records))
	for k, rec := range s.records {
		snapshot[k] = rec.Clone()
	}
	if err := s.cache.Save(ctx, snapshot); err != nil {
		s.log.Warn("progress cache save failed", "error", err, "records", len(snapshot))
		return fmt.Errorf("save progress cache: %w", err)
	}
	return nil
}

func validKey(key types.Key) error {
	if strings.TrimSpace(key.PathID) == "" {
		return ErrInvalidKey
	}
	return nil
}
