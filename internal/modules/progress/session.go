package progress

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/yungbote/pathprogress/internal/domain/curriculum"
	types "github.com/yungbote/pathprogress/internal/domain/progress"
	"github.com/yungbote/pathprogress/internal/modules/progress/keys"
	"github.com/yungbote/pathprogress/internal/platform/apierr"
	"github.com/yungbote/pathprogress/internal/platform/logger"
)

// CurriculumService is the read side of the path storage service.
type CurriculumService interface {
	ListPaths(ctx context.Context) ([]*curriculum.Path, error)
	GetPath(ctx context.Context, id string) (*curriculum.Path, error)
}

// ProgressWriter receives the local record after each item change. Optional.
type ProgressWriter interface {
	PutProgress(ctx context.Context, p *types.PathProgress) error
}

type SessionDeps struct {
	Log        *logger.Logger
	Paths      CurriculumService
	Store      *Store
	Reconciler *Reconciler
	Builder    *Builder
	Writer     ProgressWriter
}

// Session runs the per-path load sequence: resolve, normalize, initialize, reconcile,
// build. Reconciliation happens at most once per key for the session's lifetime.
type Session struct {
	log        *logger.Logger
	paths      CurriculumService
	store      *Store
	reconciler *Reconciler
	builder    *Builder
	writer     ProgressWriter

	mu         sync.Mutex
	reconciled map[string]*reconcileOnce
}

// reconcileOnce lets concurrent loads of one key share a single reconcile.
type reconcileOnce struct {
	once sync.Once
	rec  Reconciled
}

func NewSession(deps SessionDeps) *Session {
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}
	return &Session{
		log:        log.With("module", "ProgressSession"),
		paths:      deps.Paths,
		store:      deps.Store,
		reconciler: deps.Reconciler,
		builder:    deps.Builder,
		writer:     deps.Writer,
		reconciled: map[string]*reconcileOnce{},
	}
}

// loaded is one resolved path with its derived sections and reconciled key.
type loaded struct {
	path     *curriculum.Path
	sections []Section
	rec      Reconciled
}

// Resolve accepts a path id or a route slug.
func (s *Session) Resolve(ctx context.Context, ref string) (*curriculum.Path, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, ErrPathNotFound
	}
	if _, err := uuid.Parse(ref); err == nil {
		p, err := s.paths.GetPath(ctx, ref)
		if err != nil {
			if errors.Is(err, apierr.ErrNotFound) {
				return nil, fmt.Errorf("id %q: %w", ref, ErrPathNotFound)
			}
			return nil, err
		}
		if p == nil {
			return nil, fmt.Errorf("id %q: %w", ref, ErrPathNotFound)
		}
		return p, nil
	}

	all, err := s.paths.ListPaths(ctx)
	if err != nil {
		return nil, err
	}
	p, err := ResolveBySlug(all, ref)
	if err != nil {
		return nil, err
	}
	if n := SlugMatches(all, ref); n > 1 {
		s.log.Warn("slug collision, using first match", "slug", keys.Slug(ref), "matches", n, "path_id", p.ID)
	}
	return p, nil
}

func (s *Session) load(ctx context.Context, ref string) (*loaded, error) {
	path, err := s.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	doc, err := path.Document()
	if err != nil {
		// A curriculum that cannot be decoded degrades to an empty one.
		s.log.Warn("curriculum decode failed", "path_id", path.ID, "error", err)
		doc = &curriculum.Document{}
	}
	sections := Normalize(doc)
	key := types.Key{PathID: path.ID.String(), Slug: keys.Slug(path.Title)}

	init, err := s.store.Initialize(ctx, key, TotalItems(sections))
	if errors.Is(err, ErrInvalidKey) {
		return nil, err
	}
	if err != nil {
		s.log.Warn("progress initialize not persisted", "path_id", key.PathID, "error", err)
	}

	s.mu.Lock()
	ro, ok := s.reconciled[key.String()]
	if !ok {
		ro = &reconcileOnce{}
		s.reconciled[key.String()] = ro
	}
	s.mu.Unlock()
	ro.once.Do(func() { ro.rec = s.reconciler.Reconcile(ctx, init) })
	return &loaded{path: path, sections: sections, rec: ro.rec}, nil
}

// Open loads a path and returns its view.
func (s *Session) Open(ctx context.Context, ref string) (PathView, error) {
	l, err := s.load(ctx, ref)
	if err != nil {
		return PathView{}, err
	}
	if err := s.store.Touch(ctx, l.rec.Key()); err != nil {
		s.log.Warn("progress touch not persisted", "path_id", l.rec.Key().PathID, "error", err)
	}
	return s.builder.Build(ctx, l.rec, l.path.Title, l.sections), nil
}

// SetItemStatus changes one item of the referenced path and returns the refreshed view.
func (s *Session) SetItemStatus(ctx context.Context, ref, itemID string, status types.Status) (PathView, error) {
	l, err := s.load(ctx, ref)
	if err != nil {
		return PathView{}, err
	}
	if _, ok := FindItem(l.sections, itemID); !ok {
		return PathView{}, fmt.Errorf("%q: %w", itemID, ErrUnknownItem)
	}
	rec, err := s.store.SetItemStatus(ctx, l.rec.Key(), itemID, status)
	if err != nil {
		if rec == nil {
			return PathView{}, err
		}
		s.log.Warn("item status not persisted locally", "path_id", l.rec.Key().PathID, "item_id", itemID, "error", err)
	}
	if s.writer != nil {
		if err := s.writer.PutProgress(ctx, rec); err != nil {
			s.log.Warn("progress push failed", "path_id", rec.PathID, "error", err)
		}
	}
	return s.builder.Build(ctx, l.rec, l.path.Title, l.sections), nil
}

// Close flushes the store.
func (s *Session) Close(ctx context.Context) error {
	return s.store.Close(ctx)
}
