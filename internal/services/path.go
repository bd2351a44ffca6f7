package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/pathprogress/internal/data/repos"
	"github.com/yungbote/pathprogress/internal/domain/curriculum"
	"github.com/yungbote/pathprogress/internal/modules/progress"
	"github.com/yungbote/pathprogress/internal/observability"
	"github.com/yungbote/pathprogress/internal/platform/dbctx"
	"github.com/yungbote/pathprogress/internal/platform/logger"
)

type PathService interface {
	List(ctx context.Context) ([]*curriculum.Path, error)
	Get(ctx context.Context, id string) (*curriculum.Path, error)
	// GetBySlug returns the first path, in creation order, whose title derives slug.
	GetBySlug(ctx context.Context, slug string) (*curriculum.Path, error)
	Create(ctx context.Context, title string, doc *curriculum.Document) (*curriculum.Path, error)
	UpdateMetadata(ctx context.Context, id string, md curriculum.Metadata) (*curriculum.Path, error)
}

type pathService struct {
	paths    repos.PathRepo
	notifier Notifier
	metrics  *observability.Metrics
	log      *logger.Logger
}

func NewPathService(paths repos.PathRepo, notifier Notifier, metrics *observability.Metrics, baseLog *logger.Logger) PathService {
	return &pathService{
		paths:    paths,
		notifier: notifier,
		metrics:  metrics,
		log:      baseLog.With("service", "PathService"),
	}
}

func (s *pathService) List(ctx context.Context) ([]*curriculum.Path, error) {
	return s.paths.List(dbctx.Context{Ctx: ctx})
}

func (s *pathService) Get(ctx context.Context, id string) (*curriculum.Path, error) {
	pathID, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return nil, notFound(CodePathNotFound, "path %q", id)
	}
	p, err := s.paths.GetByID(dbctx.Context{Ctx: ctx}, pathID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, notFound(CodePathNotFound, "path %s", pathID)
	}
	return p, nil
}

func (s *pathService) GetBySlug(ctx context.Context, slug string) (*curriculum.Path, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	p, err := progress.ResolveBySlug(all, slug)
	if err != nil {
		return nil, notFound(CodePathNotFound, "slug %q", slug)
	}
	if n := progress.SlugMatches(all, slug); n > 1 {
		s.log.Warn("slug collision, serving first match", "slug", slug, "matches", n, "path_id", p.ID)
	}
	return p, nil
}

func (s *pathService) Create(ctx context.Context, title string, doc *curriculum.Document) (*curriculum.Path, error) {
	title = strings.TrimSpace(title)
	if title == "" && doc != nil {
		title = strings.TrimSpace(doc.Title)
	}
	if title == "" {
		return nil, invalid(CodeInvalidRequest, "path title required")
	}
	p := &curriculum.Path{Title: title}
	if err := p.SetDocument(doc); err != nil {
		return nil, invalid(CodeInvalidRequest, "curriculum: %v", err)
	}
	if _, err := s.paths.Create(dbctx.Context{Ctx: ctx}, []*curriculum.Path{p}); err != nil {
		return nil, err
	}
	s.log.Info("path created", "path_id", p.ID, "title", p.Title)
	return p, nil
}

func (s *pathService) UpdateMetadata(ctx context.Context, id string, md curriculum.Metadata) (*curriculum.Path, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !curriculum.ValidStatus(md.Status) {
		s.metrics.IncMetadataUpdate("rejected")
		return nil, invalid(CodeInvalidStatus, "path status %q", md.Status)
	}
	if md.Progress < 0 || md.Progress > 100 || md.CompletedModules < 0 {
		s.metrics.IncMetadataUpdate("rejected")
		return nil, invalid(CodeInvalidRequest, "progress %d, completed modules %d", md.Progress, md.CompletedModules)
	}
	lastAccessed := md.LastAccessed.UTC()
	if md.LastAccessed.IsZero() {
		lastAccessed = time.Now().UTC()
	}
	updates := map[string]interface{}{
		"status":            md.Status,
		"progress":          md.Progress,
		"completed_modules": md.CompletedModules,
		"last_accessed_at":  lastAccessed,
	}
	if err := s.paths.UpdateFields(dbctx.Context{Ctx: ctx}, p.ID, updates); err != nil {
		return nil, err
	}
	p.Status, p.Progress, p.CompletedModules, p.LastAccessedAt = md.Status, md.Progress, md.CompletedModules, &lastAccessed
	s.metrics.IncMetadataUpdate(md.Status)
	if s.notifier != nil {
		s.notifier.PathUpdated(ctx, p)
	}
	return p, nil
}
