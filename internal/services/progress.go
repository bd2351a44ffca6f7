package services

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/pathprogress/internal/data/repos"
	types "github.com/yungbote/pathprogress/internal/domain/progress"
	"github.com/yungbote/pathprogress/internal/modules/progress"
	"github.com/yungbote/pathprogress/internal/observability"
	"github.com/yungbote/pathprogress/internal/platform/dbctx"
	"github.com/yungbote/pathprogress/internal/platform/logger"
)

type ProgressService interface {
	Get(ctx context.Context, pathID, slug string) (*types.PathProgress, error)
	// Put stores p under (pathID, slug). Counters in p are ignored and recomputed.
	Put(ctx context.Context, pathID, slug string, p *types.PathProgress) (*types.PathProgress, error)
}

type progressService struct {
	paths    PathService
	rows     repos.PathProgressRepo
	notifier Notifier
	metrics  *observability.Metrics
	log      *logger.Logger
}

func NewProgressService(paths PathService, rows repos.PathProgressRepo, notifier Notifier, metrics *observability.Metrics, baseLog *logger.Logger) ProgressService {
	return &progressService{
		paths:    paths,
		rows:     rows,
		notifier: notifier,
		metrics:  metrics,
		log:      baseLog.With("service", "ProgressService"),
	}
}

func (s *progressService) Get(ctx context.Context, pathID, slug string) (*types.PathProgress, error) {
	id, err := uuid.Parse(strings.TrimSpace(pathID))
	if err != nil {
		return nil, notFound(CodePathNotFound, "path %q", pathID)
	}
	row, err := s.rows.Get(dbctx.Context{Ctx: ctx}, id, slug)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, notFound(CodeProgressNotFound, "progress %s/%s", id, slug)
	}
	p, err := row.ToProgress()
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *progressService) Put(ctx context.Context, pathID, slug string, p *types.PathProgress) (*types.PathProgress, error) {
	if p == nil {
		return nil, invalid(CodeInvalidProgress, "empty progress body")
	}
	path, err := s.paths.Get(ctx, pathID)
	if err != nil {
		return nil, err
	}
	if (p.PathID != "" && p.PathID != path.ID.String()) || (p.Slug != "" && p.Slug != slug) {
		return nil, invalid(CodeInvalidProgress, "body key %s/%s does not match %s/%s", p.PathID, p.Slug, path.ID, slug)
	}
	for id, it := range p.Items {
		if strings.TrimSpace(id) == "" || !it.Status.Valid() {
			s.metrics.IncProgressWrite("rejected")
			return nil, invalid(CodeInvalidStatus, "item %q status %q", id, it.Status)
		}
	}

	next := p.Clone()
	next.PathID, next.Slug = path.ID.String(), slug
	next.TotalItems = 0

	// The stored total never shrinks and never falls below the curriculum's item count.
	if doc, err := path.Document(); err == nil {
		next.TotalItems = progress.TotalItems(progress.Normalize(doc))
	} else {
		s.log.Warn("curriculum decode failed, total from items only", "path_id", path.ID, "error", err)
	}
	if p.TotalItems > next.TotalItems {
		next.TotalItems = p.TotalItems
	}
	dbc := dbctx.Context{Ctx: ctx}
	prev, err := s.rows.Get(dbc, path.ID, slug)
	if err != nil {
		return nil, err
	}
	if prev != nil && prev.TotalItems > next.TotalItems {
		next.TotalItems = prev.TotalItems
	}
	next.Recompute()

	row, err := types.RowFromProgress(path.ID, next)
	if err != nil {
		return nil, err
	}
	if err := s.rows.Upsert(dbc, row); err != nil {
		s.metrics.IncProgressWrite("error")
		return nil, err
	}
	s.metrics.IncProgressWrite("ok")
	s.log.Debug("progress stored", "path_id", next.PathID, "slug", slug, "completed", next.CompletedItems, "total", next.TotalItems)
	if s.notifier != nil {
		s.notifier.ProgressUpdated(ctx, next)
	}
	return next, nil
}
