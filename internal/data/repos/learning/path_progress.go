package learning

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/pathprogress/internal/domain/progress"
	"github.com/yungbote/pathprogress/internal/platform/dbctx"
	"github.com/yungbote/pathprogress/internal/platform/logger"
)

type PathProgressRepo interface {
	// Get returns nil, nil when no snapshot exists for (pathID, slug).
	Get(dbc dbctx.Context, pathID uuid.UUID, slug string) (*types.PathProgressRow, error)
	ListByPath(dbc dbctx.Context, pathID uuid.UUID) ([]*types.PathProgressRow, error)
	// Upsert inserts or overwrites the snapshot keyed by (path_id, slug).
	Upsert(dbc dbctx.Context, row *types.PathProgressRow) error
}

type pathProgressRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPathProgressRepo(db *gorm.DB, baseLog *logger.Logger) PathProgressRepo {
	return &pathProgressRepo{db: db, log: baseLog.With("repo", "PathProgressRepo")}
}

func (r *pathProgressRepo) Get(dbc dbctx.Context, pathID uuid.UUID, slug string) (*types.PathProgressRow, error) {
	if pathID == uuid.Nil {
		return nil, nil
	}
	var row types.PathProgressRow
	err := dbc.DB(r.db).
		Where("path_id = ? AND slug = ?", pathID, slug).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *pathProgressRepo) ListByPath(dbc dbctx.Context, pathID uuid.UUID) ([]*types.PathProgressRow, error) {
	var out []*types.PathProgressRow
	if pathID == uuid.Nil {
		return out, nil
	}
	if err := dbc.DB(r.db).
		Where("path_id = ?", pathID).
		Order("slug ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *pathProgressRepo) Upsert(dbc dbctx.Context, row *types.PathProgressRow) error {
	if row == nil || row.PathID == uuid.Nil {
		return nil
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	return dbc.DB(r.db).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "path_id"}, {Name: "slug"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"items", "total_items", "completed_items", "total_progress", "last_accessed_at", "updated_at", "deleted_at",
		}),
	}).Create(row).Error
}
