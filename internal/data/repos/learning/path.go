package learning

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/pathprogress/internal/domain/curriculum"
	"github.com/yungbote/pathprogress/internal/platform/dbctx"
	"github.com/yungbote/pathprogress/internal/platform/logger"
)

type PathRepo interface {
	Create(dbc dbctx.Context, rows []*curriculum.Path) ([]*curriculum.Path, error)

	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*curriculum.Path, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*curriculum.Path, error)

	// List returns every live path in creation order. Slug resolution depends on
	// this order being stable.
	List(dbc dbctx.Context) ([]*curriculum.Path, error)

	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	SoftDeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error
}

type pathRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPathRepo(db *gorm.DB, baseLog *logger.Logger) PathRepo {
	return &pathRepo{db: db, log: baseLog.With("repo", "PathRepo")}
}

func (r *pathRepo) Create(dbc dbctx.Context, rows []*curriculum.Path) ([]*curriculum.Path, error) {
	if len(rows) == 0 {
		return []*curriculum.Path{}, nil
	}
	if err := dbc.DB(r.db).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *pathRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*curriculum.Path, error) {
	var out []*curriculum.Path
	if len(ids) == 0 {
		return out, nil
	}
	if err := dbc.DB(r.db).Where("id IN ?", ids).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *pathRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*curriculum.Path, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	rows, err := r.GetByIDs(dbc, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *pathRepo) List(dbc dbctx.Context) ([]*curriculum.Path, error) {
	var out []*curriculum.Path
	if err := dbc.DB(r.db).
		Order("created_at ASC, id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *pathRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil {
		return nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	return dbc.DB(r.db).
		Model(&curriculum.Path{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *pathRepo) SoftDeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return dbc.DB(r.db).Where("id IN ?", ids).Delete(&curriculum.Path{}).Error
}
