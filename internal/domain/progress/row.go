package progress

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PathProgressRow is the server-side persisted snapshot for one (path, slug).
type PathProgressRow struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	PathID         uuid.UUID      `gorm:"type:uuid;not null;index:idx_path_progress_key,unique,priority:1" json:"path_id"`
	Slug           string         `gorm:"column:slug;not null;index:idx_path_progress_key,unique,priority:2" json:"slug"`
	Items          datatypes.JSON `gorm:"column:items;type:jsonb" json:"items"`
	TotalItems     int            `gorm:"column:total_items;not null;default:0" json:"total_items"`
	CompletedItems int            `gorm:"column:completed_items;not null;default:0" json:"completed_items"`
	TotalProgress  int            `gorm:"column:total_progress;not null;default:0" json:"total_progress"`
	LastAccessedAt time.Time      `gorm:"column:last_accessed_at;index" json:"last_accessed_at"`
	CreatedAt      time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

func (PathProgressRow) TableName() string { return "path_progress" }

func (r *PathProgressRow) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// ToProgress decodes the row. Counters are recomputed rather than trusted.
func (r *PathProgressRow) ToProgress() (*PathProgress, error) {
	p := &PathProgress{
		PathID:       r.PathID.String(),
		Slug:         r.Slug,
		Items:        map[string]ItemProgress{},
		TotalItems:   r.TotalItems,
		LastAccessed: r.LastAccessedAt,
	}
	if len(r.Items) > 0 {
		if err := json.Unmarshal(r.Items, &p.Items); err != nil {
			return nil, fmt.Errorf("decode progress items: %w", err)
		}
	}
	p.Recompute()
	return p, nil
}

// RowFromProgress encodes p for storage under pathID.
func RowFromProgress(pathID uuid.UUID, p *PathProgress) (*PathProgressRow, error) {
	items := p.Items
	if items == nil {
		items = map[string]ItemProgress{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("encode progress items: %w", err)
	}
	return &PathProgressRow{
		PathID:         pathID,
		Slug:           p.Slug,
		Items:          datatypes.JSON(raw),
		TotalItems:     p.TotalItems,
		CompletedItems: p.CompletedItems,
		TotalProgress:  p.TotalProgress,
		LastAccessedAt: p.LastAccessed,
	}, nil
}
