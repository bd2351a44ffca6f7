package curriculum

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	StatusNotStarted = "not_started"
	StatusActive     = "active"
	StatusCompleted  = "completed"
)

// ValidStatus reports whether s is one of the path metadata statuses.
func ValidStatus(s string) bool {
	switch s {
	case StatusNotStarted, StatusActive, StatusCompleted:
		return true
	}
	return false
}

// Path is one generated curriculum instance owned by the storage service.
// The slug is never stored; it is derived from Title wherever it is needed.
type Path struct {
	ID               uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Title            string         `gorm:"column:title;not null" json:"title"`
	Curriculum       datatypes.JSON `gorm:"column:curriculum;type:jsonb" json:"curriculum,omitempty"`
	Status           string         `gorm:"column:status;not null;default:'not_started';index" json:"status"`
	Progress         int            `gorm:"column:progress;not null;default:0" json:"progress"`
	CompletedModules int            `gorm:"column:completed_modules;not null;default:0" json:"completed_modules"`
	LastAccessedAt   *time.Time     `gorm:"column:last_accessed_at;index" json:"last_accessed_at,omitempty"`
	CreatedAt        time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Path) TableName() string { return "path" }

func (p *Path) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Status == "" {
		p.Status = StatusNotStarted
	}
	return nil
}

// Document decodes the stored curriculum. An empty column yields an empty document.
func (p *Path) Document() (*Document, error) {
	if p == nil || len(p.Curriculum) == 0 {
		return &Document{}, nil
	}
	return ParseDocument(p.Curriculum)
}

// SetDocument encodes doc into the Curriculum column.
func (p *Path) SetDocument(doc *Document) error {
	if doc == nil {
		doc = &Document{}
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode curriculum: %w", err)
	}
	p.Curriculum = datatypes.JSON(raw)
	return nil
}

// Metadata is the write-only path summary pushed back after progress changes.
type Metadata struct {
	LastAccessed     time.Time `json:"last_accessed"`
	Progress         int       `json:"progress"`
	CompletedModules int       `json:"completed_modules"`
	Status           string    `json:"status"`
}
