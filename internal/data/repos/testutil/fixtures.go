package testutil

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/pathprogress/internal/domain/curriculum"
)

func SeedPath(tb testing.TB, ctx context.Context, tx *gorm.DB, title string, doc *curriculum.Document) *curriculum.Path {
	tb.Helper()
	p := &curriculum.Path{ID: uuid.New(), Title: title}
	if err := p.SetDocument(doc); err != nil {
		tb.Fatalf("encode curriculum: %v", err)
	}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed path: %v", err)
	}
	return p
}

// GoDoc is a one-module curriculum with three items.
func GoDoc() *curriculum.Document {
	return &curriculum.Document{
		Title: "Intro to Go",
		Modules: []curriculum.Module{{
			ID:           "m0",
			Title:        "Basics",
			Competencies: []curriculum.Entry{{Title: "Syntax"}, {Title: "Types"}},
			Resources:    []curriculum.Entry{{Title: "Tour of Go", URL: "https://go.dev/tour"}},
		}},
	}
}
