package db

import (
	"github.com/yungbote/pathprogress/internal/domain/curriculum"
	types "github.com/yungbote/pathprogress/internal/domain/progress"
	"gorm.io/gorm"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		&curriculum.Path{},
		&types.PathProgressRow{},
	)
}
