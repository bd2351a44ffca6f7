package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/pathprogress/internal/data/repos"
	"github.com/yungbote/pathprogress/internal/platform/logger"
)

type Repos struct {
	Path         repos.PathRepo
	PathProgress repos.PathProgressRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Path:         repos.NewPathRepo(db, log),
		PathProgress: repos.NewPathProgressRepo(db, log),
	}
}
