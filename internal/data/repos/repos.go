package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/pathprogress/internal/data/repos/learning"
	"github.com/yungbote/pathprogress/internal/platform/logger"
)

type PathRepo = learning.PathRepo
type PathProgressRepo = learning.PathProgressRepo

func NewPathRepo(db *gorm.DB, log *logger.Logger) PathRepo { return learning.NewPathRepo(db, log) }

func NewPathProgressRepo(db *gorm.DB, log *logger.Logger) PathProgressRepo {
	return learning.NewPathProgressRepo(db, log)
}
