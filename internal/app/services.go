package app

import (
	"github.com/yungbote/pathprogress/internal/observability"
	"github.com/yungbote/pathprogress/internal/platform/logger"
	"github.com/yungbote/pathprogress/internal/realtime/bus"
	"github.com/yungbote/pathprogress/internal/services"
)

type Services struct {
	Notifier services.Notifier
	Path     services.PathService
	Progress services.ProgressService
}

func wireServices(log *logger.Logger, reposet Repos, b bus.Bus, metrics *observability.Metrics) Services {
	log.Info("Wiring services...")
	notifier := services.NewNotifier(b, metrics, log)
	paths := services.NewPathService(reposet.Path, notifier, metrics, log)
	return Services{
		Notifier: notifier,
		Path:     paths,
		Progress: services.NewProgressService(paths, reposet.PathProgress, notifier, metrics, log),
	}
}
