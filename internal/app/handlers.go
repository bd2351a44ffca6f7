package app

import (
	httpH "github.com/yungbote/pathprogress/internal/http/handlers"
	"github.com/yungbote/pathprogress/internal/platform/logger"
	"github.com/yungbote/pathprogress/internal/realtime"
)

type Handlers struct {
	Health   *httpH.HealthHandler
	Path     *httpH.PathHandler
	Progress *httpH.ProgressHandler
	Realtime *httpH.RealtimeHandler
}

func wireHandlers(log *logger.Logger, serviceset Services, hub *realtime.SSEHub, checks map[string]httpH.Pinger) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:   httpH.NewHealthHandler(checks),
		Path:     httpH.NewPathHandler(log, serviceset.Path),
		Progress: httpH.NewProgressHandler(log, serviceset.Progress),
		Realtime: httpH.NewRealtimeHandler(log, hub, serviceset.Path),
	}
}
