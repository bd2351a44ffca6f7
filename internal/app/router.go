package app

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/pathprogress/internal/http"
	"github.com/yungbote/pathprogress/internal/observability"
	"github.com/yungbote/pathprogress/internal/platform/logger"
)

func wireRouter(log *logger.Logger, cfg Config, handlers Handlers, metrics *observability.Metrics) *gin.Engine {
	serviceName := ""
	if cfg.Otel.Enabled {
		serviceName = cfg.Otel.ServiceName
	}
	return http.NewRouter(http.RouterConfig{
		HealthHandler:   handlers.Health,
		PathHandler:     handlers.Path,
		ProgressHandler: handlers.Progress,
		RealtimeHandler: handlers.Realtime,
		Metrics:         metrics,
		Log:             log,
		CORSOrigins:     cfg.CORSOrigins,
		ServiceName:     serviceName,
	})
}
