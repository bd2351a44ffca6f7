package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/pathprogress/internal/http/handlers"
	httpMW "github.com/yungbote/pathprogress/internal/http/middleware"
	"github.com/yungbote/pathprogress/internal/observability"
	"github.com/yungbote/pathprogress/internal/platform/logger"
)

type RouterConfig struct {
	HealthHandler   *httpH.HealthHandler
	PathHandler     *httpH.PathHandler
	ProgressHandler *httpH.ProgressHandler
	RealtimeHandler *httpH.RealtimeHandler

	Metrics     *observability.Metrics
	Log         *logger.Logger
	CORSOrigins []string
	ServiceName string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
		r.GET("/readyz", cfg.HealthHandler.Ready)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapF(cfg.Metrics.WriteHTTP))
	}

	api := r.Group("/api")

	// Paths
	if cfg.PathHandler != nil {
		api.GET("/paths", cfg.PathHandler.ListPaths)
		api.POST("/paths", cfg.PathHandler.CreatePath)
		api.GET("/paths/slug/:slug", cfg.PathHandler.GetPathBySlug)
		api.GET("/paths/:id", cfg.PathHandler.GetPath)
		api.PATCH("/paths/:id/metadata", cfg.PathHandler.UpdateMetadata)
	}

	// Progress
	if cfg.ProgressHandler != nil {
		api.GET("/paths/:id/progress/:slug", cfg.ProgressHandler.GetProgress)
		api.PUT("/paths/:id/progress/:slug", cfg.ProgressHandler.PutProgress)
	}

	// Realtime (SSE)
	if cfg.RealtimeHandler != nil {
		api.GET("/paths/:id/events", cfg.RealtimeHandler.PathEvents)
	}

	return r
}
