package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/pathprogress/internal/http/response"
	"github.com/yungbote/pathprogress/internal/platform/logger"
	"github.com/yungbote/pathprogress/internal/realtime"
	"github.com/yungbote/pathprogress/internal/services"
)

type RealtimeHandler struct {
	log   *logger.Logger
	hub   *realtime.SSEHub
	paths services.PathService
}

func NewRealtimeHandler(log *logger.Logger, hub *realtime.SSEHub, paths services.PathService) *RealtimeHandler {
	return &RealtimeHandler{log: log.With("handler", "RealtimeHandler"), hub: hub, paths: paths}
}

// PathEvents streams progress.updated and path.updated events for one path.
func (h *RealtimeHandler) PathEvents(c *gin.Context) {
	path, err := h.paths.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.RespondAPIError(c, "load_path_failed", err)
		return
	}
	client := h.hub.NewSSEClient()
	h.hub.AddChannel(client, path.ID.String())
	h.log.Debug("event stream open", "client_id", client.ID, "path_id", path.ID)

	h.hub.ServeHTTP(c.Writer, c.Request, client)

	h.hub.CloseClient(client)
	h.log.Debug("event stream closed", "client_id", client.ID, "path_id", path.ID)
}
