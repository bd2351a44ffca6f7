package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	types "github.com/yungbote/pathprogress/internal/domain/progress"
	"github.com/yungbote/pathprogress/internal/http/response"
	"github.com/yungbote/pathprogress/internal/platform/ctxutil"
	"github.com/yungbote/pathprogress/internal/platform/logger"
	"github.com/yungbote/pathprogress/internal/services"
)

type ProgressHandler struct {
	log      *logger.Logger
	progress services.ProgressService
}

func NewProgressHandler(log *logger.Logger, progress services.ProgressService) *ProgressHandler {
	return &ProgressHandler{log: log.With("handler", "ProgressHandler"), progress: progress}
}

func (h *ProgressHandler) GetProgress(c *gin.Context) {
	slug := types.SlugFromSegment(c.Param("slug"))
	p, err := h.progress.Get(c.Request.Context(), c.Param("id"), slug)
	if err != nil {
		response.RespondAPIError(c, "load_progress_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"progress": p})
}

func (h *ProgressHandler) PutProgress(c *gin.Context) {
	var body types.PathProgress
	if err := c.ShouldBindJSON(&body); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_progress", err)
		return
	}
	slug := types.SlugFromSegment(c.Param("slug"))
	p, err := h.progress.Put(c.Request.Context(), c.Param("id"), slug, &body)
	if err != nil {
		h.log.Warn("PutProgress failed", append(ctxutil.LogFields(c.Request.Context()), "error", err)...)
		response.RespondAPIError(c, "store_progress_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"progress": p})
}
