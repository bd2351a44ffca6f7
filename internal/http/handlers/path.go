package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/pathprogress/internal/domain/curriculum"
	"github.com/yungbote/pathprogress/internal/http/response"
	"github.com/yungbote/pathprogress/internal/platform/logger"
	"github.com/yungbote/pathprogress/internal/services"
)

type PathHandler struct {
	log   *logger.Logger
	paths services.PathService
}

func NewPathHandler(log *logger.Logger, paths services.PathService) *PathHandler {
	return &PathHandler{log: log.With("handler", "PathHandler"), paths: paths}
}

func (h *PathHandler) ListPaths(c *gin.Context) {
	rows, err := h.paths.List(c.Request.Context())
	if err != nil {
		h.log.Error("ListPaths failed", "error", err)
		response.RespondAPIError(c, "load_paths_failed", err)
		return
	}
	if rows == nil {
		rows = []*curriculum.Path{}
	}
	response.RespondOK(c, gin.H{"paths": rows})
}

func (h *PathHandler) GetPath(c *gin.Context) {
	row, err := h.paths.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.RespondAPIError(c, "load_path_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"path": row})
}

func (h *PathHandler) GetPathBySlug(c *gin.Context) {
	row, err := h.paths.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		response.RespondAPIError(c, "load_path_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"path": row})
}

type createPathRequest struct {
	Title string `json:"title"`
	// Curriculum is decoded leniently: JSON object, or a YAML/JSON document in a string.
	Curriculum any `json:"curriculum"`
}

// CreatePath accepts either {"title", "curriculum"} JSON or a raw YAML document body.
func (h *PathHandler) CreatePath(c *gin.Context) {
	raw, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, 4<<20))
	if err != nil {
		response.RespondError(c, http.StatusRequestEntityTooLarge, "body_too_large", err)
		return
	}
	title, doc, err := decodeCreatePath(c.ContentType(), raw)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_curriculum", err)
		return
	}
	if q := c.Query("title"); q != "" {
		title = q
	}
	row, err := h.paths.Create(c.Request.Context(), title, doc)
	if err != nil {
		h.log.Warn("CreatePath failed", "error", err)
		response.RespondAPIError(c, "create_path_failed", err)
		return
	}
	response.RespondCreated(c, gin.H{"path": row})
}

func (h *PathHandler) UpdateMetadata(c *gin.Context) {
	var md curriculum.Metadata
	if err := c.ShouldBindJSON(&md); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	row, err := h.paths.UpdateMetadata(c.Request.Context(), c.Param("id"), md)
	if err != nil {
		response.RespondAPIError(c, "update_metadata_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"path": row})
}
