package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"grifttracker/internal/adapter"
	"grifttracker/internal/pipeline"
	"grifttracker/internal/repository"
)

type IngestHandler struct {
	Pipeline *pipeline.Pipeline
	Repo     repository.Repository
}

func (h *IngestHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/ingest")
	group.POST("", h.push)
	group.POST("/run", h.run)
	group.GET("/failures", h.listFailures)
}

type pushRequest struct {
	Source  string `json:"source" binding:"required"`
	Kind    string `json:"kind" binding:"required"`
	Payload string `json:"payload" binding:"required"`
}

func (h *IngestHandler) push(c *gin.Context) {
	var req pushRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	result, err := h.Pipeline.IngestPayload(c.Request.Context(), req.Source, adapter.Kind(req.Kind), []byte(req.Payload))
	if err != nil {
		Error(c, http.StatusUnprocessableEntity, err.Error(), nil)
		return
	}
	Ok(c, result, nil)
}

func (h *IngestHandler) run(c *gin.Context) {
	result, err := h.Pipeline.Run(c.Request.Context())
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, result, nil)
}

func (h *IngestHandler) listFailures(c *gin.Context) {
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)
	items, err := h.Repo.ListIngestFailures(c.Request.Context(), repository.ListFailuresParams{
		Source: strings.TrimSpace(c.Query("source")),
		Stage:  strings.TrimSpace(c.Query("stage")),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, paginationMeta(limit, offset, int64(len(items))))
}
