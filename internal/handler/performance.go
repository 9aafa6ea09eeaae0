package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"grifttracker/internal/perf"
	"grifttracker/internal/repository"
)

type PerformanceHandler struct {
	Repo    repository.Repository
	Tracker *perf.Tracker
}

func (h *PerformanceHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/performance")
	group.GET("/:suggestion_id", h.list)
	group.POST("/run", h.run)
}

func (h *PerformanceHandler) list(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("suggestion_id"), 10, 64)
	if err != nil {
		Error(c, http.StatusBadRequest, "invalid suggestion id", nil)
		return
	}
	items, err := h.Repo.ListPerformanceRecords(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, nil)
}

func (h *PerformanceHandler) run(c *gin.Context) {
	graded, err := h.Tracker.RunAll(c.Request.Context(), time.Now().UTC())
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, gin.H{"graded": graded}, nil)
}
