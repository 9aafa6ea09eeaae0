package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"grifttracker/internal/repository"
)

type SignalHandler struct {
	Repo repository.Repository
}

func (h *SignalHandler) Register(r *gin.Engine) {
	r.GET("/api/v1/signals", h.list)
	r.GET("/api/v1/events/:id", h.getEvent)
}

func (h *SignalHandler) list(c *gin.Context) {
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)

	var until *time.Time
	if raw := strings.TrimSpace(c.Query("until")); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			Error(c, http.StatusBadRequest, "until must be RFC3339", nil)
			return
		}
		parsed = parsed.UTC()
		until = &parsed
	}

	items, err := h.Repo.ListSignals(c.Request.Context(), repository.ListSignalsParams{
		EntityID: strings.TrimSpace(c.Query("entity_id")),
		Until:    until,
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, paginationMeta(limit, offset, int64(len(items))))
}

func (h *SignalHandler) getEvent(c *gin.Context) {
	item, err := h.Repo.GetEventByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if item == nil {
		Error(c, http.StatusNotFound, "event not found", nil)
		return
	}
	Ok(c, item, nil)
}
