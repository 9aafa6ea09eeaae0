package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"grifttracker/internal/repository"
	"grifttracker/internal/suggest"
)

type SuggestionHandler struct {
	Repo       repository.Repository
	Aggregator *suggest.Aggregator
}

func (h *SuggestionHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/suggestions")
	group.GET("", h.list)
	group.GET("/:id", h.get)
	group.POST("/run", h.run)
}

func (h *SuggestionHandler) list(c *gin.Context) {
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)
	items, err := h.Repo.ListSuggestions(c.Request.Context(), repository.ListSuggestionsParams{
		EntityID:       strings.TrimSpace(c.Query("entity_id")),
		Recommendation: strings.TrimSpace(c.Query("recommendation")),
		Limit:          limit,
		Offset:         offset,
	})
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, paginationMeta(limit, offset, int64(len(items))))
}

func (h *SuggestionHandler) get(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		Error(c, http.StatusBadRequest, "invalid suggestion id", nil)
		return
	}
	item, err := h.Repo.GetSuggestionByID(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if item == nil {
		Error(c, http.StatusNotFound, "suggestion not found", nil)
		return
	}
	Ok(c, item, nil)
}

func (h *SuggestionHandler) run(c *gin.Context) {
	asOf := time.Now().UTC()
	if raw := strings.TrimSpace(c.Query("as_of")); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			Error(c, http.StatusBadRequest, "as_of must be RFC3339", nil)
			return
		}
		asOf = parsed.UTC()
	}
	generated, err := h.Aggregator.RunAll(c.Request.Context(), asOf)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, gin.H{"generated": generated, "as_of": asOf}, nil)
}
