package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"grifttracker/internal/adapter"
	"grifttracker/internal/models"
	"grifttracker/internal/repository"
)

type SourceHandler struct {
	Repo repository.Repository
}

func (h *SourceHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/sources")
	group.GET("", h.list)
	group.POST("", h.register)
}

func (h *SourceHandler) list(c *gin.Context) {
	enabledOnly := c.Query("enabled") == "true"
	items, err := h.Repo.ListSourceDescriptors(c.Request.Context(), enabledOnly)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, nil)
}

type registerSourceRequest struct {
	Name         string `json:"name" binding:"required"`
	Kind         string `json:"kind" binding:"required"`
	Endpoint     string `json:"endpoint" binding:"required"`
	AuthTokenEnv string `json:"auth_token_env"`
	RateLimit    int    `json:"rate_limit"`
	RatePeriod   string `json:"rate_period"`
	Enabled      *bool  `json:"enabled"`
}

func (h *SourceHandler) register(c *gin.Context) {
	var req registerSourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if _, err := adapter.ForKind(adapter.Kind(req.Kind), nil); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}
	desc := &models.SourceDescriptor{
		Name:         req.Name,
		Kind:         req.Kind,
		Endpoint:     req.Endpoint,
		AuthTokenEnv: req.AuthTokenEnv,
		RateLimit:    req.RateLimit,
		RatePeriod:   req.RatePeriod,
		Enabled:      enabled,
	}
	if err := h.Repo.UpsertSourceDescriptor(c.Request.Context(), desc); err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, desc, nil)
}
