package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"grifttracker/internal/repository"
	"grifttracker/internal/resolve"
)

type IdentityHandler struct {
	Repo     repository.Repository
	Resolver *resolve.Resolver
}

func (h *IdentityHandler) Register(r *gin.Engine) {
	r.GET("/api/v1/actors", h.listActors)
	r.GET("/api/v1/actors/:id", h.getActor)
	r.POST("/api/v1/actors/merge", h.mergeActors)
	r.GET("/api/v1/entities", h.listEntities)
	r.GET("/api/v1/entities/:id", h.getEntity)
	r.POST("/api/v1/entities/merge", h.mergeEntities)
}

func (h *IdentityHandler) listActors(c *gin.Context) {
	items, err := h.Repo.ListActors(c.Request.Context())
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, nil)
}

func (h *IdentityHandler) getActor(c *gin.Context) {
	item, err := h.Repo.GetActorByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if item == nil {
		Error(c, http.StatusNotFound, "actor not found", nil)
		return
	}
	Ok(c, item, nil)
}

type mergeRequest struct {
	SurvivorID  string `json:"survivor_id" binding:"required"`
	DuplicateID string `json:"duplicate_id" binding:"required"`
}

func (h *IdentityHandler) mergeActors(c *gin.Context) {
	var req mergeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if err := h.Resolver.MergeActors(c.Request.Context(), req.SurvivorID, req.DuplicateID); err != nil {
		Error(c, http.StatusUnprocessableEntity, err.Error(), nil)
		return
	}
	Ok(c, gin.H{"survivor_id": req.SurvivorID, "duplicate_id": req.DuplicateID}, nil)
}

func (h *IdentityHandler) listEntities(c *gin.Context) {
	items, err := h.Repo.ListEntities(c.Request.Context())
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, nil)
}

func (h *IdentityHandler) getEntity(c *gin.Context) {
	item, err := h.Repo.GetEntityByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if item == nil {
		Error(c, http.StatusNotFound, "entity not found", nil)
		return
	}
	Ok(c, item, nil)
}

func (h *IdentityHandler) mergeEntities(c *gin.Context) {
	var req mergeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if err := h.Resolver.MergeEntities(c.Request.Context(), req.SurvivorID, req.DuplicateID); err != nil {
		Error(c, http.StatusUnprocessableEntity, err.Error(), nil)
		return
	}
	Ok(c, gin.H{"survivor_id": req.SurvivorID, "duplicate_id": req.DuplicateID}, nil)
}
