package handler

import (
	"context"
	"net/http"

	"polygonal-zones/internal/models"

	"github.com/gin-gonic/gin"
)

// ZoneHandler handles zone file mutations and reloads
type ZoneHandler struct {
	service ZoneService
}

// ZoneService interface for dependency injection
type ZoneService interface {
	AddZone(ctx context.Context, trackerID string, feature []byte) ([]models.ZoneSummary, error)
	EditZone(ctx context.Context, trackerID, name string, feature []byte) ([]models.ZoneSummary, error)
	DeleteZone(ctx context.Context, trackerID, name string) ([]models.ZoneSummary, error)
	ReplaceZones(ctx context.Context, trackerID string, document []byte) ([]models.ZoneSummary, error)
	ReloadZones(ctx context.Context, trackerID string) ([]models.ZoneSummary, error)
}

// NewZoneHandler creates a new zone handler
func NewZoneHandler(svc ZoneService) *ZoneHandler {
	return &ZoneHandler{service: svc}
}

// AddZone handles POST /trackers/:id/zones requests
func (h *ZoneHandler) AddZone(c *gin.Context) {
	body, ok := readBody(c)
	if !ok {
		return
	}
	h.respond(c, http.StatusCreated)(h.service.AddZone(c.Request.Context(), c.Param("id"), body))
}

// EditZone handles PUT /trackers/:id/zones/:name requests
func (h *ZoneHandler) EditZone(c *gin.Context) {
	body, ok := readBody(c)
	if !ok {
		return
	}
	h.respond(c, http.StatusOK)(h.service.EditZone(c.Request.Context(), c.Param("id"), c.Param("name"), body))
}

// DeleteZone handles DELETE /trackers/:id/zones/:name requests
func (h *ZoneHandler) DeleteZone(c *gin.Context) {
	h.respond(c, http.StatusOK)(h.service.DeleteZone(c.Request.Context(), c.Param("id"), c.Param("name")))
}

// ReplaceZones handles PUT /trackers/:id/zones requests
func (h *ZoneHandler) ReplaceZones(c *gin.Context) {
	body, ok := readBody(c)
	if !ok {
		return
	}
	h.respond(c, http.StatusOK)(h.service.ReplaceZones(c.Request.Context(), c.Param("id"), body))
}

// Reload handles POST /trackers/:id/reload requests
func (h *ZoneHandler) Reload(c *gin.Context) {
	h.respond(c, http.StatusOK)(h.service.ReloadZones(c.Request.Context(), c.Param("id")))
}

func (h *ZoneHandler) respond(c *gin.Context, status int) func([]models.ZoneSummary, error) {
	return func(zones []models.ZoneSummary, err error) {
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(status, gin.H{"zones": zones})
	}
}

func readBody(c *gin.Context) ([]byte, bool) {
	body, err := c.GetRawData()
	if err != nil || len(body) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing request body"})
		return nil, false
	}
	return body, true
}
