package handler

import (
	"context"
	"net/http"
	"strconv"

	"polygonal-zones/internal/models"

	"github.com/gin-gonic/gin"
)

// LocationHandler handles location updates and tracker state requests
type LocationHandler struct {
	service LocationService
}

// LocationService interface for dependency injection
type LocationService interface {
	Update(ctx context.Context, u models.LocationUpdate) ([]models.TrackerState, error)
	State(trackerID string) (models.TrackerState, error)
	States() []models.TrackerState
	Resolve(trackerID string, fix models.LocationFix) (*models.ZoneMatch, error)
}

// NewLocationHandler creates a new location handler
func NewLocationHandler(svc LocationService) *LocationHandler {
	return &LocationHandler{service: svc}
}

// PostLocation handles POST /locations requests
func (h *LocationHandler) PostLocation(c *gin.Context) {
	var u models.LocationUpdate
	if err := c.ShouldBindJSON(&u); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid location update: " + err.Error()})
		return
	}

	changed, err := h.service.Update(c.Request.Context(), u)
	if err != nil {
		respondError(c, err)
		return
	}
	if changed == nil {
		changed = []models.TrackerState{}
	}

	c.JSON(http.StatusOK, gin.H{"changed": changed})
}

// ListTrackers handles GET /trackers requests
func (h *LocationHandler) ListTrackers(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.States())
}

// GetTracker handles GET /trackers/:id requests
func (h *LocationHandler) GetTracker(c *gin.Context) {
	state, err := h.service.State(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, state)
}

// Resolve handles GET /resolve requests
func (h *LocationHandler) Resolve(c *gin.Context) {
	trackerID := c.Query("tracker")
	latStr := c.Query("lat")
	lonStr := c.Query("lon")

	if trackerID == "" || latStr == "" || lonStr == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing required query parameters 'tracker', 'lat' and 'lon'"})
		return
	}

	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid latitude format"})
		return
	}

	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid longitude format"})
		return
	}

	accuracy, err := strconv.ParseFloat(c.DefaultQuery("accuracy", "0"), 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid accuracy format"})
		return
	}

	match, err := h.service.Resolve(trackerID, models.LocationFix{Latitude: lat, Longitude: lon, Accuracy: accuracy})
	if err != nil {
		respondError(c, err)
		return
	}

	if match == nil {
		c.JSON(http.StatusOK, gin.H{"location_name": models.LocationAway})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"location_name":        match.Name,
		"distance_to_centroid": match.DistanceToCentroid,
	})
}
