package handler

import (
	"errors"
	"net/http"

	"polygonal-zones/internal/catalog"
	"polygonal-zones/internal/loader"
	"polygonal-zones/internal/service"
	"polygonal-zones/internal/tracker"
	"polygonal-zones/internal/zonefile"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// statusFor maps domain errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, tracker.ErrTrackerNotFound), errors.Is(err, zonefile.ErrZoneDoesNotExist):
		return http.StatusNotFound
	case errors.Is(err, zonefile.ErrZoneAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, zonefile.ErrZoneFileNotEditable):
		return http.StatusForbidden
	case errors.Is(err, catalog.ErrMalformedGeoJSON):
		return http.StatusUnprocessableEntity
	case errors.Is(err, loader.ErrSourceUnreachable):
		return http.StatusBadGateway
	case errors.Is(err, service.ErrInvalidLocation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err as {"error": ...}. Unexpected errors are logged and hidden.
func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		c.JSON(status, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
