package handler

import (
	"context"
	"net/http"
	"slices"

	"polygonal-zones/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/paulmach/orb/geojson"
	"github.com/rs/zerolog/log"
)

// EditorStore reads and replaces the editor's zone file
type EditorStore interface {
	Read(path string) (*geojson.FeatureCollection, error)
	Replace(path string, document []byte) error
}

// FileReloader reloads the trackers reading a zone file
type FileReloader interface {
	ReloadFile(ctx context.Context, path string) error
}

// EditorHandler serves the zone file to the static map editor
type EditorHandler struct {
	store    EditorStore
	reloader FileReloader
	path     string
}

// NewEditorHandler creates a new editor handler for the zone file at path
func NewEditorHandler(store EditorStore, reloader FileReloader, path string) *EditorHandler {
	return &EditorHandler{store: store, reloader: reloader, path: path}
}

// Zones handles GET /zones.json requests
func (h *EditorHandler) Zones(c *gin.Context) {
	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	c.Header("Pragma", "no-cache")
	c.Header("Expires", "0")
	c.Header("Access-Control-Allow-Origin", "*")

	fc, err := h.store.Read(h.path)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, fc)
}

// SaveZones handles POST /save_zones requests
func (h *EditorHandler) SaveZones(c *gin.Context) {
	body, ok := readBody(c)
	if !ok {
		return
	}

	if err := h.store.Replace(h.path, body); err != nil {
		respondError(c, err)
		return
	}

	if err := h.reloader.ReloadFile(c.Request.Context(), h.path); err != nil {
		log.Error().Err(err).Str("file", h.path).Msg("saved zones but reloading trackers failed")
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// AllowIPs rejects clients outside the editor allowlist
func AllowIPs(cfg config.EditorConfig) gin.HandlerFunc {
	allowed := cfg.AllowedIPs
	if len(allowed) == 0 {
		allowed = []string{config.DefaultIngressIP}
	}

	return func(c *gin.Context) {
		if cfg.AllowAllIPs || slices.Contains(allowed, c.ClientIP()) {
			c.Next()
			return
		}
		log.Warn().Str("ip", c.ClientIP()).Str("path", c.Request.URL.Path).Msg("blocked editor request")
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	}
}
