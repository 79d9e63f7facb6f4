package server

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"media_gallery/internal/gallery"
	"media_gallery/internal/stats"
)

type galleryHandler struct {
	manager *gallery.Manager
	limits  gallery.PageLimits
	noun    string // "Video" or "Image", used in messages
	log     zerolog.Logger
}

func newGalleryHandler(m *gallery.Manager, limits gallery.PageLimits, noun string, log zerolog.Logger) *galleryHandler {
	return &galleryHandler{
		manager: m,
		limits:  limits,
		noun:    noun,
		log:     log.With().Str("component", "gallery-handler").Str("media_type", string(m.Kind())).Logger(),
	}
}

func (h *galleryHandler) register(g *gin.RouterGroup) {
	g.GET("", h.listActive)
	g.GET("/deleted", h.listDeleted)
	g.GET("/count", h.count)
	g.GET("/:id", h.get)
	g.DELETE("/:id", h.softDelete)
	g.POST("/:id/restore", h.restore)
	g.DELETE("/:id/permanent", h.permanentDelete)
}

func (h *galleryHandler) fail(c *gin.Context, err error, notFound string) {
	respondError(c, h.log, err, notFound)
}

func (h *galleryHandler) listActive(c *gin.Context) {
	page, err := h.limits.ParsePage(c.Query("limit"), c.Query("offset"))
	if err != nil {
		h.fail(c, err, "")
		return
	}
	records, err := h.manager.ListActive(c.Request.Context(), c.Query("user_id"), page, c.Query("status"))
	if err != nil {
		h.fail(c, err, "")
		return
	}
	respondOK(c, "", listViews(h.manager.Kind(), records))
}

func (h *galleryHandler) listDeleted(c *gin.Context) {
	page, err := h.limits.ParsePage(c.Query("limit"), c.Query("offset"))
	if err != nil {
		h.fail(c, err, "")
		return
	}
	records, err := h.manager.ListDeleted(c.Request.Context(), c.Query("user_id"), page)
	if err != nil {
		h.fail(c, err, "")
		return
	}
	respondOK(c, "", detailViews(h.manager.Kind(), records))
}

func (h *galleryHandler) count(c *gin.Context) {
	n, err := h.manager.CountForOwner(c.Request.Context(), c.Query("user_id"))
	if err != nil {
		h.fail(c, err, "")
		return
	}
	respondOK(c, "", gin.H{"count": n})
}

func (h *galleryHandler) get(c *gin.Context) {
	rec, err := h.manager.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err, h.noun+" not found")
		return
	}
	respondOK(c, "", detailView(h.manager.Kind(), rec))
}

func (h *galleryHandler) softDelete(c *gin.Context) {
	if err := h.manager.SoftDelete(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err, h.noun+" not found or already deleted")
		return
	}
	respondOK(c, h.noun+" deleted successfully", nil)
}

func (h *galleryHandler) restore(c *gin.Context) {
	rec, err := h.manager.Restore(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err, h.noun+" not found")
		return
	}
	respondOK(c, h.noun+" restored successfully", detailView(h.manager.Kind(), rec))
}

func (h *galleryHandler) permanentDelete(c *gin.Context) {
	if err := h.manager.PermanentDelete(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err, h.noun+" not found")
		return
	}
	respondOK(c, h.noun+" permanently deleted", nil)
}

type statsHandler struct {
	agg *stats.Aggregator
	log zerolog.Logger
}

func newStatsHandler(agg *stats.Aggregator, log zerolog.Logger) *statsHandler {
	return &statsHandler{agg: agg, log: log.With().Str("component", "stats-handler").Logger()}
}

func (h *statsHandler) get(c *gin.Context) {
	summary, err := h.agg.Get(c.Request.Context(), c.Query("user_id"))
	if err != nil {
		respondError(c, h.log, err, "")
		return
	}
	respondOK(c, "", summary)
}
