package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/justsurfingit/talent-dashboard/internal/assets"
	"github.com/justsurfingit/talent-dashboard/internal/client"
	"github.com/justsurfingit/talent-dashboard/internal/models"
	"github.com/justsurfingit/talent-dashboard/internal/services"
	"github.com/justsurfingit/talent-dashboard/internal/views"
)

// CollectionHandler exposes the mounted view's snapshots and asset handles
// to the local front-end.
type CollectionHandler struct {
	View    *views.View
	Blobs   *assets.Registry
	Journal *services.JournalService
}

func NewCollectionHandler(v *views.View, blobs *assets.Registry, journal *services.JournalService) *CollectionHandler {
	return &CollectionHandler{View: v, Blobs: blobs, Journal: journal}
}

// HealthCheck reports liveness and whether the view is still polling.
func (h *CollectionHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"role":    h.View.Role,
		"polling": h.View.Running(),
	})
}

// List is the GET /collections endpoint
func (h *CollectionHandler) List(c *gin.Context) {
	statuses := make([]views.Status, 0, len(h.View.Collections()))
	for _, col := range h.View.Collections() {
		statuses = append(statuses, col.Status())
	}
	c.JSON(http.StatusOK, gin.H{
		"role":        h.View.Role,
		"user":        h.View.User,
		"collections": statuses,
	})
}

// Get returns the snapshot, the error banner and the asset URL per key.
func (h *CollectionHandler) Get(c *gin.Context) {
	col, ok := h.lookup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  col.Status(),
		"records": col.Records(),
		"assets":  col.Assets(),
	})
}

// Refresh is a manual invalidation; it returns once the fetch resolved.
func (h *CollectionHandler) Refresh(c *gin.Context) {
	col, ok := h.lookup(c)
	if !ok {
		return
	}
	if err := col.Refresh(c.Request.Context()); err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error(), "status": col.Status()})
		return
	}
	c.JSON(http.StatusOK, col.Status())
}

// InvalidateAsset drops one handle so the asset is fetched again.
func (h *CollectionHandler) InvalidateAsset(c *gin.Context) {
	col, ok := h.lookup(c)
	if !ok {
		return
	}
	if err := col.RetryAsset(c.Param("key")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"key": c.Param("key")})
}

// History lists recent journal events of a collection.
func (h *CollectionHandler) History(c *gin.Context) {
	col, ok := h.lookup(c)
	if !ok {
		return
	}
	if !h.Journal.Enabled() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "sync journal is not configured"})
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 {
		limit = 50
	}
	events, err := h.Journal.Recent(col.Name(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load history: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, events)
}

// Search filters the synced jobs and courses of the view by ?q=.
func (h *CollectionHandler) Search(c *gin.Context) {
	query := c.Query("q")
	out := gin.H{}
	for _, col := range h.View.Collections() {
		switch records := col.Records().(type) {
		case []models.Job:
			out[col.Name()] = services.MatchJobs(records, query)
		case []models.Course:
			out[col.Name()] = services.MatchCourses(records, query)
		}
	}
	c.JSON(http.StatusOK, out)
}

// Blob resolves a minted asset URL.
func (h *CollectionHandler) Blob(c *gin.Context) {
	data, contentType, ok := h.Blobs.Resolve(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "blob revoked or unknown"})
		return
	}
	c.Header("Cache-Control", "private, max-age=3600")
	c.Data(http.StatusOK, contentType, data)
}

func (h *CollectionHandler) lookup(c *gin.Context) (views.Collection, bool) {
	col, err := h.View.Collection(c.Param("name"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return nil, false
	}
	return col, true
}

// statusFor maps backend errors onto the status the local surface answers
// with.
func statusFor(err error) int {
	switch {
	case errors.Is(err, client.ErrUnauthenticated), errors.Is(err, client.ErrUnauthorized):
		return http.StatusUnauthorized
	case client.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, client.ErrNetwork), errors.Is(err, client.ErrServer):
		return http.StatusBadGateway
	case errors.Is(err, services.ErrChatDisabled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
