package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/3dxone/news-mirror/app/feed"
)

func NewHandler(store *feed.Store, generator GeneratorInterface, version string) *Handler {
	return &Handler{
		store:     store,
		generator: generator,
		version:   version,
	}
}

// GetNews serves the current snapshot. Upstream failures never reach this
// path: the last good snapshot (or an empty list) is always returned.
func (h *Handler) GetNews(c *gin.Context) {
	snapshot := h.store.Snapshot()

	c.Header("X-Feed-Items", strconv.Itoa(len(snapshot.Items)))
	if !snapshot.RefreshedAt.IsZero() {
		c.Header("X-Last-Updated", snapshot.RefreshedAt.Format(time.RFC3339))
	}

	c.JSON(http.StatusOK, snapshot.Items)
}

func (h *Handler) GetNewsRSS(c *gin.Context) {
	snapshot := h.store.Snapshot()

	rss, err := h.generator.Run(snapshot)
	if err != nil {
		slog.Error("RSS generation error", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.Header("Content-Type", "application/rss+xml; charset=utf-8")
	c.Header("X-Feed-Items", strconv.Itoa(len(snapshot.Items)))
	c.String(http.StatusOK, rss)
}

func (h *Handler) GetHealth(c *gin.Context) {
	status := h.store.Status()

	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
		"version":   h.version,
		"items":     len(h.store.Items()),
		"refreshes": status.Refreshes,
		"failures":  status.Failures,
	}

	if status.LastAttemptAt != nil {
		health["last_attempt_at"] = status.LastAttemptAt.Format(time.RFC3339)
	}
	if status.LastSuccessAt != nil {
		health["last_success_at"] = status.LastSuccessAt.Format(time.RFC3339)
	}
	if status.LastError != "" {
		health["last_error"] = status.LastError
	}

	c.JSON(http.StatusOK, health)
}
