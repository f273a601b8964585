package handlers

import (
	"net/http"

	"Vigil/internal/backend/models"

	"github.com/gin-gonic/gin"
)

// CreateMonitor создает монитор. Без поля active монитор сразу запускается
func (h *Handlers) CreateMonitor(c *gin.Context) {
	monitor := models.Monitor{Active: true}
	if err := c.ShouldBindJSON(&monitor); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse("invalid_request", err.Error()))
		return
	}
	monitor.ID = ""

	created, err := h.monitorService.Create(c.Request.Context(), &monitor)
	if err != nil {
		h.respondError(c, err, "create_failed")
		return
	}

	c.JSON(http.StatusCreated, SuccessResponse("monitor_created", gin.H{
		"monitor_id": created.ID,
		"monitor":    created.Redacted(),
	}))
}

func (h *Handlers) UpdateMonitor(c *gin.Context) {
	var monitor models.Monitor
	if err := c.ShouldBindJSON(&monitor); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse("invalid_request", err.Error()))
		return
	}

	updated, err := h.monitorService.Update(c.Request.Context(), c.Param("id"), &monitor)
	if err != nil {
		h.respondError(c, err, "update_failed")
		return
	}

	c.JSON(http.StatusOK, SuccessResponse("monitor_updated", gin.H{
		"monitor": updated.Redacted(),
	}))
}

func (h *Handlers) GetMonitor(c *gin.Context) {
	monitor, err := h.monitorService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err, "get_failed")
		return
	}

	c.JSON(http.StatusOK, SuccessResponse("monitor_found", gin.H{
		"monitor": redactedWithStatus(monitor),
	}))
}

func (h *Handlers) ListMonitors(c *gin.Context) {
	limit, offset := pageParams(c, 50, 500)

	monitors, err := h.monitorService.List(c.Request.Context(), limit, offset)
	if err != nil {
		h.respondError(c, err, "list_failed")
		return
	}

	out := make([]*models.MonitorWithStatus, 0, len(monitors))
	for _, m := range monitors {
		out = append(out, redactedWithStatus(m))
	}
	c.JSON(http.StatusOK, PaginatedResponse("monitors_list", out, len(out), limit, offset))
}

func (h *Handlers) PauseMonitor(c *gin.Context) {
	if err := h.monitorService.Pause(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err, "pause_failed")
		return
	}
	c.JSON(http.StatusOK, SuccessResponse("monitor_paused", nil))
}

func (h *Handlers) ResumeMonitor(c *gin.Context) {
	if err := h.monitorService.Resume(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err, "resume_failed")
		return
	}
	c.JSON(http.StatusOK, SuccessResponse("monitor_resumed", nil))
}

func (h *Handlers) DeleteMonitor(c *gin.Context) {
	if err := h.monitorService.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err, "delete_failed")
		return
	}
	c.JSON(http.StatusOK, SuccessResponse("monitor_deleted", nil))
}

// GetMonitorHeartbeats последние heartbeat, новые первыми
func (h *Handlers) GetMonitorHeartbeats(c *gin.Context) {
	monitorID := c.Param("id")
	limit, _ := pageParams(c, 100, 1000)

	beats, err := h.monitorService.Heartbeats(c.Request.Context(), monitorID, limit)
	if err != nil {
		h.respondError(c, err, "heartbeats_failed")
		return
	}

	c.JSON(http.StatusOK, SuccessResponse("heartbeats_found", gin.H{
		"monitor_id": monitorID,
		"heartbeats": beats,
		"count":      len(beats),
	}))
}

func (h *Handlers) GetMonitorStats(c *gin.Context) {
	monitorID := c.Param("id")
	limit, _ := pageParams(c, 1000, 10000)

	stats, err := h.monitorService.Stats(c.Request.Context(), monitorID, limit)
	if err != nil {
		h.respondError(c, err, "stats_failed")
		return
	}

	c.JSON(http.StatusOK, SuccessResponse("monitor_stats", gin.H{
		"monitor_id": monitorID,
		"stats":      stats,
	}))
}

func redactedWithStatus(m *models.MonitorWithStatus) *models.MonitorWithStatus {
	return &models.MonitorWithStatus{Monitor: m.Monitor.Redacted(), Latest: m.Latest}
}
