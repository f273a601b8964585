package handlers

import (
	"net/http"

	"Vigil/internal/backend/models"

	"github.com/gin-gonic/gin"
)

func (h *Handlers) CreateMaintenance(c *gin.Context) {
	window := models.MaintenanceWindow{Active: true}
	if err := c.ShouldBindJSON(&window); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse("invalid_request", err.Error()))
		return
	}
	window.ID = ""

	created, err := h.maintenanceService.Create(c.Request.Context(), &window)
	if err != nil {
		h.respondError(c, err, "create_failed")
		return
	}

	c.JSON(http.StatusCreated, SuccessResponse("maintenance_created", gin.H{
		"maintenance_id": created.ID,
		"maintenance":    created,
	}))
}

func (h *Handlers) ListMaintenance(c *gin.Context) {
	windows, err := h.maintenanceService.List(c.Request.Context())
	if err != nil {
		h.respondError(c, err, "list_failed")
		return
	}

	c.JSON(http.StatusOK, SuccessResponse("maintenance_list", gin.H{
		"maintenance": windows,
		"count":       len(windows),
	}))
}

func (h *Handlers) GetMaintenance(c *gin.Context) {
	status, err := h.maintenanceService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err, "get_failed")
		return
	}
	c.JSON(http.StatusOK, SuccessResponse("maintenance_found", gin.H{"maintenance": status}))
}

func (h *Handlers) PauseMaintenance(c *gin.Context) {
	h.toggleMaintenance(c, false)
}

func (h *Handlers) ResumeMaintenance(c *gin.Context) {
	h.toggleMaintenance(c, true)
}

func (h *Handlers) toggleMaintenance(c *gin.Context, active bool) {
	if err := h.maintenanceService.SetActive(c.Request.Context(), c.Param("id"), active); err != nil {
		h.respondError(c, err, "update_failed")
		return
	}
	c.JSON(http.StatusOK, SuccessResponse("maintenance_updated", gin.H{"active": active}))
}

func (h *Handlers) DeleteMaintenance(c *gin.Context) {
	if err := h.maintenanceService.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err, "delete_failed")
		return
	}
	c.JSON(http.StatusOK, SuccessResponse("maintenance_deleted", nil))
}
