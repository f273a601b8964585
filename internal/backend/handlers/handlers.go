package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"Vigil/internal/backend/dependencies"
	"Vigil/internal/backend/events"
	"Vigil/internal/backend/models"
	"Vigil/internal/backend/services"

	"github.com/gin-gonic/gin"
)

type Handlers struct {
	monitorService      *services.MonitorService
	maintenanceService  *services.MaintenanceService
	notificationService *services.NotificationService
	pushService         *services.PushService
	hub                 *events.Hub
	logger              *slog.Logger
}

func NewHandlers(container *dependencies.Container) *Handlers {
	return &Handlers{
		monitorService:      container.MonitorService,
		maintenanceService:  container.MaintenanceService,
		notificationService: container.NotificationService,
		pushService:         container.PushService,
		hub:                 container.Hub,
		logger:              container.Logger.With("component", "handlers"),
	}
}

// respondError переводит ошибки сервисов в HTTP статусы
func (h *Handlers) respondError(c *gin.Context, err error, code string) {
	switch {
	case services.IsNotFound(err):
		c.JSON(http.StatusNotFound, ErrorResponse("not_found", err.Error()))
	case errors.Is(err, services.ErrMonitorInactive):
		c.JSON(http.StatusNotFound, ErrorResponse("not_active", err.Error()))
	case errors.Is(err, models.ErrInvalidMonitor),
		errors.Is(err, models.ErrInvalidMaintenance),
		errors.Is(err, models.ErrInvalidNotification):
		c.JSON(http.StatusBadRequest, ErrorResponse("invalid_request", err.Error()))
	default:
		h.logger.Error("request failed", "error", err, "path", c.Request.URL.Path, "code", code)
		c.JSON(http.StatusInternalServerError, ErrorResponse(code, err.Error()))
	}
}
