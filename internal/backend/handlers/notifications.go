package handlers

import (
	"net/http"

	"Vigil/internal/backend/models"
	"Vigil/internal/backend/services"

	"github.com/gin-gonic/gin"
)

func (h *Handlers) CreateNotification(c *gin.Context) {
	notification := models.Notification{Active: true}
	if err := c.ShouldBindJSON(&notification); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse("invalid_request", err.Error()))
		return
	}
	notification.ID = ""

	created, err := h.notificationService.Create(c.Request.Context(), &notification)
	if err != nil {
		h.respondError(c, err, "create_failed")
		return
	}

	c.JSON(http.StatusCreated, SuccessResponse("notification_created", gin.H{
		"notification_id": created.ID,
		"notification":    created,
	}))
}

func (h *Handlers) ListNotifications(c *gin.Context) {
	notifications, err := h.notificationService.List(c.Request.Context())
	if err != nil {
		h.respondError(c, err, "list_failed")
		return
	}

	c.JSON(http.StatusOK, SuccessResponse("notifications_list", gin.H{
		"notifications": notifications,
		"count":         len(notifications),
	}))
}

func (h *Handlers) GetNotification(c *gin.Context) {
	notification, err := h.notificationService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err, "get_failed")
		return
	}
	c.JSON(http.StatusOK, SuccessResponse("notification_found", gin.H{"notification": notification}))
}

func (h *Handlers) DeleteNotification(c *gin.Context) {
	if err := h.notificationService.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err, "delete_failed")
		return
	}
	c.JSON(http.StatusOK, SuccessResponse("notification_deleted", nil))
}

// TestNotification отправляет тестовое сообщение, ошибка провайдера возвращается клиенту
func (h *Handlers) TestNotification(c *gin.Context) {
	err := h.notificationService.SendTest(c.Request.Context(), c.Param("id"))
	if err != nil {
		if services.IsNotFound(err) {
			h.respondError(c, err, "test_failed")
			return
		}
		h.logger.Warn("test notification failed", "notification_id", c.Param("id"), "error", err)
		c.JSON(http.StatusBadGateway, ErrorResponse("send_failed", err.Error()))
		return
	}
	c.JSON(http.StatusOK, SuccessResponse("notification_sent", nil))
}
