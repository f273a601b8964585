package handlers

import (
	"net/http"

	"Vigil/internal/backend/services"

	"github.com/gin-gonic/gin"
)

// Push принимает сигнал push монитора: /api/push/:token?status=up&msg=OK&ping=12
func (h *Handlers) Push(c *gin.Context) {
	var req services.PushRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse("invalid_request", err.Error()))
		return
	}

	if err := h.pushService.Push(c.Request.Context(), c.Param("token"), req); err != nil {
		h.respondError(c, err, "push_failed")
		return
	}
	c.JSON(http.StatusOK, SuccessResponse("push_received", nil))
}
