package handlers

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// создает успешный JSON ответ
func SuccessResponse(message string, data interface{}) gin.H {
	response := gin.H{
		"success":   true,
		"message":   message,
		"timestamp": time.Now().UTC(),
	}

	if data != nil {
		response["data"] = data
	}

	return response
}

// создает JSON ответ с ошибкой
func ErrorResponse(code string, message string) gin.H {
	return gin.H{
		"success":   false,
		"error":     code,
		"message":   message,
		"timestamp": time.Now().UTC(),
	}
}

// PaginatedResponse ответ со страницей данных
func PaginatedResponse(message string, data interface{}, count int, limit int, offset int) gin.H {
	return gin.H{
		"success": true,
		"message": message,
		"data":    data,
		"pagination": gin.H{
			"count":    count,
			"limit":    limit,
			"offset":   offset,
			"has_more": limit > 0 && count == limit,
		},
		"timestamp": time.Now().UTC(),
	}
}

// pageParams limit и offset из запроса с ограничениями
func pageParams(c *gin.Context, defaultLimit, maxLimit int) (int, int) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultLimit)))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	if limit > maxLimit {
		limit = maxLimit
	}
	if limit < 1 {
		limit = defaultLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
