package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/AICV-Deepfaker/deepfaker-detection/internal/api/middleware"
	"github.com/AICV-Deepfaker/deepfaker-detection/internal/services"
)

// writeError 将服务层错误映射为HTTP响应
func writeError(c *gin.Context, err error) {
	serviceError, ok := err.(*services.ServiceError)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": err.Error(),
			"code":  "unknown_error",
		})
		return
	}

	c.JSON(statusCodeForError(serviceError), gin.H{
		"error": serviceError.Message,
		"code":  serviceError.Code,
		"type":  serviceError.Type,
	})
}

// statusCodeForError 根据错误类型返回适当的HTTP状态码
func statusCodeForError(err *services.ServiceError) int {
	switch err.Type {
	case services.ErrTypeValidation:
		return http.StatusBadRequest
	case services.ErrTypeNotFound:
		return http.StatusNotFound
	case services.ErrTypeUnauthorized:
		return http.StatusForbidden
	case services.ErrTypeConflict:
		return http.StatusConflict
	case services.ErrTypeDatabase, services.ErrTypeStorage, services.ErrTypeMessaging:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// currentUserID 从请求上下文取出认证中间件注入的用户ID
func currentUserID(c *gin.Context) (uuid.UUID, bool) {
	v, exists := c.Get(middleware.ContextKeyUserID)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "未认证的请求"})
		return uuid.Nil, false
	}
	userID, ok := v.(uuid.UUID)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "未认证的请求"})
		return uuid.Nil, false
	}
	return userID, true
}
