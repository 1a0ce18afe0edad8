package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/AICV-Deepfaker/deepfaker-detection/internal/services"
)

// ResultsHandler 分析结果查询接口
type ResultsHandler struct {
	detectionService *services.DetectionService
}

// NewResultsHandler 创建结果处理程序
func NewResultsHandler(detectionService *services.DetectionService) *ResultsHandler {
	return &ResultsHandler{detectionService: detectionService}
}

// Get 查询归属于当前用户的分析结果
func (h *ResultsHandler) Get(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	resultID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "结果ID格式无效", "code": "invalid_input"})
		return
	}

	view, err := h.detectionService.GetResult(c.Request.Context(), userID, resultID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// GetShared 查询分享出去的分析结果，无需认证
func (h *ResultsHandler) GetShared(c *gin.Context) {
	resultID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "结果ID格式无效", "code": "invalid_input"})
		return
	}

	view, err := h.detectionService.GetSharedResult(c.Request.Context(), resultID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}
