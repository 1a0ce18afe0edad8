package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/AICV-Deepfaker/deepfaker-detection/internal/domain/entities"
	"github.com/AICV-Deepfaker/deepfaker-detection/internal/services"
)

// VideosHandler 视频提交与状态查询接口
type VideosHandler struct {
	detectionService *services.DetectionService
}

// NewVideosHandler 创建视频处理程序
func NewVideosHandler(detectionService *services.DetectionService) *VideosHandler {
	return &VideosHandler{detectionService: detectionService}
}

// Upload 上传视频并提交分析
func (h *VideosHandler) Upload(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "未提供视频文件", "code": "invalid_input"})
		return
	}

	mode := entities.AnalyzeMode(c.PostForm("mode"))

	video, err := h.detectionService.SubmitUpload(c.Request.Context(), userID, file, mode)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"videoId": video.ID,
		"status":  video.Status,
		"mode":    video.Mode,
	})
}

type linkRequest struct {
	URL  string               `json:"url" binding:"required"`
	Mode entities.AnalyzeMode `json:"mode" binding:"required"`
}

// SubmitLink 提交外链视频并异步抓取
func (h *VideosHandler) SubmitLink(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req linkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "输入数据验证失败", "code": "invalid_input"})
		return
	}

	video, err := h.detectionService.SubmitLink(c.Request.Context(), userID, req.URL, req.Mode)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"videoId": video.ID,
		"status":  video.Status,
		"mode":    video.Mode,
	})
}

// Status 查询视频分析状态
func (h *VideosHandler) Status(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	videoID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "视频ID格式无效", "code": "invalid_input"})
		return
	}

	view, err := h.detectionService.Status(c.Request.Context(), userID, videoID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// History 查询当前用户的分析历史
func (h *VideosHandler) History(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	items, err := h.detectionService.History(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": items})
}
