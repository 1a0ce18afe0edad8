package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AICV-Deepfaker/deepfaker-detection/internal/services"
)

// AuthHandler 用户注册与登录接口
type AuthHandler struct {
	userService *services.UserService
}

// NewAuthHandler 创建认证处理程序
func NewAuthHandler(userService *services.UserService) *AuthHandler {
	return &AuthHandler{userService: userService}
}

type registerRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Nickname string `json:"nickname" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Register 注册新用户
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "输入数据验证失败", "code": "invalid_input"})
		return
	}

	user, err := h.userService.Register(c.Request.Context(), req.Email, req.Nickname, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"userId":   user.ID,
		"email":    user.Email,
		"nickname": user.Nickname,
	})
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login 验证凭据并返回访问令牌
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "输入数据验证失败", "code": "invalid_input"})
		return
	}

	user, token, err := h.userService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"accessToken": token,
		"userId":      user.ID,
		"nickname":    user.Nickname,
	})
}

// Profile 返回当前用户资料
func (h *AuthHandler) Profile(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	user, err := h.userService.Profile(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}
