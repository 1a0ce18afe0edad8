package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AICV-Deepfaker/deepfaker-detection/internal/api/handlers"
	"github.com/AICV-Deepfaker/deepfaker-detection/internal/api/middleware"
	"github.com/AICV-Deepfaker/deepfaker-detection/internal/auth"
	"github.com/AICV-Deepfaker/deepfaker-detection/internal/logger"
	"github.com/AICV-Deepfaker/deepfaker-detection/internal/services"
	"github.com/AICV-Deepfaker/deepfaker-detection/internal/ws"
)

// NewRouter 创建并配置API路由
func NewRouter(
	jwtService *auth.JWTService,
	userService *services.UserService,
	detectionService *services.DetectionService,
	hub *ws.Hub,
	log logger.Logger,
) http.Handler {
	router := gin.Default()

	// 添加中间件
	router.Use(middleware.CORS())
	router.Use(middleware.Trace())

	// 健康检查路由
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// 初始化处理程序
	authHandler := handlers.NewAuthHandler(userService)
	videosHandler := handlers.NewVideosHandler(detectionService)
	resultsHandler := handlers.NewResultsHandler(detectionService)
	wsHandler := handlers.NewWSHandler(hub, log)

	// API路由组 - 公共路由（无需认证）
	apiV1 := router.Group("/api/v1")
	{
		apiV1.POST("/auth/register", authHandler.Register)
		apiV1.POST("/auth/login", authHandler.Login)

		// 结果分享链接，任何人可查看
		apiV1.GET("/share/results/:id", resultsHandler.GetShared)
	}

	// API路由组 - 受保护路由（需要认证）
	protectedAPI := router.Group("/api/v1")
	protectedAPI.Use(middleware.Auth(jwtService))
	{
		protectedAPI.GET("/auth/profile", authHandler.Profile)

		videos := protectedAPI.Group("/videos")
		{
			// 上传视频并提交分析
			videos.POST("", videosHandler.Upload)

			// 提交外链视频
			videos.POST("/link", videosHandler.SubmitLink)

			// 查询分析历史
			videos.GET("", videosHandler.History)

			// 查询分析状态
			videos.GET("/:id/status", videosHandler.Status)
		}

		// 查询分析结果
		protectedAPI.GET("/results/:id", resultsHandler.Get)

		// 通知推送通道
		protectedAPI.GET("/ws", wsHandler.Connect)
	}

	return router
}
