package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/AICV-Deepfaker/deepfaker-detection/internal/logger"
	"github.com/AICV-Deepfaker/deepfaker-detection/internal/ws"
)

// WSHandler 通知推送的WebSocket接入点
type WSHandler struct {
	hub *ws.Hub
	log logger.Logger

	upgrader websocket.Upgrader
}

// NewWSHandler 创建WebSocket处理程序
func NewWSHandler(hub *ws.Hub, log logger.Logger) *WSHandler {
	return &WSHandler{
		hub: hub,
		log: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// 跨域由CORS中间件统一放行
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Connect 升级连接并挂入通知中心，连接断开后自动摘除
func (h *WSHandler) Connect(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.WarnContext(c.Request.Context(), fmt.Sprintf("WebSocket升级失败: user_id=%s err=%v", userID, err))
		return
	}

	// 同一用户只保留最新连接，旧连接直接关闭
	if old := h.hub.Register(userID, conn); old != nil {
		old.Close()
	}

	defer func() {
		h.hub.Unregister(userID, conn)
		conn.Close()
	}()

	// 只做服务端推送，读循环仅用于感知客户端断开
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
