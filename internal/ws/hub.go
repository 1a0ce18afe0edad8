package ws

import (
	"sync"

	"github.com/google/uuid"
)

// Conn 推送连接的最小能力，*websocket.Conn满足该接口
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// 与gorilla/websocket.TextMessage一致
const textMessage = 1

// Hub 进程内连接注册表：用户ID到推送连接的映射。
// 每个用户同一实例上最多一条连接，新连接顶替旧连接。
// 注册、注销与推送可能来自不同goroutine，内部加锁保护。
type Hub struct {
	mu    sync.RWMutex
	conns map[uuid.UUID]Conn
}

// NewHub 创建连接注册表
func NewHub() *Hub {
	return &Hub{
		conns: make(map[uuid.UUID]Conn),
	}
}

// Register 注册用户连接，返回被顶替的旧连接（可能为nil）
func (h *Hub) Register(userID uuid.UUID, conn Conn) Conn {
	h.mu.Lock()
	defer h.mu.Unlock()

	old := h.conns[userID]
	h.conns[userID] = conn
	return old
}

// Unregister 注销用户连接。只在当前注册的连接与conn一致时移除，
// 避免新连接顶替后旧连接的清理误删新连接。
func (h *Hub) Unregister(userID uuid.UUID, conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if current, ok := h.conns[userID]; ok && current == conn {
		delete(h.conns, userID)
	}
}

// Push 向指定用户推送文本载荷，返回是否送达。
// 用户不在线或写入失败都视为未送达，由调用方决定丢弃策略。
func (h *Hub) Push(userID uuid.UUID, payload string) bool {
	h.mu.RLock()
	conn, ok := h.conns[userID]
	h.mu.RUnlock()

	if !ok {
		return false
	}

	if err := conn.WriteMessage(textMessage, []byte(payload)); err != nil {
		return false
	}
	return true
}

// Count 当前在线连接数
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}
