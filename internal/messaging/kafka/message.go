package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MessageType 定义消息类型常量
type MessageType string

// 消息类型常量定义
const (
	// 分析任务相关消息类型
	TypeAnalysisRequested MessageType = "analysis.requested"

	// 结果通知相关消息类型
	TypeAnalysisCompleted MessageType = "analysis.completed"
	TypeAnalysisFailed    MessageType = "analysis.failed"
)

// Message 定义标准Kafka消息结构
type Message struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
	Source    string          `json:"source"`
	TraceID   string          `json:"trace_id"`
}

// NewMessage 创建新的消息
func NewMessage(msgType MessageType, data interface{}, source string) (*Message, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("序列化消息数据失败: %w", err)
	}

	return &Message{
		Type:      msgType,
		Data:      jsonData,
		Timestamp: time.Now(),
		Source:    source,
		TraceID:   uuid.New().String(),
	}, nil
}

// UnmarshalData 将消息数据反序列化为指定类型
func (m *Message) UnmarshalData(v interface{}) error {
	return json.Unmarshal(m.Data, v)
}
