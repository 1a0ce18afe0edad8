package messaging

import (
	"github.com/google/uuid"

	"github.com/AICV-Deepfaker/deepfaker-detection/internal/domain/entities"
)

// AnalysisJob 分析任务消息，由API入队、Worker消费。
// 只携带标识，视频状态本身是任务存在与否的持久化依据。
type AnalysisJob struct {
	VideoID uuid.UUID            `json:"videoId"`
	Mode    entities.AnalyzeMode `json:"mode"`
}

// Notification 结果通知消息，由Worker发布、API进程转发给在线客户端。
// 成功时携带result_id，失败时携带错误信息。不落库、不回放。
type Notification struct {
	UserID       uuid.UUID  `json:"userId"`
	ResultID     *uuid.UUID `json:"resultId,omitempty"`
	ErrorMessage string     `json:"errorMessage,omitempty"`
}

// Payload 推送给客户端的文本载荷：result_id原文或错误串
func (n *Notification) Payload() string {
	if n.ResultID != nil {
		return n.ResultID.String()
	}
	return "error: " + n.ErrorMessage
}
