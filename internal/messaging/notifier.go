package messaging

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/AICV-Deepfaker/deepfaker-detection/internal/messaging/kafka"
)

// Notifier 结果通知发布方。
// Worker在结果落库之后调用，保证通知永远不早于结果可查。
type Notifier interface {
	// NotifySuccess 发布分析完成通知
	NotifySuccess(ctx context.Context, userID, resultID uuid.UUID) error

	// NotifyFailure 发布分析失败通知
	NotifyFailure(ctx context.Context, userID uuid.UUID, errMsg string) error
}

// KafkaNotifier 基于Kafka的通知发布实现
type KafkaNotifier struct {
	client *kafka.Client
	topic  string
}

// NewKafkaNotifier 创建通知发布器
func NewKafkaNotifier(client *kafka.Client, topic string) *KafkaNotifier {
	return &KafkaNotifier{
		client: client,
		topic:  topic,
	}
}

// NotifySuccess 发布分析完成通知
func (n *KafkaNotifier) NotifySuccess(ctx context.Context, userID, resultID uuid.UUID) error {
	msg := Notification{
		UserID:   userID,
		ResultID: &resultID,
	}
	if err := n.client.SendMessage(n.topic, kafka.TypeAnalysisCompleted, msg); err != nil {
		return fmt.Errorf("发布完成通知失败: %w", err)
	}
	return nil
}

// NotifyFailure 发布分析失败通知
func (n *KafkaNotifier) NotifyFailure(ctx context.Context, userID uuid.UUID, errMsg string) error {
	msg := Notification{
		UserID:       userID,
		ErrorMessage: errMsg,
	}
	if err := n.client.SendMessage(n.topic, kafka.TypeAnalysisFailed, msg); err != nil {
		return fmt.Errorf("发布失败通知失败: %w", err)
	}
	return nil
}
