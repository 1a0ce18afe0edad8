package messaging

import (
	"context"
	"fmt"

	"github.com/AICV-Deepfaker/deepfaker-detection/internal/messaging/kafka"
)

// JobBroker 任务队列：API侧入队，Worker侧出队。
// 投递语义为至少一次，消费方需自行判重。
type JobBroker interface {
	// Enqueue 将分析任务入队
	Enqueue(ctx context.Context, job AnalysisJob) error
}

// KafkaJobBroker 基于Kafka的任务队列实现
type KafkaJobBroker struct {
	client *kafka.Client
	topic  string
}

// NewKafkaJobBroker 创建任务队列
func NewKafkaJobBroker(client *kafka.Client, topic string) *KafkaJobBroker {
	return &KafkaJobBroker{
		client: client,
		topic:  topic,
	}
}

// Enqueue 将分析任务入队
func (b *KafkaJobBroker) Enqueue(ctx context.Context, job AnalysisJob) error {
	if err := b.client.SendMessage(b.topic, kafka.TypeAnalysisRequested, job); err != nil {
		return fmt.Errorf("任务入队失败: %w", err)
	}
	return nil
}
