package messaging

import (
	"context"

	"github.com/google/uuid"

	"github.com/AICV-Deepfaker/deepfaker-detection/internal/logger"
	"github.com/AICV-Deepfaker/deepfaker-detection/internal/messaging/kafka"
)

// Pusher 向在线客户端推送文本的能力，由连接注册表实现
type Pusher interface {
	// Push 向指定用户的连接推送载荷，返回是否实际送达
	Push(userID uuid.UUID, payload string) bool
}

// NotificationBridge 通知桥：订阅通知主题，把消息转发给本进程内
// 在线的客户端连接。目标用户不在线时直接丢弃，不持久化、不重试。
// 水平扩展时每个API实例使用唯一消费组订阅同一主题，各实例都收到全量
// 通知，由各自的连接注册表决定能否送达。
type NotificationBridge struct {
	pusher Pusher
	log    logger.Logger
}

// NewNotificationBridge 创建通知桥
func NewNotificationBridge(pusher Pusher, log logger.Logger) *NotificationBridge {
	return &NotificationBridge{
		pusher: pusher,
		log:    log,
	}
}

// HandleMessage 实现kafka.MessageHandler接口。
// 处理失败不向上传播：无效载荷和无人在线都不是错误。
func (b *NotificationBridge) HandleMessage(ctx context.Context, topic string, message *kafka.Message) error {
	var notification Notification
	if err := message.UnmarshalData(&notification); err != nil {
		b.log.WithError(err).WarnContext(ctx, "通知消息解析失败，已跳过")
		return nil
	}

	if notification.UserID == uuid.Nil {
		b.log.WarnContext(ctx, "通知消息缺少用户ID，已跳过")
		return nil
	}

	if delivered := b.pusher.Push(notification.UserID, notification.Payload()); !delivered {
		// 用户当前不在线，消息按设计丢弃，客户端可通过状态查询补偿
		b.log.InfoContext(ctx, "用户%s不在线，通知已丢弃", notification.UserID)
		return nil
	}

	b.log.InfoContext(ctx, "通知已推送: user=%s", notification.UserID)
	return nil
}
