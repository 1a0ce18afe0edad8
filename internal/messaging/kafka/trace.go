package kafka

import (
	"context"

	"github.com/AICV-Deepfaker/deepfaker-detection/internal/logger"
)

// withTraceID 把消息携带的追踪ID放入处理上下文
func withTraceID(ctx context.Context, traceID string) context.Context {
	return logger.WithTraceID(ctx, traceID)
}
