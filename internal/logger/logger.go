package logger

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// 日志级别常量
const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// TraceIDKey 追踪ID的上下文键
type TraceIDKey string

// ContextKeyTraceID 追踪ID的上下文键名
const ContextKeyTraceID TraceIDKey = "trace_id"

// Logger 统一日志接口
type Logger interface {
	Debug(format string, args ...interface{})
	Info(format string, args ...interface{})
	Warn(format string, args ...interface{})
	Error(format string, args ...interface{})
	Fatal(format string, args ...interface{})

	// 带上下文的日志方法，自动附带追踪ID
	InfoContext(ctx context.Context, format string, args ...interface{})
	WarnContext(ctx context.Context, format string, args ...interface{})
	ErrorContext(ctx context.Context, format string, args ...interface{})

	// WithField 附加额外字段
	WithField(key string, value interface{}) Logger
	// WithError 附加错误字段
	WithError(err error) Logger

	// GetOutput 获取输出Writer
	GetOutput() io.Writer
}

// logrusLogger logrus实现的日志器
type logrusLogger struct {
	logger *logrus.Logger
	fields logrus.Fields
}

// Config 日志配置
type Config struct {
	// 日志级别
	Level string
	// 服务名称
	ServiceName string
	// 是否使用JSON格式
	JSONFormat bool
}

// NewLogger 创建一个新的日志器
func NewLogger(cfg Config) Logger {
	l := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	if cfg.JSONFormat {
		l.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		})
	} else {
		l.SetFormatter(&logrus.TextFormatter{
			TimestampFormat: time.RFC3339,
			FullTimestamp:   true,
		})
	}

	l.SetOutput(os.Stdout)

	return &logrusLogger{
		logger: l,
		fields: logrus.Fields{
			"service": cfg.ServiceName,
		},
	}
}

// NewDefault 按环境变量创建日志器，未配置时使用info级别JSON输出
func NewDefault(serviceName string) Logger {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		level = LevelInfo
	}

	return NewLogger(Config{
		Level:       level,
		ServiceName: serviceName,
		JSONFormat:  os.Getenv("LOG_JSON_FORMAT") != "false",
	})
}

// GenerateTraceID 生成追踪ID
func GenerateTraceID() string {
	return uuid.New().String()
}

// WithTraceID 向上下文添加追踪ID
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, ContextKeyTraceID, traceID)
}

// GetTraceID 从上下文获取追踪ID
func GetTraceID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if traceID, ok := ctx.Value(ContextKeyTraceID).(string); ok {
		return traceID
	}
	return ""
}

// getFields 从上下文获取字段，包括追踪ID
func (l *logrusLogger) getFields(ctx context.Context) logrus.Fields {
	fields := make(logrus.Fields)
	for k, v := range l.fields {
		fields[k] = v
	}

	if ctx != nil {
		if traceID := GetTraceID(ctx); traceID != "" {
			fields["trace_id"] = traceID
		}
	}

	return fields
}

// GetOutput 获取日志输出
func (l *logrusLogger) GetOutput() io.Writer {
	return l.logger.Out
}

// WithField 添加一个字段
func (l *logrusLogger) WithField(key string, value interface{}) Logger {
	newFields := make(logrus.Fields)
	for k, v := range l.fields {
		newFields[k] = v
	}
	newFields[key] = value

	return &logrusLogger{
		logger: l.logger,
		fields: newFields,
	}
}

// WithError 添加错误字段
func (l *logrusLogger) WithError(err error) Logger {
	return l.WithField("error", err.Error())
}

// Debug 输出Debug级别日志
func (l *logrusLogger) Debug(format string, args ...interface{}) {
	l.logger.WithFields(l.fields).Debugf(format, args...)
}

// Info 输出Info级别日志
func (l *logrusLogger) Info(format string, args ...interface{}) {
	l.logger.WithFields(l.fields).Infof(format, args...)
}

// Warn 输出Warn级别日志
func (l *logrusLogger) Warn(format string, args ...interface{}) {
	l.logger.WithFields(l.fields).Warnf(format, args...)
}

// Error 输出Error级别日志
func (l *logrusLogger) Error(format string, args ...interface{}) {
	l.logger.WithFields(l.fields).Errorf(format, args...)
}

// Fatal 输出Fatal级别日志
func (l *logrusLogger) Fatal(format string, args ...interface{}) {
	l.logger.WithFields(l.fields).Fatalf(format, args...)
}

// InfoContext 使用上下文输出Info级别日志
func (l *logrusLogger) InfoContext(ctx context.Context, format string, args ...interface{}) {
	l.logger.WithFields(l.getFields(ctx)).Infof(format, args...)
}

// WarnContext 使用上下文输出Warn级别日志
func (l *logrusLogger) WarnContext(ctx context.Context, format string, args ...interface{}) {
	l.logger.WithFields(l.getFields(ctx)).Warnf(format, args...)
}

// ErrorContext 使用上下文输出Error级别日志
func (l *logrusLogger) ErrorContext(ctx context.Context, format string, args ...interface{}) {
	l.logger.WithFields(l.getFields(ctx)).Errorf(format, args...)
}
