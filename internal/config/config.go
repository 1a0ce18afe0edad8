package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config 应用程序配置
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Kafka    KafkaConfig
	Storage  StorageConfig
	JWT      JWTConfig
	Detect   DetectConfig
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port string
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// KafkaConfig Kafka配置
type KafkaConfig struct {
	Brokers []string
	// JobsTopic 分析任务队列主题
	JobsTopic string
	// NotifyTopic 结果通知主题，所有API实例订阅同一主题
	NotifyTopic string
	// WorkerGroup Worker消费组，组内共享任务队列
	WorkerGroup string
}

// StorageConfig MinIO存储配置
type StorageConfig struct {
	Endpoint   string
	BucketName string
	AccessKey  string
	SecretKey  string
	UseSSL     bool
}

// JWTConfig JWT配置
type JWTConfig struct {
	Secret      string
	ExpiryHours int
}

// DetectConfig 检测器配置
type DetectConfig struct {
	// WaveletEndpoint 频域检测推理服务地址
	WaveletEndpoint string
	// RppgEndpoint 生理信号检测推理服务地址
	RppgEndpoint string
	// UniteEndpoint 深度模式检测推理服务地址
	UniteEndpoint string
	// STTEndpoint 语音转写服务地址
	STTEndpoint string
	// GroqAPIKey 语音风险分析使用的Groq密钥，优先从环境变量读取
	GroqAPIKey string
	// GroqModel 风险分析使用的对话模型
	GroqModel string
	// TimeoutSeconds 单个检测器调用的超时时间
	TimeoutSeconds int
}

// Timeout 单个检测器调用的超时时间
func (c DetectConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// LoadConfig 从文件加载配置
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置文件错误: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("解析配置文件错误: %w", err)
	}

	// 环境变量覆盖
	if port := os.Getenv("SERVER_PORT"); port != "" {
		config.Server.Port = port
	}
	if key := os.Getenv("GROQ_API_KEY"); key != "" {
		config.Detect.GroqAPIKey = key
	}

	// 设置默认值
	if config.Server.Port == "" {
		config.Server.Port = "8080"
	}

	if config.JWT.Secret == "" {
		config.JWT.Secret = "default-jwt-secret-key"
	}

	if config.JWT.ExpiryHours <= 0 {
		config.JWT.ExpiryHours = 24
	}

	if config.Kafka.JobsTopic == "" {
		config.Kafka.JobsTopic = "analysis-jobs"
	}

	if config.Kafka.NotifyTopic == "" {
		config.Kafka.NotifyTopic = "analysis-notifications"
	}

	if config.Kafka.WorkerGroup == "" {
		config.Kafka.WorkerGroup = "detection-workers"
	}

	if config.Detect.TimeoutSeconds <= 0 {
		config.Detect.TimeoutSeconds = 300
	}

	if config.Detect.GroqModel == "" {
		config.Detect.GroqModel = "llama-3.3-70b-versatile"
	}

	return &config, nil
}
