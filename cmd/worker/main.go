package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/AICV-Deepfaker/deepfaker-detection/internal/config"
	"github.com/AICV-Deepfaker/deepfaker-detection/internal/detect"
	"github.com/AICV-Deepfaker/deepfaker-detection/internal/domain/repositories"
	"github.com/AICV-Deepfaker/deepfaker-detection/internal/logger"
	"github.com/AICV-Deepfaker/deepfaker-detection/internal/messaging"
	"github.com/AICV-Deepfaker/deepfaker-detection/internal/messaging/kafka"
	"github.com/AICV-Deepfaker/deepfaker-detection/internal/storage"
	"github.com/AICV-Deepfaker/deepfaker-detection/internal/worker"
)

func main() {
	_ = godotenv.Load()

	log := logger.NewDefault("detection-worker")
	log.Info("检测Worker启动中...")

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/worker.yaml"
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.WithError(err).Fatal("加载配置失败")
	}

	db, err := storage.NewDBConnection(cfg.Database)
	if err != nil {
		log.WithError(err).Fatal("连接数据库失败")
	}
	defer db.Close()

	storageService, err := storage.NewStorageService(cfg.Storage)
	if err != nil {
		log.WithError(err).Fatal("初始化对象存储失败")
	}

	// 所有Worker共用一个消费组，任务在组内分摊
	kafkaClient, err := kafka.NewClient(&kafka.Config{
		Brokers:        cfg.Kafka.Brokers,
		ConsumerGroup:  cfg.Kafka.WorkerGroup,
		ConsumerTopics: []string{cfg.Kafka.JobsTopic},
		ServiceName:    "detection-worker",
	})
	if err != nil {
		log.WithError(err).Fatal("初始化Kafka客户端失败")
	}
	defer kafkaClient.Close()

	videoRepo := repositories.NewVideoRepository(db)
	sourceRepo := repositories.NewSourceRepository(db)
	resultRepo := repositories.NewResultRepository(db)

	notifier := messaging.NewKafkaNotifier(kafkaClient, cfg.Kafka.NotifyTopic)

	// Groq密钥未配置时退化为本地关键词评估
	var riskAnalyzer detect.RiskAnalyzer
	if cfg.Detect.GroqAPIKey != "" {
		riskAnalyzer, err = detect.NewGroqRiskAnalyzer(cfg.Detect.GroqAPIKey, cfg.Detect.GroqModel)
		if err != nil {
			log.WithError(err).Fatal("初始化风险分析器失败")
		}
	} else {
		log.Warn("未配置GROQ_API_KEY，语音风险评估使用本地关键词启发式")
	}

	pipeline := detect.NewPipeline(
		detect.NewInferenceClient(detect.ModelWavelet, cfg.Detect.WaveletEndpoint),
		detect.NewInferenceClient(detect.ModelRppg, cfg.Detect.RppgEndpoint),
		detect.NewInferenceClient(detect.ModelUnite, cfg.Detect.UniteEndpoint),
		detect.NewSTTDetector(detect.NewHTTPTranscriber(cfg.Detect.STTEndpoint), riskAnalyzer),
		cfg.Detect.Timeout(),
		log,
	)

	executor := worker.NewExecutor(videoRepo, sourceRepo, resultRepo, storageService, pipeline, notifier, log)
	kafkaClient.RegisterHandler(cfg.Kafka.JobsTopic, executor)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Info("收到退出信号，开始优雅关闭...")
		cancel()
	}()

	if err := kafkaClient.StartConsumers(ctx); err != nil && ctx.Err() == nil {
		log.WithError(err).Fatal("任务消费循环异常退出")
	}

	log.Info("检测Worker已退出")
}
