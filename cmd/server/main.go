package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/AICV-Deepfaker/deepfaker-detection/internal/api"
	"github.com/AICV-Deepfaker/deepfaker-detection/internal/auth"
	"github.com/AICV-Deepfaker/deepfaker-detection/internal/config"
	"github.com/AICV-Deepfaker/deepfaker-detection/internal/domain/repositories"
	"github.com/AICV-Deepfaker/deepfaker-detection/internal/logger"
	"github.com/AICV-Deepfaker/deepfaker-detection/internal/messaging"
	"github.com/AICV-Deepfaker/deepfaker-detection/internal/messaging/kafka"
	"github.com/AICV-Deepfaker/deepfaker-detection/internal/services"
	"github.com/AICV-Deepfaker/deepfaker-detection/internal/storage"
	"github.com/AICV-Deepfaker/deepfaker-detection/internal/ws"
)

func main() {
	// .env仅用于本地开发，不存在时忽略
	_ = godotenv.Load()

	log := logger.NewDefault("detection-api")
	log.Info("检测服务API启动中...")

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/server.yaml"
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

	// 任务入队只需要生产者
	producerClient, err := kafka.NewClient(&kafka.Config{
		Brokers:     cfg.Kafka.Brokers,
		ServiceName: "detection-api",
	})
	if err != nil {
		log.WithError(err).Fatal("初始化Kafka生产者失败")
	}
	defer producerClient.Close()

	// 通知订阅使用每实例唯一的消费组，保证每个API实例都收到全量通知
	notifyClient, err := kafka.NewClient(&kafka.Config{
		Brokers:        cfg.Kafka.Brokers,
		ConsumerGroup:  "api-notify-" + uuid.NewString(),
		ConsumerTopics: []string{cfg.Kafka.NotifyTopic},
		ServiceName:    "detection-api",
	})
	if err != nil {
		log.WithError(err).Fatal("初始化Kafka通知订阅失败")
	}
	defer notifyClient.Close()

	videoRepo := repositories.NewVideoRepository(db)
	sourceRepo := repositories.NewSourceRepository(db)
	resultRepo := repositories.NewResultRepository(db)
	userRepo := repositories.NewUserRepository(db)

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpiryHours)
	broker := messaging.NewKafkaJobBroker(producerClient, cfg.Kafka.JobsTopic)
	notifier := messaging.NewKafkaNotifier(producerClient, cfg.Kafka.NotifyTopic)

	hub := ws.NewHub()
	bridge := messaging.NewNotificationBridge(hub, log)
	notifyClient.RegisterHandler(cfg.Kafka.NotifyTopic, bridge)

	userService := services.NewUserService(userRepo, jwtService)
	detectionService := services.NewDetectionService(
		videoRepo, sourceRepo, resultRepo, storageService,
		broker, notifier, services.NewHTTPVideoFetcher(), log,
	)

	router := api.NewRouter(jwtService, userService, detectionService, hub, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 通知消费循环随进程退出
	go func() {
		if err := notifyClient.StartConsumers(ctx); err != nil {
			log.WithError(err).Error("通知消费循环异常退出")
		}
	}()

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		log.Info(fmt.Sprintf("HTTP服务监听端口%s", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("HTTP服务启动失败")
		}
	}()

	// 等待退出信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("收到退出信号，开始优雅关闭...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("HTTP服务关闭异常")
	}

	log.Info("检测服务API已退出")
}
