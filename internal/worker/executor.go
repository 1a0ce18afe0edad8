package worker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/AICV-Deepfaker/deepfaker-detection/internal/detect"
	"github.com/AICV-Deepfaker/deepfaker-detection/internal/domain/entities"
	"github.com/AICV-Deepfaker/deepfaker-detection/internal/domain/repositories"
	"github.com/AICV-Deepfaker/deepfaker-detection/internal/logger"
	"github.com/AICV-Deepfaker/deepfaker-detection/internal/messaging"
	"github.com/AICV-Deepfaker/deepfaker-detection/internal/messaging/kafka"
	"github.com/AICV-Deepfaker/deepfaker-detection/internal/storage"
)

// VideoStore 执行器需要的视频仓储能力
type VideoStore interface {
	FindByID(ctx context.Context, videoID uuid.UUID) (*entities.Video, error)
	TransitionStatus(ctx context.Context, videoID uuid.UUID, from, to entities.VideoStatus) (bool, error)
	MarkFailed(ctx context.Context, videoID uuid.UUID) error
}

// SourceStore 执行器需要的素材仓储能力
type SourceStore interface {
	FindByVideo(ctx context.Context, videoID uuid.UUID) (*entities.Source, error)
}

// ResultStore 执行器需要的结果仓储能力
type ResultStore interface {
	CreateWithFastReport(ctx context.Context, result *entities.Result, report *entities.FastReport) error
	CreateWithDeepReport(ctx context.Context, result *entities.Result, report *entities.DeepReport) error
}

// ObjectStore 执行器需要的对象存储能力
type ObjectStore interface {
	DownloadToFile(ctx context.Context, objectKey, localPath string) error
	UploadStream(ctx context.Context, objectKey string, reader io.Reader, size int64, contentType string) error
}

// AnalysisPipeline 检测流水线能力
type AnalysisPipeline interface {
	RunFast(ctx context.Context, videoPath string) (*detect.FastOutput, error)
	RunDeep(ctx context.Context, videoPath string) (*detect.DeepOutput, error)
}

// Executor 消费分析任务并驱动完整检测流程：
// 认领任务 -> 拉取素材 -> 执行检测 -> 持久化报告 -> 发送通知。
// 结果先落库再通知，通知失败不回滚结果。
type Executor struct {
	videos   VideoStore
	sources  SourceStore
	results  ResultStore
	objects  ObjectStore
	pipeline AnalysisPipeline
	notifier messaging.Notifier
	log      logger.Logger
}

// NewExecutor 创建任务执行器
func NewExecutor(
	videos VideoStore,
	sources SourceStore,
	results ResultStore,
	objects ObjectStore,
	pipeline AnalysisPipeline,
	notifier messaging.Notifier,
	log logger.Logger,
) *Executor {
	return &Executor{
		videos:   videos,
		sources:  sources,
		results:  results,
		objects:  objects,
		pipeline: pipeline,
		notifier: notifier,
		log:      log,
	}
}

// HandleMessage 实现kafka.MessageHandler，处理单条分析任务
func (e *Executor) HandleMessage(ctx context.Context, topic string, message *kafka.Message) error {
	var job messaging.AnalysisJob
	if err := message.UnmarshalData(&job); err != nil {
		// 消息体损坏无法重试，记录后跳过
		e.log.ErrorContext(ctx, fmt.Sprintf("任务消息解析失败，跳过: %v", err))
		return nil
	}

	if !job.Mode.Valid() {
		e.log.ErrorContext(ctx, fmt.Sprintf("任务携带未知模式%q，跳过: video_id=%s", job.Mode, job.VideoID))
		return nil
	}

	video, err := e.videos.FindByID(ctx, job.VideoID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			e.log.WarnContext(ctx, fmt.Sprintf("任务引用的视频不存在，跳过: video_id=%s", job.VideoID))
			return nil
		}
		return fmt.Errorf("查询视频失败: %w", err)
	}

	source, err := e.sources.FindByVideo(ctx, job.VideoID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			// 素材缺失无法恢复，直接判定失败并通知
			e.failJob(ctx, video, "视频素材缺失")
			return nil
		}
		return fmt.Errorf("查询素材失败: %w", err)
	}

	// 以状态CAS认领任务，消费者组重平衡导致的重复投递在此拦截
	claimed, err := e.videos.TransitionStatus(ctx, job.VideoID, entities.VideoStatusPending, entities.VideoStatusProcessing)
	if err != nil {
		return fmt.Errorf("认领任务失败: %w", err)
	}
	if !claimed {
		e.log.InfoContext(ctx, fmt.Sprintf("任务已被认领或已终结，跳过: video_id=%s", job.VideoID))
		return nil
	}

	err = storage.WithTempDownload(ctx, e.objects, source.StoragePath, func(localPath string) error {
		return e.analyze(ctx, video, job.Mode, localPath)
	})
	if err != nil {
		e.log.ErrorContext(ctx, fmt.Sprintf("检测流程失败: video_id=%s mode=%s err=%v", video.ID, job.Mode, err))
		e.failJob(ctx, video, "检测执行失败")
		return nil
	}

	return nil
}

// analyze 在本地素材上执行检测并持久化结果
func (e *Executor) analyze(ctx context.Context, video *entities.Video, mode entities.AnalyzeMode, localPath string) error {
	result := entities.NewResult(video.UserID, video.ID, entities.VerdictUnknown, mode == entities.ModeFast)

	switch mode {
	case entities.ModeFast:
		out, err := e.pipeline.RunFast(ctx, localPath)
		if err != nil {
			return err
		}
		result.TotalResult = out.Total

		freqKey, err := e.uploadVisual(ctx, result.ID, "freq", out.Wavelet.VisualPNG)
		if err != nil {
			return err
		}
		rppgKey, err := e.uploadVisual(ctx, result.ID, "rppg", out.Rppg.VisualPNG)
		if err != nil {
			return err
		}

		report := &entities.FastReport{
			UserID:       video.UserID,
			ResultID:     result.ID,
			FreqResult:   out.Wavelet.Result,
			FreqConf:     out.Wavelet.Confidence(),
			FreqImage:    freqKey,
			RppgResult:   out.Rppg.Result,
			RppgConf:     out.Rppg.Confidence(),
			RppgImage:    rppgKey,
			STTRiskLevel: out.STT.RiskLevel,
			STTScript: entities.STTScript{
				Keywords:   out.STT.Keywords,
				RiskReason: out.STT.RiskReason,
				Transcript: out.STT.Transcript,
			},
		}
		if err := e.results.CreateWithFastReport(ctx, result, report); err != nil {
			return fmt.Errorf("保存快速模式结果失败: %w", err)
		}

	case entities.ModeDeep:
		out, err := e.pipeline.RunDeep(ctx, localPath)
		if err != nil {
			return err
		}
		result.TotalResult = out.Total

		uniteKey, err := e.uploadVisual(ctx, result.ID, "unite", out.Unite.VisualPNG)
		if err != nil {
			return err
		}

		report := &entities.DeepReport{
			UserID:      video.UserID,
			ResultID:    result.ID,
			UniteResult: out.Unite.Result,
			UniteConf:   out.Unite.Confidence(),
			UniteImage:  uniteKey,
		}
		if err := e.results.CreateWithDeepReport(ctx, result, report); err != nil {
			return fmt.Errorf("保存深度模式结果失败: %w", err)
		}
	}

	done, err := e.videos.TransitionStatus(ctx, video.ID, entities.VideoStatusProcessing, entities.VideoStatusCompleted)
	if err != nil {
		return fmt.Errorf("更新视频状态失败: %w", err)
	}
	if !done {
		e.log.WarnContext(ctx, fmt.Sprintf("视频状态已被外部修改: video_id=%s", video.ID))
	}

	if err := e.notifier.NotifySuccess(ctx, video.UserID, result.ID); err != nil {
		// 结果已落库，状态查询仍可取到，通知失败只记录
		e.log.ErrorContext(ctx, fmt.Sprintf("发送完成通知失败: result_id=%s err=%v", result.ID, err))
	}

	return nil
}

// uploadVisual 上传检测器的可视化报告，返回对象键；无图时返回空
func (e *Executor) uploadVisual(ctx context.Context, resultID uuid.UUID, name string, png []byte) (string, error) {
	if len(png) == 0 {
		return "", nil
	}
	key := fmt.Sprintf("reports/%s/%s.png", resultID, name)
	if err := e.objects.UploadStream(ctx, key, bytes.NewReader(png), int64(len(png)), "image/png"); err != nil {
		return "", fmt.Errorf("上传可视化报告失败: %w", err)
	}
	return key, nil
}

// failJob 将视频置为失败并通知用户
func (e *Executor) failJob(ctx context.Context, video *entities.Video, reason string) {
	if err := e.videos.MarkFailed(ctx, video.ID); err != nil {
		e.log.ErrorContext(ctx, fmt.Sprintf("标记视频失败状态出错: video_id=%s err=%v", video.ID, err))
	}
	if err := e.notifier.NotifyFailure(ctx, video.UserID, reason); err != nil {
		e.log.ErrorContext(ctx, fmt.Sprintf("发送失败通知出错: video_id=%s err=%v", video.ID, err))
	}
}
