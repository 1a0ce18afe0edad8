package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/AICV-Deepfaker/deepfaker-detection/internal/domain/entities"
	"github.com/AICV-Deepfaker/deepfaker-detection/internal/domain/repositories"
	"github.com/AICV-Deepfaker/deepfaker-detection/internal/logger"
	"github.com/AICV-Deepfaker/deepfaker-detection/internal/messaging"
)

// 允许上传的视频扩展名
var allowedVideoExts = map[string]bool{
	".mp4":  true,
	".avi":  true,
	".mov":  true,
	".webm": true,
	".mkv":  true,
}

// VideoStore 检测服务需要的视频仓储能力
type VideoStore interface {
	Create(ctx context.Context, video *entities.Video) error
	FindByID(ctx context.Context, videoID uuid.UUID) (*entities.Video, error)
	FindByUser(ctx context.Context, userID uuid.UUID) ([]*entities.Video, error)
	TransitionStatus(ctx context.Context, videoID uuid.UUID, from, to entities.VideoStatus) (bool, error)
	MarkFailed(ctx context.Context, videoID uuid.UUID) error
}

// SourceStore 检测服务需要的素材仓储能力
type SourceStore interface {
	Upsert(ctx context.Context, source *entities.Source) error
}

// ResultStore 检测服务需要的结果仓储能力
type ResultStore interface {
	FindByID(ctx context.Context, resultID uuid.UUID) (*entities.Result, error)
	FindByVideo(ctx context.Context, videoID uuid.UUID) (*entities.Result, error)
	FindFastReport(ctx context.Context, resultID uuid.UUID) (*entities.FastReport, error)
	FindDeepReport(ctx context.Context, resultID uuid.UUID) (*entities.DeepReport, error)
}

// ObjectStore 检测服务需要的对象存储能力
type ObjectStore interface {
	UploadFile(ctx context.Context, file *multipart.FileHeader, objectKey string) error
	UploadStream(ctx context.Context, objectKey string, reader io.Reader, size int64, contentType string) error
	GetFileURL(ctx context.Context, objectKey string) (string, error)
}

// DetectionService 受理视频提交、查询状态与结果的核心服务
type DetectionService struct {
	videos   VideoStore
	sources  SourceStore
	results  ResultStore
	objects  ObjectStore
	broker   messaging.JobBroker
	notifier messaging.Notifier
	fetcher  VideoFetcher
	log      logger.Logger

	// 外链抓取的后台执行上限
	fetchTimeout time.Duration
}

// NewDetectionService 创建检测服务
func NewDetectionService(
	videos VideoStore,
	sources SourceStore,
	results ResultStore,
	objects ObjectStore,
	broker messaging.JobBroker,
	notifier messaging.Notifier,
	fetcher VideoFetcher,
	log logger.Logger,
) *DetectionService {
	return &DetectionService{
		videos:       videos,
		sources:      sources,
		results:      results,
		objects:      objects,
		broker:       broker,
		notifier:     notifier,
		fetcher:      fetcher,
		log:          log,
		fetchTimeout: 30 * time.Minute,
	}
}

// SubmitUpload 受理客户端直接上传的视频并入队分析任务
func (s *DetectionService) SubmitUpload(ctx context.Context, userID uuid.UUID, file *multipart.FileHeader, mode entities.AnalyzeMode) (*entities.Video, error) {
	if file == nil {
		return nil, &ServiceError{Type: ErrTypeValidation, Code: ErrCodeInvalidInput, Message: "文件不能为空"}
	}
	if !mode.Valid() {
		return nil, &ServiceError{Type: ErrTypeValidation, Code: ErrCodeInvalidInput, Message: "分析模式无效"}
	}
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !allowedVideoExts[ext] {
		return nil, &ServiceError{Type: ErrTypeValidation, Code: ErrCodeInvalidInput, Message: "不支持的视频格式"}
	}

	video := entities.NewVideo(userID, entities.OriginUpload, nil, mode)
	if err := s.videos.Create(ctx, video); err != nil {
		return nil, &ServiceError{Type: ErrTypeDatabase, Code: ErrCodeDBQuery, Message: "创建视频记录失败", Err: err}
	}

	objectKey := fmt.Sprintf("raw/%s%s", video.ID, ext)
	if err := s.objects.UploadFile(ctx, file, objectKey); err != nil {
		s.markFailed(ctx, video.ID)
		return nil, &ServiceError{Type: ErrTypeStorage, Code: ErrCodeFileUpload, Message: "上传视频失败", Err: err}
	}

	if err := s.activate(ctx, video, objectKey); err != nil {
		return nil, err
	}

	video.Status = entities.VideoStatusPending
	return video, nil
}

// SubmitLink 受理外链提交。视频记录立即返回，抓取在后台进行，
// 抓取失败走失败通知而不是同步报错。
func (s *DetectionService) SubmitLink(ctx context.Context, userID uuid.UUID, videoURL string, mode entities.AnalyzeMode) (*entities.Video, error) {
	if !mode.Valid() {
		return nil, &ServiceError{Type: ErrTypeValidation, Code: ErrCodeInvalidInput, Message: "分析模式无效"}
	}
	parsed, err := url.Parse(videoURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return nil, &ServiceError{Type: ErrTypeValidation, Code: ErrCodeInvalidInput, Message: "视频链接无效"}
	}

	video := entities.NewVideo(userID, entities.OriginLink, &videoURL, mode)
	if err := s.videos.Create(ctx, video); err != nil {
		return nil, &ServiceError{Type: ErrTypeDatabase, Code: ErrCodeDBQuery, Message: "创建视频记录失败", Err: err}
	}

	// 请求上下文随响应结束，后台抓取使用独立上下文
	go s.fetchAndActivate(logger.WithTraceID(context.Background(), logger.GetTraceID(ctx)), video, videoURL)

	return video, nil
}

// fetchAndActivate 后台抓取外链视频并激活分析任务
func (s *DetectionService) fetchAndActivate(ctx context.Context, video *entities.Video, videoURL string) {
	ctx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	body, size, contentType, err := s.fetcher.Fetch(ctx, videoURL)
	if err != nil {
		s.log.ErrorContext(ctx, fmt.Sprintf("抓取外链视频失败: video_id=%s err=%v", video.ID, err))
		s.failWithNotice(ctx, video, "视频链接抓取失败")
		return
	}
	defer body.Close()

	objectKey := fmt.Sprintf("raw/%s%s", video.ID, linkObjectExt(videoURL))
	if err := s.objects.UploadStream(ctx, objectKey, body, size, contentType); err != nil {
		s.log.ErrorContext(ctx, fmt.Sprintf("保存外链视频失败: video_id=%s err=%v", video.ID, err))
		s.failWithNotice(ctx, video, "视频保存失败")
		return
	}

	if err := s.activate(ctx, video, objectKey); err != nil {
		s.log.ErrorContext(ctx, fmt.Sprintf("激活外链任务失败: video_id=%s err=%v", video.ID, err))
		s.failWithNotice(ctx, video, "分析任务创建失败")
	}
}

// activate 登记素材位置并将任务推进到待处理、入队
func (s *DetectionService) activate(ctx context.Context, video *entities.Video, objectKey string) error {
	if err := s.sources.Upsert(ctx, entities.NewSource(video.ID, objectKey)); err != nil {
		s.markFailed(ctx, video.ID)
		return &ServiceError{Type: ErrTypeDatabase, Code: ErrCodeDBQuery, Message: "登记素材失败", Err: err}
	}

	ok, err := s.videos.TransitionStatus(ctx, video.ID, entities.VideoStatusQueued, entities.VideoStatusPending)
	if err != nil {
		s.markFailed(ctx, video.ID)
		return &ServiceError{Type: ErrTypeDatabase, Code: ErrCodeDBQuery, Message: "更新视频状态失败", Err: err}
	}
	if !ok {
		return &ServiceError{Type: ErrTypeConflict, Code: ErrCodeResourceExists, Message: "视频已被处理"}
	}

	if err := s.broker.Enqueue(ctx, messaging.AnalysisJob{VideoID: video.ID, Mode: video.Mode}); err != nil {
		s.markFailed(ctx, video.ID)
		return &ServiceError{Type: ErrTypeMessaging, Code: ErrCodeEnqueueFailed, Message: "任务入队失败", Err: err}
	}

	return nil
}

// StatusView 状态查询响应
type StatusView struct {
	VideoID  uuid.UUID            `json:"videoId"`
	Status   entities.VideoStatus `json:"status"`
	Mode     entities.AnalyzeMode `json:"mode"`
	ResultID *uuid.UUID           `json:"resultId,omitempty"`
}

// Status 查询视频的分析状态，完成时附带结果ID
func (s *DetectionService) Status(ctx context.Context, userID, videoID uuid.UUID) (*StatusView, error) {
	video, err := s.videos.FindByID(ctx, videoID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, &ServiceError{Type: ErrTypeNotFound, Code: ErrCodeResourceNotFound, Message: "视频不存在"}
		}
		return nil, &ServiceError{Type: ErrTypeDatabase, Code: ErrCodeDBQuery, Message: "查询视频失败", Err: err}
	}
	if video.UserID != userID {
		return nil, &ServiceError{Type: ErrTypeUnauthorized, Code: ErrCodeUnauthorized, Message: "无权访问该视频"}
	}

	view := &StatusView{VideoID: video.ID, Status: video.Status, Mode: video.Mode}
	if video.Status == entities.VideoStatusCompleted {
		result, err := s.results.FindByVideo(ctx, videoID)
		if err != nil && !errors.Is(err, repositories.ErrNotFound) {
			return nil, &ServiceError{Type: ErrTypeDatabase, Code: ErrCodeDBQuery, Message: "查询结果失败", Err: err}
		}
		if result != nil {
			view.ResultID = &result.ID
		}
	}
	return view, nil
}

// HistoryItem 历史记录条目
type HistoryItem struct {
	VideoID   uuid.UUID            `json:"videoId"`
	Status    entities.VideoStatus `json:"status"`
	Mode      entities.AnalyzeMode `json:"mode"`
	Origin    entities.OriginPath  `json:"originPath"`
	ResultID  *uuid.UUID           `json:"resultId,omitempty"`
	CreatedAt time.Time            `json:"createdAt"`
}

// History 按提交时间倒序返回用户的分析历史
func (s *DetectionService) History(ctx context.Context, userID uuid.UUID) ([]HistoryItem, error) {
	videos, err := s.videos.FindByUser(ctx, userID)
	if err != nil {
		return nil, &ServiceError{Type: ErrTypeDatabase, Code: ErrCodeDBQuery, Message: "查询历史失败", Err: err}
	}

	items := make([]HistoryItem, 0, len(videos))
	for _, v := range videos {
		item := HistoryItem{
			VideoID:   v.ID,
			Status:    v.Status,
			Mode:      v.Mode,
			Origin:    v.OriginPath,
			CreatedAt: v.CreatedAt,
		}
		if v.Status == entities.VideoStatusCompleted {
			result, err := s.results.FindByVideo(ctx, v.ID)
			if err != nil && !errors.Is(err, repositories.ErrNotFound) {
				return nil, &ServiceError{Type: ErrTypeDatabase, Code: ErrCodeDBQuery, Message: "查询结果失败", Err: err}
			}
			if result != nil {
				item.ResultID = &result.ID
			}
		}
		items = append(items, item)
	}
	return items, nil
}

// FastReportView 快速模式报告视图，图片以预签名URL形式返回
type FastReportView struct {
	FreqResult   entities.Verdict   `json:"freqResult"`
	FreqConf     float64            `json:"freqConf"`
	FreqImageURL string             `json:"freqImageUrl,omitempty"`
	RppgResult   entities.Verdict   `json:"rppgResult"`
	RppgConf     float64            `json:"rppgConf"`
	RppgImageURL string             `json:"rppgImageUrl,omitempty"`
	STTRiskLevel entities.RiskLevel `json:"sttRiskLevel"`
	STTScript    entities.STTScript `json:"sttScript"`
}

// DeepReportView 深度模式报告视图
type DeepReportView struct {
	UniteResult   entities.Verdict `json:"uniteResult"`
	UniteConf     float64          `json:"uniteConf"`
	UniteImageURL string           `json:"uniteImageUrl,omitempty"`
}

// ResultView 完整分析结果视图
type ResultView struct {
	ResultID    uuid.UUID        `json:"resultId"`
	VideoID     uuid.UUID        `json:"videoId"`
	TotalResult entities.Verdict `json:"totalResult"`
	IsFast      bool             `json:"isFast"`
	CreatedAt   time.Time        `json:"createdAt"`
	Fast        *FastReportView  `json:"fast,omitempty"`
	Deep        *DeepReportView  `json:"deep,omitempty"`
}

// GetResult 查询归属于用户的分析结果
func (s *DetectionService) GetResult(ctx context.Context, userID, resultID uuid.UUID) (*ResultView, error) {
	result, err := s.findResult(ctx, resultID)
	if err != nil {
		return nil, err
	}
	if result.UserID != userID {
		return nil, &ServiceError{Type: ErrTypeUnauthorized, Code: ErrCodeUnauthorized, Message: "无权访问该结果"}
	}
	return s.buildResultView(ctx, result)
}

// GetSharedResult 查询分享出去的分析结果，不校验归属
func (s *DetectionService) GetSharedResult(ctx context.Context, resultID uuid.UUID) (*ResultView, error) {
	result, err := s.findResult(ctx, resultID)
	if err != nil {
		return nil, err
	}
	return s.buildResultView(ctx, result)
}

func (s *DetectionService) findResult(ctx context.Context, resultID uuid.UUID) (*entities.Result, error) {
	result, err := s.results.FindByID(ctx, resultID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, &ServiceError{Type: ErrTypeNotFound, Code: ErrCodeResourceNotFound, Message: "结果不存在"}
		}
		return nil, &ServiceError{Type: ErrTypeDatabase, Code: ErrCodeDBQuery, Message: "查询结果失败", Err: err}
	}
	return result, nil
}

func (s *DetectionService) buildResultView(ctx context.Context, result *entities.Result) (*ResultView, error) {
	view := &ResultView{
		ResultID:    result.ID,
		VideoID:     result.VideoID,
		TotalResult: result.TotalResult,
		IsFast:      result.IsFast,
		CreatedAt:   result.CreatedAt,
	}

	if result.IsFast {
		report, err := s.results.FindFastReport(ctx, result.ID)
		if err != nil {
			return nil, &ServiceError{Type: ErrTypeDatabase, Code: ErrCodeDBQuery, Message: "查询报告失败", Err: err}
		}
		view.Fast = &FastReportView{
			FreqResult:   report.FreqResult,
			FreqConf:     report.FreqConf,
			FreqImageURL: s.presign(ctx, report.FreqImage),
			RppgResult:   report.RppgResult,
			RppgConf:     report.RppgConf,
			RppgImageURL: s.presign(ctx, report.RppgImage),
			STTRiskLevel: report.STTRiskLevel,
			STTScript:    report.STTScript,
		}
	} else {
		report, err := s.results.FindDeepReport(ctx, result.ID)
		if err != nil {
			return nil, &ServiceError{Type: ErrTypeDatabase, Code: ErrCodeDBQuery, Message: "查询报告失败", Err: err}
		}
		view.Deep = &DeepReportView{
			UniteResult:   report.UniteResult,
			UniteConf:     report.UniteConf,
			UniteImageURL: s.presign(ctx, report.UniteImage),
		}
	}

	return view, nil
}

// presign 为对象键生成预签名URL，失败只记录不中断
func (s *DetectionService) presign(ctx context.Context, objectKey string) string {
	if objectKey == "" {
		return ""
	}
	u, err := s.objects.GetFileURL(ctx, objectKey)
	if err != nil {
		s.log.WarnContext(ctx, fmt.Sprintf("生成预签名URL失败: key=%s err=%v", objectKey, err))
		return ""
	}
	return u
}

// linkObjectExt 从链接路径推断扩展名，默认mp4
func linkObjectExt(videoURL string) string {
	parsed, err := url.Parse(videoURL)
	if err != nil {
		return ".mp4"
	}
	ext := strings.ToLower(filepath.Ext(parsed.Path))
	if allowedVideoExts[ext] {
		return ext
	}
	return ".mp4"
}

func (s *DetectionService) markFailed(ctx context.Context, videoID uuid.UUID) {
	if err := s.videos.MarkFailed(ctx, videoID); err != nil {
		s.log.ErrorContext(ctx, fmt.Sprintf("标记视频失败状态出错: video_id=%s err=%v", videoID, err))
	}
}

func (s *DetectionService) failWithNotice(ctx context.Context, video *entities.Video, reason string) {
	s.markFailed(ctx, video.ID)
	if err := s.notifier.NotifyFailure(ctx, video.UserID, reason); err != nil {
		s.log.ErrorContext(ctx, fmt.Sprintf("发送失败通知出错: video_id=%s err=%v", video.ID, err))
	}
}
