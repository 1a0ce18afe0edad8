package entities

import (
	"time"

	"github.com/google/uuid"
)

// VideoStatus 视频分析状态
type VideoStatus string

// 视频状态常量，状态机只允许向前推进：
// queued -> pending -> processing -> completed/failed
const (
	// VideoStatusQueued 已受理但源文件尚未就绪（仅外链提交路径使用）
	VideoStatusQueued VideoStatus = "queued"
	// VideoStatusPending 视频与源文件已落库，任务已入队或即将入队
	VideoStatusPending VideoStatus = "pending"
	// VideoStatusProcessing 某个Worker已认领任务并正在执行检测
	VideoStatusProcessing VideoStatus = "processing"
	// VideoStatusCompleted 终态，分析结果已存在
	VideoStatusCompleted VideoStatus = "completed"
	// VideoStatusFailed 终态，无分析结果
	VideoStatusFailed VideoStatus = "failed"
)

// IsTerminal 是否为终态
func (s VideoStatus) IsTerminal() bool {
	return s == VideoStatusCompleted || s == VideoStatusFailed
}

// OriginPath 视频来源类型
type OriginPath string

const (
	// OriginUpload 客户端直接上传文件
	OriginUpload OriginPath = "upload"
	// OriginLink 客户端提交远程链接
	OriginLink OriginPath = "link"
)

// AnalyzeMode 分析模式
type AnalyzeMode string

const (
	// ModeFast 快速模式：多个轻量检测器并行取证
	ModeFast AnalyzeMode = "fast"
	// ModeDeep 深度模式：单个高精度检测器
	ModeDeep AnalyzeMode = "deep"
)

// Valid 校验分析模式取值
func (m AnalyzeMode) Valid() bool {
	return m == ModeFast || m == ModeDeep
}

// Video 一次提交的待检测视频
type Video struct {
	ID         uuid.UUID   `json:"videoId" db:"video_id"`
	UserID     uuid.UUID   `json:"userId" db:"user_id"`
	OriginPath OriginPath  `json:"originPath" db:"origin_path"`
	SourceURL  *string     `json:"sourceUrl,omitempty" db:"source_url"`
	Mode       AnalyzeMode `json:"mode" db:"mode"`
	Status     VideoStatus `json:"status" db:"status"`
	CreatedAt  time.Time   `json:"createdAt" db:"created_at"`
	UpdatedAt  time.Time   `json:"updatedAt" db:"updated_at"`
}

// NewVideo 创建新的视频记录，初始状态为queued
func NewVideo(userID uuid.UUID, origin OriginPath, sourceURL *string, mode AnalyzeMode) *Video {
	now := time.Now()
	return &Video{
		ID:         uuid.New(),
		UserID:     userID,
		OriginPath: origin,
		SourceURL:  sourceURL,
		Mode:       mode,
		Status:     VideoStatusQueued,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}
