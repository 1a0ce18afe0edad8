package detect

import (
	"context"

	"github.com/AICV-Deepfaker/deepfaker-detection/internal/domain/entities"
)

// 检测器名称常量
const (
	ModelWavelet = "wavelet"
	ModelRppg    = "rppg"
	ModelUnite   = "unite"
	ModelSTT     = "stt"
)

// VideoReport 单个视觉检测器的输出
type VideoReport struct {
	// ModelName 产出该报告的检测器
	ModelName string
	// Result 该检测器的判定
	Result entities.Verdict
	// Probability 伪造概率，区间[0,1]
	Probability float64
	// VisualPNG 可视化取证图，可能为空
	VisualPNG []byte
}

// Confidence 判定置信度：概率越偏离0.5越确信
func (r *VideoReport) Confidence() float64 {
	if r.Probability > 0.5 {
		return r.Probability
	}
	return 1 - r.Probability
}

// Detector 不透明的检测能力：输入本地视频路径，输出判定报告。
// 检测器内部（特征提取、模型结构）不在本服务职责范围内。
type Detector interface {
	// Name 检测器名称
	Name() string

	// Analyze 分析视频，调用可能耗时较长，通过ctx控制超时
	Analyze(ctx context.Context, videoPath string) (*VideoReport, error)
}

// STTReport 语音取证检测器的输出。
// 该检测器不参与真伪投票，只提供补充证据。
type STTReport struct {
	RiskLevel  entities.RiskLevel
	Keywords   []string
	RiskReason string
	Transcript string
}

// STTAnalyzer 语音取证能力
type STTAnalyzer interface {
	Analyze(ctx context.Context, videoPath string) (*STTReport, error)
}
