package detect

import (
	"context"
	"fmt"
	"time"

	"github.com/AICV-Deepfaker/deepfaker-detection/internal/domain/entities"
	"github.com/AICV-Deepfaker/deepfaker-detection/internal/logger"
)

// FastOutput 快速模式的完整检测结果
type FastOutput struct {
	Total   entities.Verdict
	Wavelet *VideoReport
	Rppg    *VideoReport
	STT     *STTReport
}

// DeepOutput 深度模式的完整检测结果
type DeepOutput struct {
	Total entities.Verdict
	Unite *VideoReport
}

// Pipeline 按模式编排各检测器并融合结论。
// 任一检测器失败则整个模式失败，不产出部分结果。
type Pipeline struct {
	wavelet Detector
	rppg    Detector
	unite   Detector
	stt     STTAnalyzer
	timeout time.Duration
	log     logger.Logger
}

// NewPipeline 创建检测流水线，timeout为单个检测器的执行上限
func NewPipeline(wavelet, rppg, unite Detector, stt STTAnalyzer, timeout time.Duration, log logger.Logger) *Pipeline {
	return &Pipeline{
		wavelet: wavelet,
		rppg:    rppg,
		unite:   unite,
		stt:     stt,
		timeout: timeout,
		log:     log,
	}
}

// RunFast 执行快速模式：小波频域与rPPG生理信号投票，STT提供补充取证
func (p *Pipeline) RunFast(ctx context.Context, videoPath string) (*FastOutput, error) {
	waveletReport, err := p.runDetector(ctx, p.wavelet, videoPath)
	if err != nil {
		return nil, err
	}

	rppgReport, err := p.runDetector(ctx, p.rppg, videoPath)
	if err != nil {
		return nil, err
	}

	sttCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	sttReport, err := p.stt.Analyze(sttCtx, videoPath)
	if err != nil {
		return nil, fmt.Errorf("检测器%s执行失败: %w", ModelSTT, err)
	}

	total := fuseVerdicts(waveletReport, rppgReport)
	p.log.InfoContext(ctx, fmt.Sprintf("快速模式完成: wavelet=%s(%.3f) rppg=%s(%.3f) 综合=%s",
		waveletReport.Result, waveletReport.Confidence(),
		rppgReport.Result, rppgReport.Confidence(), total))

	return &FastOutput{
		Total:   total,
		Wavelet: waveletReport,
		Rppg:    rppgReport,
		STT:     sttReport,
	}, nil
}

// RunDeep 执行深度模式：unite多模态模型单独裁定
func (p *Pipeline) RunDeep(ctx context.Context, videoPath string) (*DeepOutput, error) {
	uniteReport, err := p.runDetector(ctx, p.unite, videoPath)
	if err != nil {
		return nil, err
	}

	p.log.InfoContext(ctx, fmt.Sprintf("深度模式完成: unite=%s(%.3f)",
		uniteReport.Result, uniteReport.Confidence()))

	return &DeepOutput{
		Total: uniteReport.Result,
		Unite: uniteReport,
	}, nil
}

// runDetector 带超时执行单个检测器
func (p *Pipeline) runDetector(ctx context.Context, d Detector, videoPath string) (*VideoReport, error) {
	dctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	report, err := d.Analyze(dctx, videoPath)
	if err != nil {
		return nil, fmt.Errorf("检测器%s执行失败: %w", d.Name(), err)
	}
	return report, nil
}

// fuseVerdicts 融合两个投票检测器的结论：置信度高者胜出，打平判UNKNOWN
func fuseVerdicts(a, b *VideoReport) entities.Verdict {
	if a.Result == b.Result {
		return a.Result
	}
	switch {
	case a.Confidence() > b.Confidence():
		return a.Result
	case b.Confidence() > a.Confidence():
		return b.Result
	default:
		return entities.VerdictUnknown
	}
}
