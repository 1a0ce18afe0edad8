package detect

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/conneroisu/groq-go"

	"github.com/AICV-Deepfaker/deepfaker-detection/internal/domain/entities"
)

// 诈骗话术种子关键词，转写文本中命中的词计入取证报告
var scamSeedKeywords = []string{
	"계좌", "송금", "검찰", "수사", "벌금", "대출", "보증금", "투자", "긴급",
	"account", "transfer", "urgent", "investment", "deposit", "prosecutor",
}

// Transcriber 语音转写能力
type Transcriber interface {
	Transcribe(ctx context.Context, videoPath string) (string, error)
}

// HTTPTranscriber 语音转写服务的HTTP客户端，POST /transcribe
type HTTPTranscriber struct {
	endpoint   string
	httpClient *http.Client
}

// NewHTTPTranscriber 创建转写客户端
func NewHTTPTranscriber(endpoint string) *HTTPTranscriber {
	return &HTTPTranscriber{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: 30 * time.Minute,
		},
	}
}

// Transcribe 上传视频并取回转写文本
func (t *HTTPTranscriber) Transcribe(ctx context.Context, videoPath string) (string, error) {
	file, err := os.Open(videoPath)
	if err != nil {
		return "", fmt.Errorf("打开视频文件失败: %w", err)
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filepath.Base(videoPath))
	if err != nil {
		return "", fmt.Errorf("构建请求体失败: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", fmt.Errorf("读取视频文件失败: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("构建请求体失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint+"/transcribe", &body)
	if err != nil {
		return "", fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("转写请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("转写服务返回状态码%d", resp.StatusCode)
	}

	var tr struct {
		Transcript string `json:"transcript"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("解析转写响应失败: %w", err)
	}

	return tr.Transcript, nil
}

// RiskAssessment 语音内容风险评估
type RiskAssessment struct {
	RiskLevel  entities.RiskLevel `json:"risk_level"`
	Keywords   []string           `json:"keywords"`
	RiskReason string             `json:"risk_reason"`
}

// RiskAnalyzer 转写文本的风险分析能力
type RiskAnalyzer interface {
	Assess(ctx context.Context, transcript string) (*RiskAssessment, error)
}

// GroqRiskAnalyzer 基于Groq对话模型的风险分析实现
type GroqRiskAnalyzer struct {
	client *groq.Client
	model  groq.ChatModel
}

// NewGroqRiskAnalyzer 创建风险分析器
func NewGroqRiskAnalyzer(apiKey, model string) (*GroqRiskAnalyzer, error) {
	client, err := groq.NewClient(apiKey)
	if err != nil {
		return nil, fmt.Errorf("创建Groq客户端失败: %w", err)
	}

	return &GroqRiskAnalyzer{
		client: client,
		model:  groq.ChatModel(model),
	}, nil
}

const riskSystemPrompt = "You are a fraud-detection analyst. Given a transcript of a video's audio, " +
	"assess the risk that the speech is part of a scam or impersonation. " +
	"Respond with JSON only: {\"risk_level\": \"low\"|\"medium\"|\"high\", " +
	"\"keywords\": [..], \"risk_reason\": \"...\"}."

// Assess 调用对话模型评估转写文本的风险
func (a *GroqRiskAnalyzer) Assess(ctx context.Context, transcript string) (*RiskAssessment, error) {
	resp, err := a.client.ChatCompletion(ctx, groq.ChatCompletionRequest{
		Model: a.model,
		Messages: []groq.ChatCompletionMessage{
			{Role: groq.RoleSystem, Content: riskSystemPrompt},
			{Role: groq.RoleUser, Content: transcript},
		},
		ResponseFormat: &groq.ChatResponseFormat{
			Type: "json_object",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("风险分析请求失败: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("风险分析无响应")
	}

	var assessment RiskAssessment
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &assessment); err != nil {
		return nil, fmt.Errorf("解析风险评估失败: %w", err)
	}

	return &assessment, nil
}

// STTDetector 语音取证检测器：转写音频并评估内容风险。
// 不参与REAL/FAKE投票，只向报告提供补充证据。
type STTDetector struct {
	transcriber Transcriber
	analyzer    RiskAnalyzer
}

// NewSTTDetector 创建语音取证检测器。
// analyzer为nil时退化为本地关键词启发式评估。
func NewSTTDetector(transcriber Transcriber, analyzer RiskAnalyzer) *STTDetector {
	return &STTDetector{
		transcriber: transcriber,
		analyzer:    analyzer,
	}
}

// Analyze 转写视频音轨并生成风险报告
func (d *STTDetector) Analyze(ctx context.Context, videoPath string) (*STTReport, error) {
	transcript, err := d.transcriber.Transcribe(ctx, videoPath)
	if err != nil {
		return nil, fmt.Errorf("语音转写失败: %w", err)
	}

	matched := matchSeedKeywords(transcript)

	if d.analyzer == nil {
		return &STTReport{
			RiskLevel:  heuristicRiskLevel(len(matched)),
			Keywords:   matched,
			RiskReason: "基于种子关键词命中数的本地评估",
			Transcript: transcript,
		}, nil
	}

	assessment, err := d.analyzer.Assess(ctx, transcript)
	if err != nil {
		return nil, fmt.Errorf("风险评估失败: %w", err)
	}

	// 合并本地命中与模型给出的关键词
	keywords := mergeKeywords(matched, assessment.Keywords)

	return &STTReport{
		RiskLevel:  assessment.RiskLevel,
		Keywords:   keywords,
		RiskReason: assessment.RiskReason,
		Transcript: transcript,
	}, nil
}

// matchSeedKeywords 在转写文本中匹配种子关键词
func matchSeedKeywords(transcript string) []string {
	lower := strings.ToLower(transcript)
	var matched []string
	for _, kw := range scamSeedKeywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			matched = append(matched, kw)
		}
	}
	return matched
}

// heuristicRiskLevel 按关键词命中数估算风险等级
func heuristicRiskLevel(hits int) entities.RiskLevel {
	switch {
	case hits >= 3:
		return entities.RiskLevelHigh
	case hits >= 1:
		return entities.RiskLevelMedium
	default:
		return entities.RiskLevelLow
	}
}

// mergeKeywords 去重合并关键词，保持出现顺序
func mergeKeywords(a, b []string) []string {
	seen := make(map[string]bool)
	var merged []string
	for _, kw := range append(append([]string{}, a...), b...) {
		if kw == "" || seen[kw] {
			continue
		}
		seen[kw] = true
		merged = append(merged, kw)
	}
	return merged
}
