package detect

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/AICV-Deepfaker/deepfaker-detection/internal/domain/entities"
)

// InferenceClient 视觉检测推理服务的HTTP客户端。
// 推理服务对外暴露POST /predict，接收multipart视频文件，
// 返回伪造概率与base64编码的可视化取证图。
type InferenceClient struct {
	name       string
	endpoint   string
	httpClient *http.Client
}

// NewInferenceClient 创建推理客户端。
// 整体超时由调用方的ctx控制，这里只设置兜底超时。
func NewInferenceClient(name, endpoint string) *InferenceClient {
	return &InferenceClient{
		name:     name,
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: 30 * time.Minute,
		},
	}
}

// Name 检测器名称
func (c *InferenceClient) Name() string {
	return c.name
}

// predictResponse 推理服务的响应结构
type predictResponse struct {
	Status       string  `json:"status"`
	Message      string  `json:"message"`
	Result       string  `json:"result"`
	FakeProb     float64 `json:"average_fake_prob"`
	VisualReport string  `json:"visual_report"`
}

// Analyze 把本地视频文件提交给推理服务并解析判定报告
func (c *InferenceClient) Analyze(ctx context.Context, videoPath string) (*VideoReport, error) {
	file, err := os.Open(videoPath)
	if err != nil {
		return nil, fmt.Errorf("打开视频文件失败: %w", err)
	}
	defer file.Close()

	// 组装multipart请求体
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filepath.Base(videoPath))
	if err != nil {
		return nil, fmt.Errorf("构建请求体失败: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("读取视频文件失败: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("构建请求体失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/predict", &body)
	if err != nil {
		return nil, fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s推理请求失败: %w", c.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s推理服务返回状态码%d", c.name, resp.StatusCode)
	}

	var pr predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return nil, fmt.Errorf("解析%s推理响应失败: %w", c.name, err)
	}

	if pr.Status != "success" {
		return nil, fmt.Errorf("%s推理失败: %s", c.name, pr.Message)
	}

	report := &VideoReport{
		ModelName:   c.name,
		Probability: pr.FakeProb,
		Result:      entities.VerdictReal,
	}
	if pr.FakeProb > 0.5 {
		report.Result = entities.VerdictFake
	}

	if pr.VisualReport != "" {
		png, err := base64.StdEncoding.DecodeString(pr.VisualReport)
		if err != nil {
			return nil, fmt.Errorf("解码%s取证图失败: %w", c.name, err)
		}
		report.VisualPNG = png
	}

	return report, nil
}
