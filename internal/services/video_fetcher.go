package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// VideoFetcher 远程视频抓取能力
type VideoFetcher interface {
	Fetch(ctx context.Context, videoURL string) (body io.ReadCloser, size int64, contentType string, err error)
}

// HTTPVideoFetcher 基于HTTP直连的视频抓取实现
type HTTPVideoFetcher struct {
	client *http.Client
}

// NewHTTPVideoFetcher 创建视频抓取器
func NewHTTPVideoFetcher() *HTTPVideoFetcher {
	return &HTTPVideoFetcher{
		client: &http.Client{
			// 视频文件可能很大
			Timeout: 30 * time.Minute,
		},
	}
}

// Fetch 下载远程视频，返回的body由调用方负责关闭
func (f *HTTPVideoFetcher) Fetch(ctx context.Context, videoURL string) (io.ReadCloser, int64, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, videoURL, nil)
	if err != nil {
		return nil, 0, "", fmt.Errorf("创建下载请求失败: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, 0, "", fmt.Errorf("下载视频失败: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, 0, "", fmt.Errorf("下载视频返回状态码%d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "video/mp4"
	}

	return resp.Body, resp.ContentLength, contentType, nil
}
