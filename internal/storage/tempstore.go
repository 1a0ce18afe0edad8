package storage

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
)

// ObjectDownloader 对象下载能力，StorageService实现该接口
type ObjectDownloader interface {
	DownloadToFile(ctx context.Context, objectKey, localPath string) error
}

// WithTempDownload 作用域式临时下载：创建私有临时目录，把对象下载到目录内，
// 将本地路径交给fn执行。无论fn成功、失败还是panic，目录都会被删除。
func WithTempDownload(ctx context.Context, downloader ObjectDownloader, objectKey string, fn func(localPath string) error) error {
	dir, err := os.MkdirTemp("", "detection-*")
	if err != nil {
		return fmt.Errorf("创建临时目录失败: %w", err)
	}
	defer os.RemoveAll(dir)

	// 保留原始扩展名，部分检测器按扩展名识别容器格式
	ext := path.Ext(objectKey)
	if ext == "" {
		ext = ".mp4"
	}
	localPath := filepath.Join(dir, "source"+ext)

	if err := downloader.DownloadToFile(ctx, objectKey, localPath); err != nil {
		return fmt.Errorf("下载源文件失败: %w", err)
	}

	return fn(localPath)
}
