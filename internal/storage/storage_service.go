package storage

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/AICV-Deepfaker/deepfaker-detection/internal/config"
)

// StorageService 提供对象存储功能。
// 视频原始文件存放在raw/前缀下，检测器生成的可视化报告存放在reports/前缀下。
type StorageService struct {
	client     *minio.Client
	bucketName string
}

// NewStorageService 创建新的存储服务
func NewStorageService(cfg config.StorageConfig) (*StorageService, error) {
	// 创建MinIO客户端
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("创建MinIO客户端失败: %w", err)
	}

	// 检查存储桶是否存在，不存在则创建
	bucketExists, err := client.BucketExists(context.Background(), cfg.BucketName)
	if err != nil {
		return nil, fmt.Errorf("检查存储桶失败: %w", err)
	}

	if !bucketExists {
		err = client.MakeBucket(context.Background(), cfg.BucketName, minio.MakeBucketOptions{})
		if err != nil {
			return nil, fmt.Errorf("创建存储桶失败: %w", err)
		}
	}

	return &StorageService{
		client:     client,
		bucketName: cfg.BucketName,
	}, nil
}

// UploadFile 上传multipart文件到对象存储
func (s *StorageService) UploadFile(ctx context.Context, file *multipart.FileHeader, objectKey string) error {
	src, err := file.Open()
	if err != nil {
		return fmt.Errorf("打开文件失败: %w", err)
	}
	defer src.Close()

	_, err = s.client.PutObject(
		ctx,
		s.bucketName,
		objectKey,
		src,
		file.Size,
		minio.PutObjectOptions{ContentType: file.Header.Get("Content-Type")},
	)
	if err != nil {
		return fmt.Errorf("上传文件失败: %w", err)
	}

	return nil
}

// UploadStream 上传数据流到对象存储，size未知时传-1
func (s *StorageService) UploadStream(ctx context.Context, objectKey string, reader io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(
		ctx,
		s.bucketName,
		objectKey,
		reader,
		size,
		minio.PutObjectOptions{ContentType: contentType},
	)
	if err != nil {
		return fmt.Errorf("上传文件失败: %w", err)
	}

	return nil
}

// DownloadToFile 下载对象到本地路径
func (s *StorageService) DownloadToFile(ctx context.Context, objectKey, localPath string) error {
	err := s.client.FGetObject(ctx, s.bucketName, objectKey, localPath, minio.GetObjectOptions{})
	if err != nil {
		return fmt.Errorf("下载文件失败: %w", err)
	}

	return nil
}

// GetFileURL 获取文件的预签名访问URL
func (s *StorageService) GetFileURL(ctx context.Context, objectKey string) (string, error) {
	// URL有效期24小时
	url, err := s.client.PresignedGetObject(
		ctx,
		s.bucketName,
		objectKey,
		time.Hour*24,
		nil,
	)
	if err != nil {
		return "", fmt.Errorf("获取文件URL失败: %w", err)
	}

	return url.String(), nil
}

// DeleteFile 从对象存储中删除文件
func (s *StorageService) DeleteFile(ctx context.Context, objectKey string) error {
	err := s.client.RemoveObject(ctx, s.bucketName, objectKey, minio.RemoveObjectOptions{})
	if err != nil {
		return fmt.Errorf("删除文件失败: %w", err)
	}

	return nil
}
