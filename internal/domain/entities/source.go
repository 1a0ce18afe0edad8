package entities

import (
	"time"

	"github.com/google/uuid"
)

// Source 视频字节在对象存储中的位置。
// 每个视频同一时刻最多有一条有效记录，重复上传覆盖原有路径。
type Source struct {
	ID          int64     `json:"id" db:"source_id"`
	VideoID     uuid.UUID `json:"videoId" db:"video_id"`
	StoragePath string    `json:"storagePath" db:"storage_path"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}

// NewSource 创建源文件记录
func NewSource(videoID uuid.UUID, storagePath string) *Source {
	now := time.Now()
	return &Source{
		VideoID:     videoID,
		StoragePath: storagePath,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
