package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/AICV-Deepfaker/deepfaker-detection/internal/domain/entities"
)

// SourceRepository 源文件仓库
type SourceRepository interface {
	// Upsert 写入源文件位置，同一视频重复上传时覆盖原有路径
	Upsert(ctx context.Context, source *entities.Source) error

	// FindByVideo 查找视频当前的源文件，不存在时返回ErrNotFound
	FindByVideo(ctx context.Context, videoID uuid.UUID) (*entities.Source, error)
}

// PostgresSourceRepository PostgreSQL源文件仓库实现
type PostgresSourceRepository struct {
	db *sqlx.DB
}

// NewSourceRepository 创建源文件仓库
func NewSourceRepository(db *sqlx.DB) *PostgresSourceRepository {
	return &PostgresSourceRepository{db: db}
}

// Upsert 按video_id做UPSERT，保证同一视频只有一条有效记录
func (r *PostgresSourceRepository) Upsert(ctx context.Context, source *entities.Source) error {
	query := `
		INSERT INTO sources (video_id, storage_path, created_at, updated_at)
		VALUES (:video_id, :storage_path, :created_at, :updated_at)
		ON CONFLICT (video_id) DO UPDATE SET
			storage_path = EXCLUDED.storage_path,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.NamedExecContext(ctx, query, source)
	return err
}

// FindByVideo 查找视频当前的源文件
func (r *PostgresSourceRepository) FindByVideo(ctx context.Context, videoID uuid.UUID) (*entities.Source, error) {
	var source entities.Source
	err := r.db.GetContext(ctx, &source, `SELECT * FROM sources WHERE video_id = $1`, videoID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &source, nil
}
