package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/AICV-Deepfaker/deepfaker-detection/internal/domain/entities"
)

// ErrNotFound 记录不存在
var ErrNotFound = errors.New("记录不存在")

// VideoRepository 视频仓库
type VideoRepository interface {
	// Create 创建视频记录
	Create(ctx context.Context, video *entities.Video) error

	// FindByID 根据ID查找视频
	FindByID(ctx context.Context, videoID uuid.UUID) (*entities.Video, error)

	// FindByUser 查找用户的所有视频，按创建时间倒序
	FindByUser(ctx context.Context, userID uuid.UUID) ([]*entities.Video, error)

	// TransitionStatus 条件状态迁移：仅当当前状态为from时推进到to。
	// 返回是否实际发生了迁移，用于Worker的认领判重。
	TransitionStatus(ctx context.Context, videoID uuid.UUID, from, to entities.VideoStatus) (bool, error)

	// MarkFailed 将视频标记为失败。终态不会被覆盖。
	MarkFailed(ctx context.Context, videoID uuid.UUID) error
}

// PostgresVideoRepository PostgreSQL视频仓库实现
type PostgresVideoRepository struct {
	db *sqlx.DB
}

// NewVideoRepository 创建视频仓库
func NewVideoRepository(db *sqlx.DB) *PostgresVideoRepository {
	return &PostgresVideoRepository{db: db}
}

// Create 创建视频记录
func (r *PostgresVideoRepository) Create(ctx context.Context, video *entities.Video) error {
	query := `
		INSERT INTO videos (
			video_id, user_id, origin_path, source_url, mode, status,
			created_at, updated_at
		) VALUES (
			:video_id, :user_id, :origin_path, :source_url, :mode, :status,
			:created_at, :updated_at
		)
	`

	_, err := r.db.NamedExecContext(ctx, query, video)
	return err
}

// FindByID 根据ID查找视频
func (r *PostgresVideoRepository) FindByID(ctx context.Context, videoID uuid.UUID) (*entities.Video, error) {
	var video entities.Video
	err := r.db.GetContext(ctx, &video, `SELECT * FROM videos WHERE video_id = $1`, videoID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &video, nil
}

// FindByUser 查找用户的所有视频
func (r *PostgresVideoRepository) FindByUser(ctx context.Context, userID uuid.UUID) ([]*entities.Video, error) {
	var videos []*entities.Video
	err := r.db.SelectContext(ctx, &videos,
		`SELECT * FROM videos WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	return videos, nil
}

// TransitionStatus 条件状态迁移，WHERE子句同时匹配当前状态，
// 并发认领同一任务时只有一个Worker能成功。
func (r *PostgresVideoRepository) TransitionStatus(ctx context.Context, videoID uuid.UUID, from, to entities.VideoStatus) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE videos SET status = $1, updated_at = $2 WHERE video_id = $3 AND status = $4`,
		to, time.Now(), videoID, from)
	if err != nil {
		return false, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// MarkFailed 标记失败。排除终态，保证状态机不回退。
func (r *PostgresVideoRepository) MarkFailed(ctx context.Context, videoID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE videos SET status = $1, updated_at = $2
		 WHERE video_id = $3 AND status NOT IN ($4, $5)`,
		entities.VideoStatusFailed, time.Now(), videoID,
		entities.VideoStatusCompleted, entities.VideoStatusFailed)
	return err
}
