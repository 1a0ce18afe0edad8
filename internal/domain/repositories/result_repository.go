package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/AICV-Deepfaker/deepfaker-detection/internal/domain/entities"
)

// ResultRepository 分析结果仓库。
// 结果与报告在同一事务内写入：要么整份报告落库，要么什么都不留。
type ResultRepository interface {
	// CreateWithFastReport 写入快速模式结果与报告
	CreateWithFastReport(ctx context.Context, result *entities.Result, report *entities.FastReport) error

	// CreateWithDeepReport 写入深度模式结果与报告
	CreateWithDeepReport(ctx context.Context, result *entities.Result, report *entities.DeepReport) error

	// FindByID 根据result_id查找结果
	FindByID(ctx context.Context, resultID uuid.UUID) (*entities.Result, error)

	// FindByVideo 根据video_id查找结果，不存在时返回ErrNotFound
	FindByVideo(ctx context.Context, videoID uuid.UUID) (*entities.Result, error)

	// FindFastReport 查找结果附带的快速报告
	FindFastReport(ctx context.Context, resultID uuid.UUID) (*entities.FastReport, error)

	// FindDeepReport 查找结果附带的深度报告
	FindDeepReport(ctx context.Context, resultID uuid.UUID) (*entities.DeepReport, error)
}

// PostgresResultRepository PostgreSQL结果仓库实现
type PostgresResultRepository struct {
	db *sqlx.DB
}

// NewResultRepository 创建结果仓库
func NewResultRepository(db *sqlx.DB) *PostgresResultRepository {
	return &PostgresResultRepository{db: db}
}

const insertResultQuery = `
	INSERT INTO results (result_id, user_id, video_id, total_result, is_fast, created_at)
	VALUES (:result_id, :user_id, :video_id, :total_result, :is_fast, :created_at)
`

// CreateWithFastReport 同一事务写入结果与快速报告
func (r *PostgresResultRepository) CreateWithFastReport(ctx context.Context, result *entities.Result, report *entities.FastReport) error {
	return r.inTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.NamedExecContext(ctx, insertResultQuery, result); err != nil {
			return fmt.Errorf("写入结果失败: %w", err)
		}

		query := `
			INSERT INTO fast_reports (
				user_id, result_id, freq_result, freq_conf, freq_image,
				rppg_result, rppg_conf, rppg_image, stt_risk_level, stt_script
			) VALUES (
				:user_id, :result_id, :freq_result, :freq_conf, :freq_image,
				:rppg_result, :rppg_conf, :rppg_image, :stt_risk_level, :stt_script
			)
		`
		if _, err := tx.NamedExecContext(ctx, query, report); err != nil {
			return fmt.Errorf("写入快速报告失败: %w", err)
		}
		return nil
	})
}

// CreateWithDeepReport 同一事务写入结果与深度报告
func (r *PostgresResultRepository) CreateWithDeepReport(ctx context.Context, result *entities.Result, report *entities.DeepReport) error {
	return r.inTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.NamedExecContext(ctx, insertResultQuery, result); err != nil {
			return fmt.Errorf("写入结果失败: %w", err)
		}

		query := `
			INSERT INTO deep_reports (user_id, result_id, unite_result, unite_conf, unite_image)
			VALUES (:user_id, :result_id, :unite_result, :unite_conf, :unite_image)
		`
		if _, err := tx.NamedExecContext(ctx, query, report); err != nil {
			return fmt.Errorf("写入深度报告失败: %w", err)
		}
		return nil
	})
}

// FindByID 根据result_id查找结果
func (r *PostgresResultRepository) FindByID(ctx context.Context, resultID uuid.UUID) (*entities.Result, error) {
	var result entities.Result
	err := r.db.GetContext(ctx, &result, `SELECT * FROM results WHERE result_id = $1`, resultID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &result, nil
}

// FindByVideo 根据video_id查找结果
func (r *PostgresResultRepository) FindByVideo(ctx context.Context, videoID uuid.UUID) (*entities.Result, error) {
	var result entities.Result
	err := r.db.GetContext(ctx, &result,
		`SELECT * FROM results WHERE video_id = $1 ORDER BY created_at DESC LIMIT 1`, videoID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &result, nil
}

// FindFastReport 查找快速报告
func (r *PostgresResultRepository) FindFastReport(ctx context.Context, resultID uuid.UUID) (*entities.FastReport, error) {
	var report entities.FastReport
	err := r.db.GetContext(ctx, &report, `SELECT * FROM fast_reports WHERE result_id = $1`, resultID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &report, nil
}

// FindDeepReport 查找深度报告
func (r *PostgresResultRepository) FindDeepReport(ctx context.Context, resultID uuid.UUID) (*entities.DeepReport, error) {
	var report entities.DeepReport
	err := r.db.GetContext(ctx, &report, `SELECT * FROM deep_reports WHERE result_id = $1`, resultID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &report, nil
}

// inTx 在事务中执行fn，出错时回滚
func (r *PostgresResultRepository) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("开启事务失败: %w", err)
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("提交事务失败: %w", err)
	}
	return nil
}
