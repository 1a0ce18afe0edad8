package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/AICV-Deepfaker/deepfaker-detection/internal/domain/entities"
)

// UserRepository 用户仓库
type UserRepository interface {
	// Create 创建用户
	Create(ctx context.Context, user *entities.User) error

	// FindByEmail 根据邮箱查找用户
	FindByEmail(ctx context.Context, email string) (*entities.User, error)

	// FindByID 根据ID查找用户
	FindByID(ctx context.Context, userID uuid.UUID) (*entities.User, error)
}

// PostgresUserRepository PostgreSQL用户仓库实现
type PostgresUserRepository struct {
	db *sqlx.DB
}

// NewUserRepository 创建用户仓库
func NewUserRepository(db *sqlx.DB) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

// Create 创建用户
func (r *PostgresUserRepository) Create(ctx context.Context, user *entities.User) error {
	query := `
		INSERT INTO users (user_id, email, nickname, hashed_password, created_at)
		VALUES (:user_id, :email, :nickname, :hashed_password, :created_at)
	`

	_, err := r.db.NamedExecContext(ctx, query, user)
	return err
}

// FindByEmail 根据邮箱查找用户
func (r *PostgresUserRepository) FindByEmail(ctx context.Context, email string) (*entities.User, error) {
	var user entities.User
	err := r.db.GetContext(ctx, &user, `SELECT * FROM users WHERE email = $1`, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// FindByID 根据ID查找用户
func (r *PostgresUserRepository) FindByID(ctx context.Context, userID uuid.UUID) (*entities.User, error) {
	var user entities.User
	err := r.db.GetContext(ctx, &user, `SELECT * FROM users WHERE user_id = $1`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}
