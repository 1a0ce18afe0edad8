package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/AICV-Deepfaker/deepfaker-detection/internal/auth"
	"github.com/AICV-Deepfaker/deepfaker-detection/internal/domain/entities"
	"github.com/AICV-Deepfaker/deepfaker-detection/internal/domain/repositories"
)

// UserStore 用户服务需要的仓储能力
type UserStore interface {
	Create(ctx context.Context, user *entities.User) error
	FindByEmail(ctx context.Context, email string) (*entities.User, error)
	FindByID(ctx context.Context, userID uuid.UUID) (*entities.User, error)
}

// UserService 用户注册与认证服务
type UserService struct {
	users UserStore
	jwt   *auth.JWTService
}

// NewUserService 创建用户服务
func NewUserService(users UserStore, jwt *auth.JWTService) *UserService {
	return &UserService{
		users: users,
		jwt:   jwt,
	}
}

// Register 注册新用户
func (s *UserService) Register(ctx context.Context, email, nickname, password string) (*entities.User, error) {
	if email == "" || nickname == "" {
		return nil, &ServiceError{Type: ErrTypeValidation, Code: ErrCodeInvalidInput, Message: "邮箱和昵称不能为空"}
	}
	if len(password) < 8 {
		return nil, &ServiceError{Type: ErrTypeValidation, Code: ErrCodeInvalidInput, Message: "密码长度至少8位"}
	}

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, &ServiceError{Type: ErrTypeConflict, Code: ErrCodeResourceExists, Message: "邮箱已被注册"}
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return nil, &ServiceError{Type: ErrTypeDatabase, Code: ErrCodeDBQuery, Message: "查询用户失败", Err: err}
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, &ServiceError{Type: ErrTypeValidation, Code: ErrCodeInvalidInput, Message: "密码处理失败", Err: err}
	}

	user := entities.NewUser(email, nickname, string(hashed))
	if err := s.users.Create(ctx, user); err != nil {
		return nil, &ServiceError{Type: ErrTypeDatabase, Code: ErrCodeDBQuery, Message: "创建用户失败", Err: err}
	}

	return user, nil
}

// Login 验证凭据并签发访问令牌
func (s *UserService) Login(ctx context.Context, email, password string) (*entities.User, string, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, "", &ServiceError{Type: ErrTypeUnauthorized, Code: ErrCodeBadCredentials, Message: "邮箱或密码不正确"}
		}
		return nil, "", &ServiceError{Type: ErrTypeDatabase, Code: ErrCodeDBQuery, Message: "查询用户失败", Err: err}
	}

	if bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(password)) != nil {
		return nil, "", &ServiceError{Type: ErrTypeUnauthorized, Code: ErrCodeBadCredentials, Message: "邮箱或密码不正确"}
	}

	token, err := s.jwt.GenerateToken(user.ID, user.Nickname)
	if err != nil {
		return nil, "", &ServiceError{Type: ErrTypeUnauthorized, Code: ErrCodeUnauthorized, Message: "令牌签发失败", Err: err}
	}

	return user, token, nil
}

// Profile 查询用户资料
func (s *UserService) Profile(ctx context.Context, userID uuid.UUID) (*entities.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, &ServiceError{Type: ErrTypeNotFound, Code: ErrCodeResourceNotFound, Message: "用户不存在"}
		}
		return nil, &ServiceError{Type: ErrTypeDatabase, Code: ErrCodeDBQuery, Message: "查询用户失败", Err: err}
	}
	return user, nil
}
