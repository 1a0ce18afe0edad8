package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

// JWTService JWT令牌服务
type JWTService struct {
	secretKey   string
	expiryHours int
}

// NewJWTService 创建新的JWT服务
func NewJWTService(secretKey string, expiryHours int) *JWTService {
	if expiryHours <= 0 {
		expiryHours = 24 // 默认24小时过期
	}
	return &JWTService{
		secretKey:   secretKey,
		expiryHours: expiryHours,
	}
}

// Claims JWT令牌声明结构
type Claims struct {
	UserID   string `json:"user_id"`
	Nickname string `json:"nickname"`
	jwt.RegisteredClaims
}

// ParsedUserID 解析声明中的用户ID
func (c *Claims) ParsedUserID() (uuid.UUID, error) {
	return uuid.Parse(c.UserID)
}

// GenerateToken 生成JWT令牌
func (s *JWTService) GenerateToken(userID uuid.UUID, nickname string) (string, error) {
	claims := &Claims{
		UserID:   userID.String(),
		Nickname: nickname,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour * time.Duration(s.expiryHours))),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.secretKey))
}

// ValidateToken 验证JWT令牌
func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		// 验证签名算法
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("无效的签名方法")
		}
		return []byte(s.secretKey), nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.New("无效令牌")
}
