package storage

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/AICV-Deepfaker/deepfaker-detection/internal/config"
)

// NewDBConnection 创建数据库连接
func NewDBConnection(cfg config.DatabaseConfig) (*sqlx.DB, error) {
	// 构建不包含敏感信息的连接字符串用于日志记录
	logSafeDSN := fmt.Sprintf("host=%s port=%s user=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.DBName, cfg.SSLMode)

	// 实际连接字符串包含密码
	psqlInfo := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)

	fmt.Printf("正在连接数据库: %s\n", logSafeDSN)

	return sqlx.Connect("postgres", psqlInfo)
}
