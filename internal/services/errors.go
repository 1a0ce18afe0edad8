package services

import "fmt"

// 错误类型常量
const (
	ErrTypeDatabase     = "database_error"
	ErrTypeStorage      = "storage_error"
	ErrTypeValidation   = "validation_error"
	ErrTypeNotFound     = "not_found_error"
	ErrTypeUnauthorized = "unauthorized_error"
	ErrTypeMessaging    = "messaging_error"
	ErrTypeConflict     = "conflict_error"
)

// 错误代码
const (
	ErrCodeDBQuery          = "db_query_failed"
	ErrCodeFileUpload       = "file_upload_failed"
	ErrCodeLinkFetch        = "link_fetch_failed"
	ErrCodeInvalidInput     = "invalid_input"
	ErrCodeResourceNotFound = "resource_not_found"
	ErrCodeResourceExists   = "resource_already_exists"
	ErrCodeUnauthorized     = "unauthorized_access"
	ErrCodeEnqueueFailed    = "enqueue_failed"
	ErrCodeBadCredentials   = "bad_credentials"
)

// ServiceError 服务错误结构
type ServiceError struct {
	Type    string // 错误类型
	Code    string // 错误代码
	Message string // 错误消息
	Err     error  // 原始错误
}

// Error 实现error接口
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s - %s", e.Type, e.Code, e.Err.Error())
	}
	return fmt.Sprintf("%s: %s - %s", e.Type, e.Code, e.Message)
}

// Unwrap 返回原始错误
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// Is 用于错误比较
func (e *ServiceError) Is(target error) bool {
	t, ok := target.(*ServiceError)
	if !ok {
		return false
	}
	return e.Type == t.Type && e.Code == t.Code
}
