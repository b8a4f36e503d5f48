package api

import (
	"errors"

	"github.com/rehab-eng/nova-max-ws/internal/constants"
)

var (
	ErrBackend = errors.New("backend request failed")
	ErrDecode  = errors.New("backend response invalid")
)

// BackendError 后端信封中的业务错误（error 字段）
type BackendError struct {
	Message string
}

// Error 返回后端给出的错误文案，缺省时使用兜底提示
func (e *BackendError) Error() string {
	if e.Message == "" {
		return constants.GenericBackendError
	}
	return e.Message
}

// Unwrap 归入 ErrBackend 错误链
func (e *BackendError) Unwrap() error {
	return ErrBackend
}
