// Package errors 定义导出流程的错误分类，命令行据此决定退出码。
package errors

import (
	stderrors "errors"
	"strings"
)

// Code 错误分类。
type Code string

const (
	// ErrCodeUnknown 未分类错误。
	ErrCodeUnknown Code = "UNKNOWN"
	// ErrCodeInvalidArgument 调用参数非法。
	ErrCodeInvalidArgument Code = "INVALID_ARGUMENT"
	// ErrCodeInvalidConfig 配置或凭据不可用。
	ErrCodeInvalidConfig Code = "INVALID_CONFIG"
	// ErrCodeInvalidState 检查点或文件夹快照损坏，需要人工处理或 --force。
	ErrCodeInvalidState Code = "INVALID_STATE"
	// ErrCodeEnumeration 目录分页在重试耗尽后失败。
	ErrCodeEnumeration Code = "ENUMERATION"
	// ErrCodeStorage 本地磁盘读写失败。
	ErrCodeStorage Code = "STORAGE"
)

// CoreError 带分类的错误，Raw 保存底层原因。
type CoreError struct {
	Code    Code
	Message string
	Raw     error
}

func (e *CoreError) Error() string {
	if e == nil {
		return ""
	}
	var b strings.Builder
	if e.Code != "" {
		b.WriteString("[" + string(e.Code) + "]")
	}
	if e.Message != "" {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(e.Message)
	}
	if e.Raw != nil {
		if b.Len() > 0 {
			b.WriteString(": ")
		}
		b.WriteString(e.Raw.Error())
	}
	if b.Len() == 0 {
		return "未知错误"
	}
	return b.String()
}

// Unwrap 返回底层原因。
func (e *CoreError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Raw
}

// Is 同一分类即视为匹配，因此 New 创建的实例可作为 sentinel 使用。
func (e *CoreError) Is(target error) bool {
	t, ok := target.(*CoreError)
	if !ok || e == nil || t == nil {
		return false
	}
	return e == t || (e.Code != "" && e.Code == t.Code)
}

// New 创建错误。
func New(code Code, message string) *CoreError {
	return &CoreError{Code: code, Message: message}
}

// Wrap 创建携带底层原因的错误。
func Wrap(code Code, message string, raw error) *CoreError {
	return &CoreError{Code: code, Message: message, Raw: raw}
}

// CodeOf 返回错误链中第一个 CoreError 的分类。
func CodeOf(err error) Code {
	var ce *CoreError
	if stderrors.As(err, &ce) && ce.Code != "" {
		return ce.Code
	}
	return ErrCodeUnknown
}
