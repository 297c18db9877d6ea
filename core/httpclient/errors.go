package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrCode 表示接口返回的非成功状态，兼容 OCM 错误体中的 title/detail/o:errorCode 字段。
type ErrCode struct {
	Code    string
	Message string
	Status  int
}

func (e *ErrCode) Error() string {
	if e == nil {
		return ""
	}
	switch {
	case e.Code != "" && e.Message != "":
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	case e.Code != "":
		return e.Code
	case e.Message != "":
		return e.Message
	default:
		return fmt.Sprintf("http 状态码: %d", e.Status)
	}
}

// NetworkError 包装底层网络错误，便于区分可重试场景。
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("网络错误: %v", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// DecodeError 表示响应解码失败。
type DecodeError struct {
	Status int
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("解码失败(status=%d): %v", e.Status, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// apiErrorBody OCM REST 错误体。
type apiErrorBody struct {
	Title     string `json:"title"`
	Detail    string `json:"detail"`
	ErrorCode string `json:"o:errorCode"`
}

func parseErrorBody(status int, body []byte) *ErrCode {
	ec := statusToErr(status)
	var payload apiErrorBody
	if len(body) == 0 || json.Unmarshal(body, &payload) != nil {
		if msg := strings.TrimSpace(string(body)); msg != "" {
			ec.Message = msg
		}
		return ec
	}
	if payload.ErrorCode != "" {
		ec.Code = payload.ErrorCode
	}
	switch {
	case payload.Detail != "":
		ec.Message = payload.Detail
	case payload.Title != "":
		ec.Message = payload.Title
	}
	return ec
}

func statusToErr(status int) *ErrCode {
	return &ErrCode{
		Status:  status,
		Code:    fmt.Sprintf("HTTP_%d", status),
		Message: http.StatusText(status),
	}
}

// IsTransient 判断错误是否属于可重试的瞬时 I/O 错误：网络错误或任意非成功状态码。
// 上下文取消与解码失败不可重试。
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var decErr *DecodeError
	if errors.As(err, &decErr) {
		return false
	}
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return true
	}
	var ec *ErrCode
	return errors.As(err, &ec)
}

// StatusOf 返回错误链中的 HTTP 状态码，未知时为 0。
func StatusOf(err error) int {
	var ec *ErrCode
	if errors.As(err, &ec) {
		return ec.Status
	}
	return 0
}
