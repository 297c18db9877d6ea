package ocm

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/dnslin/ocm-export/core/httpclient"
)

// 错误分类。
const (
	ErrCodeUnknown = iota
	ErrCodeUnauthorized
	ErrCodeForbidden
	ErrCodeNotFound
	ErrCodeRateLimited
	ErrCodeServer
	ErrCodeMalformed
)

// APIError 表示目录接口返回的统一错误。
type APIError struct {
	Code       int
	Op         string
	Message    string
	HTTPStatus int
	Raw        error
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	switch {
	case e.HTTPStatus != 0 && e.Message != "":
		return fmt.Sprintf("ocm: %s 失败 [%d] %s", e.Op, e.HTTPStatus, e.Message)
	case e.Message != "":
		return fmt.Sprintf("ocm: %s 失败: %s", e.Op, e.Message)
	case e.Raw != nil:
		return fmt.Sprintf("ocm: %s 失败: %v", e.Op, e.Raw)
	default:
		return fmt.Sprintf("ocm: %s 失败", e.Op)
	}
}

// Unwrap 允许 errors.Is/As 解构底层错误。
func (e *APIError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Raw
}

func classify(status int) int {
	switch {
	case status == http.StatusUnauthorized:
		return ErrCodeUnauthorized
	case status == http.StatusForbidden:
		return ErrCodeForbidden
	case status == http.StatusNotFound:
		return ErrCodeNotFound
	case status == http.StatusTooManyRequests:
		return ErrCodeRateLimited
	case status >= http.StatusInternalServerError && status < 600:
		return ErrCodeServer
	}
	return ErrCodeUnknown
}

// toAPIError 为 httpclient 错误附加操作名，网络错误原样保留在 Raw 中。
func toAPIError(op string, err error) error {
	if err == nil {
		return nil
	}
	var ae *APIError
	if errors.As(err, &ae) {
		return ae
	}
	var ec *httpclient.ErrCode
	if errors.As(err, &ec) {
		return &APIError{Code: classify(ec.Status), Op: op, Message: ec.Error(), HTTPStatus: ec.Status, Raw: err}
	}
	var de *httpclient.DecodeError
	if errors.As(err, &de) {
		return &APIError{Code: ErrCodeMalformed, Op: op, HTTPStatus: de.Status, Raw: err}
	}
	return &APIError{Code: ErrCodeUnknown, Op: op, Raw: err}
}
