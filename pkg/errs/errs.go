// Package errs 定义对外暴露的错误分类，每个错误携带稳定的 code、可读 message 和可选的 details.
//
// 内部原因（cause）只用于日志与 errors.Is/As 判断，不会被序列化给调用方.
//
// Example:
//
//	if ws.IsSnapshot {
//		return errs.Immutable("snapshot workspaces cannot be modified").With("workspace_id", ws.ID)
//	}
//
//	var e *errs.Error
//	if errors.As(err, &e) && e.Code == errs.CodeNotFound {
//		// ...
//	}
package errs

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Code 稳定的错误码.
type Code string

const (
	CodeNotFound            Code = "NOT_FOUND"
	CodeImmutableResource   Code = "IMMUTABLE_RESOURCE"
	CodePermissionDenied    Code = "PERMISSION_DENIED"
	CodeConflict            Code = "CONFLICT"
	CodeUpstreamTimeout     Code = "UPSTREAM_TIMEOUT"
	CodeUpstreamUnavailable Code = "UPSTREAM_UNAVAILABLE"
	CodeValidation          Code = "VALIDATION_ERROR"
	CodeInternal            Code = "INTERNAL"
)

// Error 领域错误.
type Error struct {
	Code    Code           `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`

	cause error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}

	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap 返回内部原因.
func (e *Error) Unwrap() error { return e.cause }

// Is 按 code 比较，便于 errors.Is(err, errs.ErrNotFound).
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}

	return t.Code == e.Code && t.Message == ""
}

// With 附加一个非敏感的细节字段，返回自身便于链式调用.
func (e *Error) With(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}

	e.Details[key] = value

	return e
}

// Wrap 记录内部原因.
func (e *Error) Wrap(cause error) *Error {
	e.cause = cause
	return e
}

// 哨兵值，仅用于 errors.Is 比较.
var (
	ErrNotFound            = &Error{Code: CodeNotFound}
	ErrImmutableResource   = &Error{Code: CodeImmutableResource}
	ErrPermissionDenied    = &Error{Code: CodePermissionDenied}
	ErrConflict            = &Error{Code: CodeConflict}
	ErrUpstreamTimeout     = &Error{Code: CodeUpstreamTimeout}
	ErrUpstreamUnavailable = &Error{Code: CodeUpstreamUnavailable}
	ErrValidation          = &Error{Code: CodeValidation}
)

func newError(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) *Error {
	return newError(CodeNotFound, format, args...)
}

func Immutable(format string, args ...any) *Error {
	return newError(CodeImmutableResource, format, args...)
}

func PermissionDenied(format string, args ...any) *Error {
	return newError(CodePermissionDenied, format, args...)
}

func Conflict(format string, args ...any) *Error {
	return newError(CodeConflict, format, args...)
}

func UpstreamTimeout(format string, args ...any) *Error {
	return newError(CodeUpstreamTimeout, format, args...)
}

func UpstreamUnavailable(format string, args ...any) *Error {
	return newError(CodeUpstreamUnavailable, format, args...)
}

func Validation(format string, args ...any) *Error {
	return newError(CodeValidation, format, args...)
}

func Internal(format string, args ...any) *Error {
	return newError(CodeInternal, format, args...)
}

// From 将任意错误归类为 *Error.
// context 超时被识别为 UpstreamTimeout，其余未分类错误归为 Internal.
func From(err error) *Error {
	if err == nil {
		return nil
	}

	var e *Error
	if errors.As(err, &e) {
		return e
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return UpstreamTimeout("upstream call timed out").Wrap(err)
	}

	if errors.Is(err, context.Canceled) {
		return UpstreamUnavailable("request canceled").Wrap(err)
	}

	return Internal("internal error").Wrap(err)
}

// CodeOf 返回错误码，nil 返回空串.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}

	return From(err).Code
}

// HTTPStatus 错误码到 HTTP 状态码的映射.
func HTTPStatus(code Code) int {
	switch code {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeImmutableResource, CodeConflict:
		return http.StatusConflict
	case CodePermissionDenied:
		return http.StatusForbidden
	case CodeUpstreamTimeout:
		return http.StatusGatewayTimeout
	case CodeUpstreamUnavailable:
		return http.StatusServiceUnavailable
	case CodeValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Response 错误响应体：{"error": {"code", "message", "details"}}.
type Response struct {
	Error *Error `json:"error"`
}

// Body 构造错误响应体.
func Body(err error) Response {
	return Response{Error: From(err)}
}
