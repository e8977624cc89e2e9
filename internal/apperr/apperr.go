// Package apperr maps domain failures onto HTTP responses.
package apperr

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"carecircle/pkg/rbac"
	"carecircle/pkg/util"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
)

func (k Kind) Status() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Error 带分类的业务错误，Message 直接返回给客户端
type Error struct {
	Kind    Kind
	Message string
	Details any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func Validation(msg string) *Error   { return &Error{Kind: KindValidation, Message: msg} }
func Unauthorized(msg string) *Error { return &Error{Kind: KindUnauthorized, Message: msg} }
func Forbidden(msg string) *Error    { return &Error{Kind: KindForbidden, Message: msg} }
func NotFound(msg string) *Error     { return &Error{Kind: KindNotFound, Message: msg} }
func Conflict(msg string) *Error     { return &Error{Kind: KindConflict, Message: msg} }

// Internal 包装底层错误；客户端只看到 msg
func Internal(msg string, err error) *Error {
	return &Error{Kind: KindInternal, Message: msg, Err: err}
}

// From 把任意错误归类
func From(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}

	var verr *util.ValidationError
	if errors.As(err, &verr) {
		return &Error{Kind: KindValidation, Message: "validation failed", Details: verr.Fields, Err: err}
	}

	var denied *rbac.PermissionDeniedError
	if errors.As(err, &denied) {
		return &Error{Kind: KindForbidden, Message: denied.Error(), Err: err}
	}

	return Internal("internal error", err)
}

// Respond 写出 {"error": ..., "details": ...} 并中止后续 handler
func Respond(c *gin.Context, err error) {
	appErr := From(err)
	body := gin.H{"error": appErr.Message}
	if appErr.Details != nil {
		body["details"] = appErr.Details
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(appErr.Kind.Status(), body)
}
