package domain

import (
	"errors"
	"fmt"
)

// Kind 业务错误分类，HTTP 层据此映射状态码
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindInvalidState
	KindForbidden
	KindConflict
	KindUnauthorized
	KindUnavailable
)

var kindNames = map[Kind]string{
	KindInternal:     "internal",
	KindValidation:   "validation",
	KindNotFound:     "not_found",
	KindInvalidState: "invalid_state",
	KindForbidden:    "forbidden",
	KindConflict:     "conflict",
	KindUnauthorized: "unauthorized",
	KindUnavailable:  "unavailable",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

type Error struct {
	Kind    Kind
	Msg     string
	Details map[string]string // 字段级校验信息
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

func Validation(msg string) error   { return &Error{Kind: KindValidation, Msg: msg} }
func InvalidFields(msg string, details map[string]string) error {
	return &Error{Kind: KindValidation, Msg: msg, Details: details}
}

func NotFound(msg string) error     { return &Error{Kind: KindNotFound, Msg: msg} }
func InvalidState(msg string) error { return &Error{Kind: KindInvalidState, Msg: msg} }
func Forbidden(msg string) error    { return &Error{Kind: KindForbidden, Msg: msg} }
func Conflict(msg string) error     { return &Error{Kind: KindConflict, Msg: msg} }
func Unauthorized(msg string) error { return &Error{Kind: KindUnauthorized, Msg: msg} }

func Unavailable(msg string, err error) error {
	return &Error{Kind: KindUnavailable, Msg: msg, Err: err}
}

func Internal(msg string, err error) error {
	return &Error{Kind: KindInternal, Msg: msg, Err: err}
}

// KindOf 沿包装链查找 *Error；普通 error 视为 internal
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// MessageOf 返回面向客户端的消息（不含底层原因）
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Msg
	}
	return err.Error()
}

// DetailsOf 字段级信息，没有则为 nil
func DetailsOf(err error) map[string]string {
	var e *Error
	if errors.As(err, &e) {
		return e.Details
	}
	return nil
}

func IsKind(err error, k Kind) bool { return err != nil && KindOf(err) == k }
