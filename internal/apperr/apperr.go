// Package apperr - типизированные ошибки операций над задачами.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind - категория ошибки.
type Kind string

const (
	KindNotFound          Kind = "NotFound"
	KindPermissionDenied  Kind = "PermissionDenied"
	KindInvalidTransition Kind = "InvalidTransition"
	KindInvalidState      Kind = "InvalidState"
	KindConflict          Kind = "Conflict"
	KindValidation        Kind = "ValidationError"
	KindInternal          Kind = "Internal"
)

// HTTPStatus возвращает HTTP-код для категории.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindNotFound:
		return http.StatusNotFound
	case KindPermissionDenied:
		return http.StatusForbidden
	case KindInvalidTransition, KindInvalidState, KindConflict:
		return http.StatusConflict
	case KindValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Error - ошибка с категорией, сообщением для пользователя и необязательным полем.
type Error struct {
	Kind  Kind
	Msg   string
	Field string
	Err   error
}

func (e *Error) Error() string {
	s := fmt.Sprintf("[%s] %s", e.Kind, e.Msg)
	if e.Field != "" {
		s += " (" + e.Field + ")"
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is сравнивает только категорию, чтобы errors.Is(err, &Error{Kind: KindConflict}) работал.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Msg == "" && t.Field == ""
}

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// WithField возвращает копию ошибки с указанием поля.
func (e *Error) WithField(field string) *Error {
	c := *e
	c.Field = field
	return &c
}

func NotFound(msg string) *Error          { return New(KindNotFound, msg) }
func PermissionDenied(msg string) *Error  { return New(KindPermissionDenied, msg) }
func InvalidTransition(msg string) *Error { return New(KindInvalidTransition, msg) }
func InvalidState(msg string) *Error      { return New(KindInvalidState, msg) }
func Conflict(msg string) *Error          { return New(KindConflict, msg) }

// Validation - ошибка входных данных по конкретному полю.
func Validation(field, msg string) *Error {
	return &Error{Kind: KindValidation, Msg: msg, Field: field}
}

// KindOf возвращает категорию ошибки; нетипизированные ошибки считаются внутренними.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// FieldOf возвращает поле, к которому относится ошибка.
func FieldOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Field
	}
	return ""
}

// PublicMessage возвращает сообщение для клиента. Детали внутренних ошибок наружу не отдаются.
func PublicMessage(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindInternal {
		return e.Msg
	}
	return "服务器内部错误"
}
