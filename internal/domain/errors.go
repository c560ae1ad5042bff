package domain

import (
	"errors"
	"fmt"
)

// ErrorCode classifies every terminal failure of a generation request.
type ErrorCode string

const (
	ErrInvalidSchemaShape  ErrorCode = "InvalidSchemaShape"
	ErrMalformedFieldSpec  ErrorCode = "MalformedFieldSpec"
	ErrUnknownType         ErrorCode = "UnknownType"
	ErrTypeMismatch        ErrorCode = "TypeMismatch"
	ErrInvalidListLiteral  ErrorCode = "InvalidListLiteral"
	ErrInvalidStaticValue  ErrorCode = "InvalidStaticValue"
	ErrInvalidSavePath     ErrorCode = "InvalidSavePath"
	ErrInvalidSchemaSource ErrorCode = "InvalidSchemaSource"
	ErrNegativeCount       ErrorCode = "NegativeCount"
	ErrInvalidDataLines    ErrorCode = "InvalidDataLines"
	ErrInvalidIdentifier   ErrorCode = "InvalidIdentifier"
	ErrTooManyFiles        ErrorCode = "TooManyFiles"
)

type Error struct {
	Code ErrorCode
	Msg  string
	Err  error
}

func NewError(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...)}
}

func WrapError(code ErrorCode, err error, format string, args ...any) *Error {
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...), Err: err}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) ErrorCode() ErrorCode { return e.Code }

type coded interface {
	ErrorCode() ErrorCode
}

// CodeOf returns the code of the first coded error in err's tree, or "".
func CodeOf(err error) ErrorCode {
	var c coded
	if errors.As(err, &c) {
		return c.ErrorCode()
	}
	return ""
}
