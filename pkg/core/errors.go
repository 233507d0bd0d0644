package core

import (
	"errors"
	"fmt"
)

// ErrorKind classifies pipeline failures.
type ErrorKind string

// Error kinds. All but KindTraining are caused by the caller's input.
const (
	KindSchema           ErrorKind = "SchemaError"
	KindImbalancedData   ErrorKind = "ImbalancedDataError"
	KindUnsupportedModel ErrorKind = "UnsupportedModelError"
	KindTraining         ErrorKind = "TrainingError"
	KindNotFound         ErrorKind = "NotFoundError"
	KindEmptyInput       ErrorKind = "EmptyInputError"
	KindInputFormat      ErrorKind = "InputFormatError"
	KindConfig           ErrorKind = "ConfigError"
)

// Sentinels for errors.Is matching by kind.
var (
	ErrSchema           = &Error{Kind: KindSchema}
	ErrImbalancedData   = &Error{Kind: KindImbalancedData}
	ErrUnsupportedModel = &Error{Kind: KindUnsupportedModel}
	ErrTraining         = &Error{Kind: KindTraining}
	ErrNotFound         = &Error{Kind: KindNotFound}
	ErrEmptyInput       = &Error{Kind: KindEmptyInput}
	ErrInputFormat      = &Error{Kind: KindInputFormat}
	ErrConfig           = &Error{Kind: KindConfig}
)

// Error is a classified pipeline failure carrying a human-readable message.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so the sentinels above work with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

func newError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// SchemaErrorf reports a missing or unusable column.
func SchemaErrorf(format string, args ...any) error {
	return newError(KindSchema, format, args...)
}

// ImbalancedDataErrorf reports rare target classes.
func ImbalancedDataErrorf(format string, args ...any) error {
	return newError(KindImbalancedData, format, args...)
}

// UnsupportedModelErrorf reports an unknown model kind.
func UnsupportedModelErrorf(format string, args ...any) error {
	return newError(KindUnsupportedModel, format, args...)
}

// NotFoundErrorf reports an unknown dataset or artifact handle.
func NotFoundErrorf(format string, args ...any) error {
	return newError(KindNotFound, format, args...)
}

// EmptyInputErrorf reports an empty prediction batch.
func EmptyInputErrorf(format string, args ...any) error {
	return newError(KindEmptyInput, format, args...)
}

// InputFormatErrorf reports an unparseable or unsupported upload.
func InputFormatErrorf(format string, args ...any) error {
	return newError(KindInputFormat, format, args...)
}

// ConfigErrorf reports an invalid request or pipeline configuration.
func ConfigErrorf(format string, args ...any) error {
	return newError(KindConfig, format, args...)
}

// WrapTraining classifies err as a training failure.
func WrapTraining(err error, message string) error {
	return &Error{Kind: KindTraining, Message: message, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or "" when there is none.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsClientFault reports whether err was caused by the caller's input.
func IsClientFault(err error) bool {
	switch KindOf(err) {
	case "", KindTraining:
		return false
	default:
		return true
	}
}
