// Package apperr defines the error taxonomy shared by the room actor and
// the session layer. Every value a client can observe carries one of
// these codes so the wire error frame always has a stable discriminator.
package apperr

import (
	"errors"
	"fmt"
)

// Code is the machine-readable error discriminator sent to clients.
type Code string

const (
	MalformedMessage Code = "MalformedMessage"
	Unauthenticated  Code = "Unauthenticated"
	Unauthorized     Code = "Unauthorized"
	GameCodeConflict Code = "GameCodeConflict"
	GameNotFound     Code = "GameNotFound"
	NameConflict     Code = "NameConflict"
	ColorConflict    Code = "ColorConflict"
	SubmissionClosed Code = "SubmissionClosed"
	SettingsLocked   Code = "SettingsLocked"
	Internal         Code = "Internal"
)

// Error is a taxonomy-tagged error. Message is safe to show to a client;
// wrapped carries the underlying cause for logs and is never serialized.
type Error struct {
	Code    Code
	Message string
	wrapped error
}

func (e *Error) Error() string {
	if e.wrapped != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.wrapped)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.wrapped }

// New builds a taxonomy error with a client-facing message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap builds a taxonomy error around an underlying cause, typically used
// for Internal errors where the cause should reach the logs but not the
// client.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, wrapped: cause}
}

// As reports whether err is (or wraps) an *Error, the standard library
// errors.As idiom used at every translation boundary in this service.
func As(err error) (*Error, bool) {
	var ae *Error
	ok := errors.As(err, &ae)
	return ae, ok
}
