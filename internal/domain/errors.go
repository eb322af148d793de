package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Every service failure unwraps to exactly one of them.
var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation failed")
	ErrConflict   = errors.New("conflict")
)

// Storage-level sentinels returned by repositories.
var (
	ErrRecordNotFound         = errors.New("record not found")
	ErrDuplicate              = errors.New("duplicate record")
	ErrReferenced             = errors.New("record is referenced")
	ErrConcurrentModification = errors.New("concurrent modification")
)

// Error is a classified failure with a message meant for API clients.
type Error struct {
	kind error
	msg  string
}

func (e *Error) Error() string { return e.msg }

func (e *Error) Unwrap() error { return e.kind }

// Kind returns the sentinel the error belongs to.
func (e *Error) Kind() error { return e.kind }

func NotFound(format string, args ...any) error {
	return &Error{kind: ErrNotFound, msg: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...any) error {
	return &Error{kind: ErrValidation, msg: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...any) error {
	return &Error{kind: ErrConflict, msg: fmt.Sprintf(format, args...)}
}
