package mfs

import (
	"fmt"
)

// FSError is the interface implemented by every error the file system
// returns. The dispatcher collapses all of these to a "-1" reply; the
// Go API keeps the distinctions.
type FSError interface {
	error
	WithMessage(message string) FSError
	WrapError(err error) FSError
}

// Error is a sentinel error, comparable with errors.Is. The messages
// mirror the POSIX errno strings for the conditions this file system
// can actually hit.
type Error string

const ErrArgumentOutOfRange = Error("Numerical argument out of domain")
const ErrDirectoryNotEmpty = Error("Directory not empty")
const ErrFileSystemCorrupted = Error("Structure needs cleaning")
const ErrInvalidArgument = Error("Invalid argument")
const ErrIOFailed = Error("Input/output error")
const ErrIsADirectory = Error("Is a directory")
const ErrNameTooLong = Error("File name too long")
const ErrNoSpaceOnDevice = Error("No space left on device")
const ErrNotADirectory = Error("Not a directory")
const ErrNotFound = Error("No such file or directory")
const ErrSlotAlreadyBacked = Error("Block slot already backed")
const ErrUnexpectedEOF = Error("Unexpected end of file or stream")

func (e Error) Error() string {
	return string(e)
}

// WithMessage returns a copy of this error with a detail message
// appended. The result matches both e and nothing else under errors.Is.
func (e Error) WithMessage(message string) FSError {
	return wrappedError{
		message:  fmt.Sprintf("%s: %s", e.Error(), message),
		sentinel: e,
		cause:    e,
	}
}

// WrapError returns a copy of this error carrying err as its cause. The
// result matches both e and err under errors.Is.
func (e Error) WrapError(err error) FSError {
	return wrappedError{
		message:  fmt.Sprintf("%s: %s", e.Error(), err.Error()),
		sentinel: e,
		cause:    err,
	}
}

// -----------------------------------------------------------------------------

type wrappedError struct {
	message  string
	sentinel Error
	cause    error
}

func (e wrappedError) Error() string {
	return e.message
}

func (e wrappedError) WithMessage(message string) FSError {
	return wrappedError{
		message:  fmt.Sprintf("%s: %s", e.message, message),
		sentinel: e.sentinel,
		cause:    e,
	}
}

func (e wrappedError) WrapError(err error) FSError {
	return wrappedError{
		message:  fmt.Sprintf("%s: %s", e.message, err.Error()),
		sentinel: e.sentinel,
		cause:    err,
	}
}

func (e wrappedError) Is(target error) bool {
	return target == e.sentinel
}

func (e wrappedError) Unwrap() error {
	return e.cause
}
