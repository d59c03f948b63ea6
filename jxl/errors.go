package jxl

import (
	"errors"
	"fmt"
)

// ExitCode represents categorized error codes
type ExitCode int

const (
	ExitCodeAssertionFailure   ExitCode = 1
	ExitCodeShortRead          ExitCode = 3
	ExitCodeBadSignature       ExitCode = 10
	ExitCodeBadHeader          ExitCode = 11
	ExitCodeDimensionsTooLarge ExitCode = 12
	ExitCodeICCDecodeFailure   ExitCode = 20
	ExitCodeICCLengthMismatch  ExitCode = 21
	ExitCodeUnsupported        ExitCode = 42
	ExitCodeNotAtEOF           ExitCode = 50
	ExitCodeBadContainer       ExitCode = 102
	ExitCodeBadJpegData        ExitCode = 103
	ExitCodeFrameDecodeFailure ExitCode = 104
)

func (e ExitCode) String() string {
	switch e {
	case ExitCodeAssertionFailure:
		return "AssertionFailure"
	case ExitCodeShortRead:
		return "ShortRead"
	case ExitCodeBadSignature:
		return "BadSignature"
	case ExitCodeBadHeader:
		return "BadHeader"
	case ExitCodeDimensionsTooLarge:
		return "DimensionsTooLarge"
	case ExitCodeICCDecodeFailure:
		return "ICCDecodeFailure"
	case ExitCodeICCLengthMismatch:
		return "ICCLengthMismatch"
	case ExitCodeUnsupported:
		return "Unsupported"
	case ExitCodeNotAtEOF:
		return "NotAtEOF"
	case ExitCodeBadContainer:
		return "BadContainer"
	case ExitCodeBadJpegData:
		return "BadJpegData"
	case ExitCodeFrameDecodeFailure:
		return "FrameDecodeFailure"
	default:
		return fmt.Sprintf("ExitCode(%d)", int(e))
	}
}

// JxlError represents an error from codestream decoding
type JxlError struct {
	Code    ExitCode
	Message string
}

func (e *JxlError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is reports whether target is a *JxlError with the same code, so that
// errors.Is(err, ErrShortRead) matches any short read regardless of message.
func (e *JxlError) Is(target error) bool {
	t, ok := target.(*JxlError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// NewJxlError creates a new JxlError
func NewJxlError(code ExitCode, message string) *JxlError {
	return &JxlError{Code: code, Message: message}
}

// ErrExitCode creates a JxlError and returns it
func ErrExitCode(code ExitCode, message string) error {
	return &JxlError{Code: code, Message: message}
}

// IsJxlError checks if an error is a JxlError and returns it
func IsJxlError(err error) (*JxlError, bool) {
	var jxlErr *JxlError
	if errors.As(err, &jxlErr) {
		return jxlErr, true
	}
	return nil, false
}

// CodeOf returns the exit code carried by err, or ExitCodeAssertionFailure
// when err did not originate in this package.
func CodeOf(err error) ExitCode {
	if jxlErr, ok := IsJxlError(err); ok {
		return jxlErr.Code
	}
	return ExitCodeAssertionFailure
}

// Common errors
var (
	ErrShortRead         = &JxlError{Code: ExitCodeShortRead, Message: "read more bits than available"}
	ErrBadSignature      = &JxlError{Code: ExitCodeBadSignature, Message: "file does not start with known JPEG XL signature"}
	ErrICCLengthMismatch = &JxlError{Code: ExitCodeICCLengthMismatch, Message: "ICC length does not match APP markers"}
	ErrNotAtEOF          = &JxlError{Code: ExitCodeNotAtEOF, Message: "reader position not at EOF"}
)
