// Package codec normalizes encoder and decoder implementations behind a
// uniform open/use/flush/close lifecycle, with a closed error taxonomy so
// callers can branch on category without knowing backend internals.
package codec

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes codec failures.
type ErrorCode int

const (
	NoError ErrorCode = iota
	VideoCodecNotFound
	AudioCodecNotFound
	SubtitleCodecNotFound
	OpenCodecError
	CloseCodecError
	DecodeError
	EncodeError
	FormatError
	ResourceError
	NetworkError
	AccessDenied
	UnknownError
)

// String returns the category name.
func (c ErrorCode) String() string {
	switch c {
	case NoError:
		return "no error"
	case VideoCodecNotFound:
		return "video codec not found"
	case AudioCodecNotFound:
		return "audio codec not found"
	case SubtitleCodecNotFound:
		return "subtitle codec not found"
	case OpenCodecError:
		return "open codec error"
	case CloseCodecError:
		return "close codec error"
	case DecodeError:
		return "decode error"
	case EncodeError:
		return "encode error"
	case FormatError:
		return "format error"
	case ResourceError:
		return "resource error"
	case NetworkError:
		return "network error"
	case AccessDenied:
		return "access denied"
	default:
		return "unknown error"
	}
}

// Error carries a categorized code plus a human-readable detail string.
type Error struct {
	Code   ErrorCode
	Detail string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Detail)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// newError builds a categorized error.
func newError(code ErrorCode, detail string, err error) *Error {
	return &Error{Code: code, Detail: detail, Err: err}
}

// CodeOf extracts the ErrorCode from err, or UnknownError for foreign errors.
func CodeOf(err error) ErrorCode {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Code
	}
	if err == nil {
		return NoError
	}
	return UnknownError
}

// ErrNeedMoreInput is the transient "submit more input" condition. It is a
// retry signal, not a failure: callers resubmit and must not tear down the
// codec.
var ErrNeedMoreInput = errors.New("codec needs more input")
