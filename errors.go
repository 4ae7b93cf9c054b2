package tlvcodec

import "fmt"

// Code mirrors the C source's s_serializer_error enum: a small, stable
// numeric space callers across a language boundary (or just logging
// pipelines that want a tag, not a string) can switch on, wrapped here
// in an idiomatic Go error rather than returned as a bare int.
type Code int

const (
	Ok                Code = 0
	BufferTooSmall    Code = -1
	InvalidType       Code = -2
	CompressionFailed Code = -3
	EncryptionFailed  Code = -4
	AllocatorFailed   Code = -5
)

func (c Code) String() string {
	switch c {
	case Ok:
		return "ok"
	case BufferTooSmall:
		return "buffer too small"
	case InvalidType:
		return "invalid type"
	case CompressionFailed:
		return "compression failed"
	case EncryptionFailed:
		return "encryption failed"
	case AllocatorFailed:
		return "allocator failed"
	default:
		return fmt.Sprintf("code(%d)", int(c))
	}
}

// Error is the error type every exported Serialize/Deserialize entry
// point returns. Two Errors compare equal under errors.Is when their
// Codes match, regardless of the wrapped cause, so callers can write
//
//	if errors.Is(err, tlvcodec.ErrBufferTooSmall) { ... }
//
// without caring which internal layer actually produced it.
type Error struct {
	Code Code
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("tlvcodec: %s: %v", e.Code, e.Err)
	}
	return fmt.Sprintf("tlvcodec: %s", e.Code)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	te, ok := target.(*Error)
	return ok && e.Code == te.Code
}

func newError(code Code, err error) *Error {
	return &Error{Code: code, Err: err}
}

// Sentinel errors for use with errors.Is. Each carries no cause of its
// own — compare against one of these, don't return it directly.
var (
	ErrBufferTooSmall    = &Error{Code: BufferTooSmall}
	ErrInvalidType       = &Error{Code: InvalidType}
	ErrCompressionFailed = &Error{Code: CompressionFailed}
	ErrEncryptionFailed  = &Error{Code: EncryptionFailed}
	ErrAllocatorFailed   = &Error{Code: AllocatorFailed}
)
