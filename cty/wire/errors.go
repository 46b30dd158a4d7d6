package wire

import (
	"errors"
	"fmt"

	"github.com/roach88/cty/cty"
)

// CodecErrorCode classifies encoding and decoding failures.
type CodecErrorCode string

const (
	// ErrCodeUnrepresentable indicates a value with no wire form: an
	// unrefined unknown, a capsule or a non-string mark.
	ErrCodeUnrepresentable CodecErrorCode = "UNREPRESENTABLE"

	// ErrCodeTypeMismatch indicates a value, or bytes, that do not fit the
	// given type.
	ErrCodeTypeMismatch CodecErrorCode = "TYPE_MISMATCH"

	// ErrCodeMalformed indicates bytes that are not valid msgpack or carry an
	// invalid payload.
	ErrCodeMalformed CodecErrorCode = "MALFORMED"

	// ErrCodeTrailingData indicates bytes left over after a complete value.
	ErrCodeTrailingData CodecErrorCode = "TRAILING_DATA"
)

// CodecError is returned by Marshal and Unmarshal.
type CodecError struct {
	Code    CodecErrorCode
	Path    cty.Path
	Message string
	Err     error
}

func (e *CodecError) Error() string {
	msg := string(e.Code) + ": "
	if len(e.Path) > 0 {
		msg += e.Path.String() + ": "
	}
	msg += e.Message
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *CodecError) Unwrap() error {
	return e.Err
}

// IsCodecError reports whether err is or wraps a *CodecError.
func IsCodecError(err error) bool {
	var ce *CodecError
	return errors.As(err, &ce)
}

func codecErrorf(code CodecErrorCode, path cty.Path, format string, args ...any) *CodecError {
	return &CodecError{Code: code, Path: path.Copy(), Message: fmt.Sprintf(format, args...)}
}

func malformed(path cty.Path, what string, err error) *CodecError {
	return &CodecError{Code: ErrCodeMalformed, Path: path.Copy(), Message: what, Err: err}
}
