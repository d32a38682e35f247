package engine

import (
	"errors"
	"fmt"

	"devtoolbox/cryptotool/codec"
	"devtoolbox/cryptotool/crypto"
	"devtoolbox/cryptotool/keys"
)

// ErrorKind classifies every failure the engine can return.
type ErrorKind int

const (
	MalformedEncoding ErrorKind = iota + 1
	InvalidKeyFormat
	MissingKey
	MissingIV
	IvLengthMismatch
	PlaintextTooLong
	DecryptionFailed
	SignatureRequired
	UnsupportedOperation
	PrimitiveFailure
)

func (k ErrorKind) String() string {
	switch k {
	case MalformedEncoding:
		return "MalformedEncoding"
	case InvalidKeyFormat:
		return "InvalidKeyFormat"
	case MissingKey:
		return "MissingKey"
	case MissingIV:
		return "MissingIV"
	case IvLengthMismatch:
		return "IvLengthMismatch"
	case PlaintextTooLong:
		return "PlaintextTooLong"
	case DecryptionFailed:
		return "DecryptionFailed"
	case SignatureRequired:
		return "SignatureRequired"
	case UnsupportedOperation:
		return "UnsupportedOperation"
	case PrimitiveFailure:
		return "PrimitiveFailure"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// MissingInput reports whether the kind means the caller has not supplied
// something yet, as opposed to supplying something wrong.
func (k ErrorKind) MissingInput() bool {
	switch k {
	case MissingKey, MissingIV, SignatureRequired:
		return true
	default:
		return false
	}
}

// Error is a classified engine failure.
type Error struct {
	Kind ErrorKind
	// Limit is the largest accepted plaintext for PlaintextTooLong.
	Limit int
	err   error
}

func newError(kind ErrorKind, err error) *Error {
	return &Error{Kind: kind, err: err}
}

func (e *Error) Error() string {
	switch {
	case e.Kind == PlaintextTooLong:
		return fmt.Sprintf("%s: plaintext exceeds %d bytes", e.Kind, e.Limit)
	case e.Kind == DecryptionFailed:
		// No detail beyond the kind.
		return e.Kind.String()
	case e.err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.err)
	default:
		return e.Kind.String()
	}
}

func (e *Error) Unwrap() error {
	return e.err
}

// Classify maps an error from the codec, keys or crypto packages onto an
// ErrorKind. Errors that fit no other kind are PrimitiveFailure.
func Classify(err error) ErrorKind {
	var engineErr *Error
	switch {
	case errors.As(err, &engineErr):
		return engineErr.Kind
	case errors.Is(err, codec.ErrMalformedEncoding):
		return MalformedEncoding
	case errors.Is(err, keys.ErrInvalidKeyFormat), errors.Is(err, crypto.ErrInvalidKey):
		return InvalidKeyFormat
	case errors.Is(err, crypto.ErrInvalidNonceSize):
		return IvLengthMismatch
	case errors.Is(err, crypto.ErrMessageTooLong):
		return PlaintextTooLong
	case errors.Is(err, crypto.ErrDecryptionFailed):
		return DecryptionFailed
	case errors.Is(err, crypto.ErrUnsupportedMode):
		return UnsupportedOperation
	default:
		return PrimitiveFailure
	}
}

// AsError wraps err as a classified *Error. A nil err yields nil.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var engineErr *Error
	if errors.As(err, &engineErr) {
		return engineErr
	}
	return newError(Classify(err), err)
}
