package engine

import (
	"fmt"
	"strings"

	"devtoolbox/cryptotool/crypto"
	"devtoolbox/cryptotool/keys"
)

type (
	Operation int
	Algorithm int
	Outcome   int
)

const (
	Encrypt Operation = iota
	Decrypt
	Sign
	Verify
)

const (
	AES Algorithm = iota
	RSA
)

const (
	Success Outcome = iota
	Verified
	Failure
)

// PSSSaltLength is the salt length used for every RSA-PSS signature.
const PSSSaltLength = 32

// Request is a single transform. Payload, Key bytes, IV and Signature are
// fully decoded; the engine does not retain any of them after Convert.
type Request struct {
	Operation Operation
	Algorithm Algorithm
	// Mode applies to AES only.
	Mode      crypto.Mode
	Payload   []byte
	Key       *keys.Material
	IV        []byte
	Signature []byte
}

// Result is either the full output, a verification verdict or a failure.
type Result struct {
	Outcome Outcome
	Data    []byte
	Valid   bool
	Err     *Error
}

func successResult(data []byte) *Result {
	return &Result{Outcome: Success, Data: data}
}

func verifiedResult(valid bool) *Result {
	return &Result{Outcome: Verified, Valid: valid}
}

func failureResult(err *Error) *Result {
	return &Result{Outcome: Failure, Err: err}
}

// Failed reports whether r carries an error.
func (r *Result) Failed() bool {
	return r.Outcome == Failure
}

func (o Operation) String() string {
	switch o {
	case Encrypt:
		return "encrypt"
	case Decrypt:
		return "decrypt"
	case Sign:
		return "sign"
	case Verify:
		return "verify"
	default:
		return fmt.Sprintf("Operation(%d)", int(o))
	}
}

func (a Algorithm) String() string {
	switch a {
	case AES:
		return "AES"
	case RSA:
		return "RSA"
	default:
		return fmt.Sprintf("Algorithm(%d)", int(a))
	}
}

func ParseAlgorithm(s string) (Algorithm, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "AES":
		return AES, nil
	case "RSA":
		return RSA, nil
	default:
		return AES, fmt.Errorf("unknown algorithm %q", s)
	}
}
