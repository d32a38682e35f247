package controller

import (
	"fmt"

	"devtoolbox/cryptotool/crypto"
	"devtoolbox/cryptotool/engine"
)

// Pair is the pair of operations a controller toggles between.
type Pair int

const (
	EncryptDecrypt Pair = iota
	SignVerify
)

const (
	VerifyValid   = "valid"
	VerifyInvalid = "invalid"
)

// Operations returns the two sides of the pair, first side first.
func (p Pair) Operations() (engine.Operation, engine.Operation) {
	if p == SignVerify {
		return engine.Sign, engine.Verify
	}
	return engine.Encrypt, engine.Decrypt
}

// Other returns the opposite side of op within the pair.
func (p Pair) Other(op engine.Operation) engine.Operation {
	first, second := p.Operations()
	if op == first {
		return second
	}
	return first
}

func (p Pair) String() string {
	switch p {
	case EncryptDecrypt:
		return "encrypt-decrypt"
	case SignVerify:
		return "sign-verify"
	default:
		return fmt.Sprintf("Pair(%d)", int(p))
	}
}

// Snapshot is a copy of the controller state handed to observers.
type Snapshot struct {
	Pair       Pair
	Operation  engine.Operation
	Algorithm  engine.Algorithm
	Mode       crypto.Mode
	KeySize    int
	Input      string
	Output     string
	Signature  string
	Err        *engine.Error
	Generation uint64
}
