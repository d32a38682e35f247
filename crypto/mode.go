package crypto

import (
	"fmt"
	"strings"
)

// Mode is the AES block cipher mode.
type Mode int

const (
	ModeGCM Mode = iota
	ModeCBC
)

const (
	// GCMNonceSize is the AES-GCM nonce length in bytes.
	GCMNonceSize = 12
	// CBCIVSize is the AES-CBC IV length in bytes (one AES block).
	CBCIVSize = 16
	// GCMTagSize is the AES-GCM authentication tag length in bytes.
	GCMTagSize = 16
)

func (m Mode) String() string {
	switch m {
	case ModeGCM:
		return "GCM"
	case ModeCBC:
		return "CBC"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Algorithm returns the algorithm name bound to the mode, e.g. "AES-GCM".
func (m Mode) Algorithm() string {
	return "AES-" + m.String()
}

// NonceSize returns the required nonce/IV length, or 0 for an unknown mode.
func (m Mode) NonceSize() int {
	switch m {
	case ModeGCM:
		return GCMNonceSize
	case ModeCBC:
		return CBCIVSize
	default:
		return 0
	}
}

func ParseMode(s string) (Mode, error) {
	switch strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(s)), "AES-") {
	case "GCM":
		return ModeGCM, nil
	case "CBC":
		return ModeCBC, nil
	default:
		return ModeGCM, fmt.Errorf("%w: %q", ErrUnsupportedMode, s)
	}
}
