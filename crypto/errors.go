package crypto

import "errors"

var (
	// ErrDecryptionFailed is returned for any authentication, padding or
	// unwrap failure. It intentionally carries no further detail.
	ErrDecryptionFailed = errors.New("decryption failed")

	// ErrInvalidKey is returned when key bytes cannot be used by a primitive.
	ErrInvalidKey = errors.New("invalid key")

	// ErrInvalidNonceSize is returned when the nonce/IV length does not match the mode.
	ErrInvalidNonceSize = errors.New("invalid nonce size")

	// ErrUnsupportedMode is returned for an unknown AES mode.
	ErrUnsupportedMode = errors.New("unsupported mode")

	// ErrMessageTooLong is returned when a plaintext exceeds the OAEP limit.
	ErrMessageTooLong = errors.New("message too long for RSA key size")

	// ErrUnsupportedExponent is returned for RSA public exponents other than 65537.
	ErrUnsupportedExponent = errors.New("unsupported public exponent")
)
