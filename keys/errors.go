package keys

import "errors"

var (
	// ErrInvalidKeyFormat is returned when decoded key bytes do not form a
	// usable key of the requested kind.
	ErrInvalidKeyFormat = errors.New("invalid key format")
)
