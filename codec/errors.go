package codec

import "errors"

// ErrMalformedEncoding is returned when Base64 or PEM text cannot be decoded.
var ErrMalformedEncoding = errors.New("malformed encoding")
