package codec

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// Base64Variant selects the alphabet and padding used for Base64 text.
type Base64Variant int

const (
	// Standard is RFC 4648 base64 with '+', '/' and '=' padding.
	Standard Base64Variant = iota
	// URLSafe uses '-' and '_' with '=' padding.
	URLSafe
	// NoPadding is the standard alphabet without trailing '='.
	NoPadding
	// URLSafeNoPadding is the URL alphabet without trailing '='.
	URLSafeNoPadding
)

var variantNames = map[Base64Variant]string{
	Standard:         "standard",
	URLSafe:          "url-safe",
	NoPadding:        "no-padding",
	URLSafeNoPadding: "url-safe-no-padding",
}

func (v Base64Variant) String() string {
	if name, ok := variantNames[v]; ok {
		return name
	}
	return fmt.Sprintf("Base64Variant(%d)", int(v))
}

// ParseBase64Variant maps a variant name such as "url-safe" to its value.
func ParseBase64Variant(name string) (Base64Variant, error) {
	for v, n := range variantNames {
		if strings.EqualFold(n, name) {
			return v, nil
		}
	}
	return Standard, fmt.Errorf("unknown base64 variant %q", name)
}

func (v Base64Variant) urlAlphabet() bool {
	return v == URLSafe || v == URLSafeNoPadding
}

// EncodeBase64 encodes data using the given variant.
func EncodeBase64(data []byte, variant Base64Variant) string {
	switch variant {
	case URLSafe:
		return base64.URLEncoding.EncodeToString(data)
	case NoPadding:
		return base64.RawStdEncoding.EncodeToString(data)
	case URLSafeNoPadding:
		return base64.RawURLEncoding.EncodeToString(data)
	default:
		return base64.StdEncoding.EncodeToString(data)
	}
}

// DecodeBase64 decodes s written in the given variant. Padding is always
// re-derived from the input length, so padded and unpadded input are both
// accepted for every variant. Line breaks are not part of the alphabet.
func DecodeBase64(s string, variant Base64Variant) ([]byte, error) {
	if strings.ContainsAny(s, "\r\n") {
		return nil, fmt.Errorf("%w: line break in base64 text", ErrMalformedEncoding)
	}

	normalized := strings.TrimRight(s, "=")
	if variant.urlAlphabet() {
		normalized = strings.NewReplacer("-", "+", "_", "/").Replace(normalized)
	}

	switch len(normalized) % 4 {
	case 1:
		return nil, fmt.Errorf("%w: length %d cannot be padded to a multiple of 4", ErrMalformedEncoding, len(normalized))
	case 2:
		normalized += "=="
	case 3:
		normalized += "="
	}

	data, err := base64.StdEncoding.DecodeString(normalized)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEncoding, err)
	}

	return data, nil
}

// ToBase64 encodes data to standard padded base64.
func ToBase64(data []byte) string {
	return EncodeBase64(data, Standard)
}

// FromBase64 decodes standard base64, tolerating missing padding.
func FromBase64(s string) ([]byte, error) {
	return DecodeBase64(s, Standard)
}
