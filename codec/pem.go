package codec

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

const (
	// PublicKeyLabel marks an SPKI encoded public key.
	PublicKeyLabel = "PUBLIC KEY"
	// PrivateKeyLabel marks a PKCS#8 encoded private key.
	PrivateKeyLabel = "PRIVATE KEY"
	// RSAPublicKeyLabel marks a PKCS#1 encoded RSA public key.
	RSAPublicKeyLabel = "RSA PUBLIC KEY"
	// RSAPrivateKeyLabel marks a PKCS#1 encoded RSA private key.
	RSAPrivateKeyLabel = "RSA PRIVATE KEY"

	pemLineLength = 64
)

var (
	pemHeader = regexp.MustCompile(`-----BEGIN ([^-]+)-----`)
	pemFooter = regexp.MustCompile(`-----END ([^-]+)-----`)
)

// EncodePem wraps data as a PEM block with the given label. The body is
// standard base64 hard-wrapped at 64 characters; no trailing newline is
// written after the footer.
func EncodePem(data []byte, label string) string {
	encoded := ToBase64(data)

	var b strings.Builder
	b.WriteString("-----BEGIN " + label + "-----\n")
	for len(encoded) > pemLineLength {
		b.WriteString(encoded[:pemLineLength])
		b.WriteByte('\n')
		encoded = encoded[pemLineLength:]
	}
	if encoded != "" {
		b.WriteString(encoded)
		b.WriteByte('\n')
	}
	b.WriteString("-----END " + label + "-----")

	return b.String()
}

// DecodePem returns the payload bytes of a single PEM block.
func DecodePem(s string) ([]byte, error) {
	_, data, err := DecodePemBlock(s)
	return data, err
}

// DecodePemBlock returns the label and payload bytes of a single PEM block.
// Both the BEGIN and END markers must be present and carry the same label.
func DecodePemBlock(s string) (string, []byte, error) {
	header := pemHeader.FindStringSubmatchIndex(s)
	if header == nil {
		return "", nil, fmt.Errorf("%w: missing PEM header", ErrMalformedEncoding)
	}
	label := s[header[2]:header[3]]

	rest := s[header[1]:]
	footer := pemFooter.FindStringSubmatchIndex(rest)
	if footer == nil {
		return "", nil, fmt.Errorf("%w: missing PEM footer for %q", ErrMalformedEncoding, label)
	}
	if footerLabel := rest[footer[2]:footer[3]]; footerLabel != label {
		return "", nil, fmt.Errorf("%w: PEM footer %q does not match header %q", ErrMalformedEncoding, footerLabel, label)
	}

	body := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, rest[:footer[0]])

	data, err := DecodeBase64(body, Standard)
	if err != nil {
		return "", nil, err
	}

	return label, data, nil
}

// IsPem reports whether s looks like PEM text.
func IsPem(s string) bool {
	return pemHeader.MatchString(s)
}
