package crypto

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
)

// DefaultPublicExponent is the only RSA public exponent the provider generates.
const DefaultPublicExponent = 65537

// Provider is the cryptographic primitive provider. Keys are passed as
// fully decoded bytes: raw AES keys, SPKI DER public keys and PKCS#8 DER
// private keys.
type Provider interface {
	RandomBytes(n int) ([]byte, error)

	AESEncrypt(ctx context.Context, mode Mode, key, iv, plaintext []byte) ([]byte, error)
	AESDecrypt(ctx context.Context, mode Mode, key, iv, ciphertext []byte) ([]byte, error)

	RSAGenerateKeyPair(ctx context.Context, modulusBits, exponent int) (spki []byte, pkcs8 []byte, err error)
	RSAOAEPEncrypt(ctx context.Context, spki, plaintext []byte) ([]byte, error)
	RSAOAEPDecrypt(ctx context.Context, pkcs8, ciphertext []byte) ([]byte, error)
	RSAPSSSign(ctx context.Context, pkcs8 []byte, saltLen int, message []byte) ([]byte, error)
	RSAPSSVerify(ctx context.Context, spki []byte, saltLen int, message, signature []byte) (bool, error)
}

// ProviderOptions configures a SoftwareProvider.
type ProviderOptions struct {
	// Rand is the entropy source; crypto/rand.Reader when nil.
	Rand io.Reader
}

// SoftwareProvider implements Provider on the Go standard crypto packages.
type SoftwareProvider struct {
	rand io.Reader
}

var _ Provider = (*SoftwareProvider)(nil)

// NewSoftwareProvider creates a provider with the given options
func NewSoftwareProvider(options ProviderOptions) *SoftwareProvider {
	r := options.Rand
	if r == nil {
		r = rand.Reader
	}

	return &SoftwareProvider{
		rand: r,
	}
}

func (p *SoftwareProvider) RandomBytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("invalid random length %d", n)
	}

	value := make([]byte, n)
	if _, err := io.ReadFull(p.rand, value); err != nil {
		return nil, fmt.Errorf("failed to read random bytes: %w", err)
	}

	return value, nil
}
