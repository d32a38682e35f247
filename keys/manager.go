package keys

import (
	"context"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"fmt"
	"io"

	"devtoolbox/cryptotool/codec"
	"devtoolbox/cryptotool/crypto"

	"go.uber.org/zap"
	"golang.org/x/crypto/hkdf"
)

const (
	// MinModulusBits and MaxModulusBits bound the RSA modulus accepted on import.
	MinModulusBits = 1024
	MaxModulusBits = 16384

	derivationInfo = "cryptotool aes key"
)

// Manager generates, imports and derives key material. It holds no key
// state between calls.
type Manager struct {
	provider crypto.Provider
	logger   *zap.Logger
}

func NewManager(provider crypto.Provider, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		provider: provider,
		logger:   logger,
	}
}

// GenerateSymmetricKey returns bits/8 random bytes as an AES key.
func (m *Manager) GenerateSymmetricKey(ctx context.Context, bits int) (*Material, error) {
	if err := validateSymmetricSize(bits); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key, err := m.provider.RandomBytes(bits / 8)
	if err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}

	m.logger.Debug("generated symmetric key", zap.Int("bits", bits))

	return &Material{
		Family:         Symmetric,
		KeySizeBits:    bits,
		Representation: Base64,
		Role:           EncryptDecrypt,
		Kind:           Secret,
		Bytes:          key,
	}, nil
}

// GenerateNonce returns a random nonce of the length mode requires.
func (m *Manager) GenerateNonce(ctx context.Context, mode crypto.Mode) ([]byte, error) {
	size := mode.NonceSize()
	if size == 0 {
		return nil, fmt.Errorf("%w: %s", crypto.ErrUnsupportedMode, mode)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	nonce, err := m.provider.RandomBytes(size)
	if err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return nonce, nil
}

// GenerateKeyPair generates an RSA key pair with exponent 65537.
func (m *Manager) GenerateKeyPair(ctx context.Context, bits int, role Role) (*KeyPair, error) {
	switch bits {
	case 2048, 3072, 4096:
	default:
		return nil, fmt.Errorf("%w: RSA key size must be 2048, 3072 or 4096 bits, got %d", ErrInvalidKeyFormat, bits)
	}

	spki, pkcs8, err := m.provider.RSAGenerateKeyPair(ctx, bits, crypto.DefaultPublicExponent)
	if err != nil {
		return nil, fmt.Errorf("failed to generate key pair: %w", err)
	}

	m.logger.Debug("generated key pair", zap.Int("bits", bits), zap.Stringer("role", role))

	public := &Material{
		Family:         Asymmetric,
		KeySizeBits:    bits,
		Representation: PEM,
		Role:           role,
		Kind:           Public,
		Bytes:          spki,
	}
	private := &Material{
		Family:         Asymmetric,
		KeySizeBits:    bits,
		Representation: PEM,
		Role:           role,
		Kind:           Private,
		Bytes:          pkcs8,
	}

	return &KeyPair{
		Public:     public,
		Private:    private,
		PublicPEM:  public.Export(),
		PrivatePEM: private.Export(),
	}, nil
}

// ImportKey decodes input according to rep and validates it as a key of
// the given kind. Encoding failures wrap codec.ErrMalformedEncoding; bytes
// that do not form a usable key wrap ErrInvalidKeyFormat.
func (m *Manager) ImportKey(input []byte, rep Representation, kind Kind, role Role) (*Material, error) {
	var (
		label string
		der   []byte
		err   error
	)

	switch rep {
	case Raw:
		der = input
	case Base64:
		der, err = codec.DecodeBase64(string(input), codec.Standard)
	case PEM:
		label, der, err = codec.DecodePemBlock(string(input))
	default:
		return nil, fmt.Errorf("unknown key representation %s", rep)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode key: %w", err)
	}

	if kind == Secret {
		if rep == PEM {
			return nil, fmt.Errorf("%w: secret keys have no PEM form", ErrInvalidKeyFormat)
		}
		if err := validateSymmetricSize(len(der) * 8); err != nil {
			return nil, err
		}
		return &Material{
			Family:         Symmetric,
			KeySizeBits:    len(der) * 8,
			Representation: rep,
			Role:           EncryptDecrypt,
			Kind:           Secret,
			Bytes:          der,
		}, nil
	}

	der, bits, err := normalizeRSA(label, der, kind)
	if err != nil {
		return nil, err
	}

	return &Material{
		Family:         Asymmetric,
		KeySizeBits:    bits,
		Representation: rep,
		Role:           role,
		Kind:           kind,
		Bytes:          der,
	}, nil
}

// DeriveSymmetricKey stretches a passphrase into an AES key with HKDF-SHA-256.
func (m *Manager) DeriveSymmetricKey(passphrase, salt []byte, bits int) (*Material, error) {
	if err := validateSymmetricSize(bits); err != nil {
		return nil, err
	}
	if len(passphrase) == 0 {
		return nil, fmt.Errorf("%w: empty passphrase", ErrInvalidKeyFormat)
	}
	if len(salt) == 0 {
		salt = make([]byte, sha256.Size)
	}

	reader := hkdf.New(sha256.New, passphrase, salt, []byte(derivationInfo))
	key := make([]byte, bits/8)

	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}

	return &Material{
		Family:         Symmetric,
		KeySizeBits:    bits,
		Representation: Base64,
		Role:           EncryptDecrypt,
		Kind:           Secret,
		Bytes:          key,
	}, nil
}

func validateSymmetricSize(bits int) error {
	switch bits {
	case 128, 192, 256:
		return nil
	default:
		return fmt.Errorf("%w: AES key must be 128, 192 or 256 bits, got %d", ErrInvalidKeyFormat, bits)
	}
}

// normalizeRSA parses der as a key of the given kind and returns it as SPKI
// or PKCS#8 DER. PKCS#1 input is accepted when the PEM label names it.
func normalizeRSA(label string, der []byte, kind Kind) ([]byte, int, error) {
	switch kind {
	case Public:
		var publicKey *rsa.PublicKey
		switch label {
		case codec.PrivateKeyLabel, codec.RSAPrivateKeyLabel:
			return nil, 0, fmt.Errorf("%w: expected a public key, got %s", ErrInvalidKeyFormat, label)
		case codec.RSAPublicKeyLabel:
			key, err := x509.ParsePKCS1PublicKey(der)
			if err != nil {
				return nil, 0, fmt.Errorf("%w: %v", ErrInvalidKeyFormat, err)
			}
			publicKey = key
		default:
			key, err := crypto.ParsePublicKey(der)
			if err != nil {
				return nil, 0, fmt.Errorf("%w: %v", ErrInvalidKeyFormat, err)
			}
			publicKey = key
		}

		bits, err := checkModulus(publicKey)
		if err != nil {
			return nil, 0, err
		}
		spki, err := x509.MarshalPKIXPublicKey(publicKey)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: %v", ErrInvalidKeyFormat, err)
		}
		return spki, bits, nil

	case Private:
		var privateKey *rsa.PrivateKey
		switch label {
		case codec.PublicKeyLabel, codec.RSAPublicKeyLabel:
			return nil, 0, fmt.Errorf("%w: expected a private key, got %s", ErrInvalidKeyFormat, label)
		case codec.RSAPrivateKeyLabel:
			key, err := x509.ParsePKCS1PrivateKey(der)
			if err != nil {
				return nil, 0, fmt.Errorf("%w: %v", ErrInvalidKeyFormat, err)
			}
			privateKey = key
		default:
			key, err := crypto.ParsePrivateKey(der)
			if err != nil {
				return nil, 0, fmt.Errorf("%w: %v", ErrInvalidKeyFormat, err)
			}
			privateKey = key
		}

		bits, err := checkModulus(&privateKey.PublicKey)
		if err != nil {
			return nil, 0, err
		}
		pkcs8, err := x509.MarshalPKCS8PrivateKey(privateKey)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: %v", ErrInvalidKeyFormat, err)
		}
		return pkcs8, bits, nil

	default:
		return nil, 0, fmt.Errorf("%w: unknown key kind %s", ErrInvalidKeyFormat, kind)
	}
}

func checkModulus(publicKey *rsa.PublicKey) (int, error) {
	bits := publicKey.N.BitLen()
	if bits < MinModulusBits || bits > MaxModulusBits || bits%8 != 0 {
		return 0, fmt.Errorf("%w: implausible RSA modulus of %d bits", ErrInvalidKeyFormat, bits)
	}
	return bits, nil
}
