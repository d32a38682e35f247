package crypto

import (
	"context"
	gocrypto "crypto"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"errors"
	"fmt"
)

// HashSize is the SHA-256 digest length used by OAEP and PSS.
const HashSize = sha256.Size

// MaxOAEPPlaintext returns the largest plaintext RSA-OAEP/SHA-256 accepts
// for a modulus of the given size in bytes.
func MaxOAEPPlaintext(modulusBytes int) int {
	return modulusBytes - 2*HashSize - 2
}

func (p *SoftwareProvider) RSAGenerateKeyPair(ctx context.Context, modulusBits, exponent int) ([]byte, []byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	if exponent != DefaultPublicExponent {
		return nil, nil, fmt.Errorf("%w: %d", ErrUnsupportedExponent, exponent)
	}

	privateKey, err := rsa.GenerateKey(p.rand, modulusBits)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate RSA key: %w", err)
	}

	spki, err := x509.MarshalPKIXPublicKey(&privateKey.PublicKey)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal public key: %w", err)
	}

	pkcs8, err := x509.MarshalPKCS8PrivateKey(privateKey)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal private key: %w", err)
	}

	return spki, pkcs8, nil
}

func (p *SoftwareProvider) RSAOAEPEncrypt(ctx context.Context, spki, plaintext []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	publicKey, err := ParsePublicKey(spki)
	if err != nil {
		return nil, err
	}

	ciphertext, err := rsa.EncryptOAEP(sha256.New(), p.rand, publicKey, plaintext, nil)
	if err != nil {
		if errors.Is(err, rsa.ErrMessageTooLong) {
			return nil, fmt.Errorf("%w: max %d bytes", ErrMessageTooLong, MaxOAEPPlaintext(publicKey.Size()))
		}
		return nil, fmt.Errorf("failed to encrypt: %w", err)
	}

	return ciphertext, nil
}

func (p *SoftwareProvider) RSAOAEPDecrypt(ctx context.Context, pkcs8, ciphertext []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	privateKey, err := ParsePrivateKey(pkcs8)
	if err != nil {
		return nil, err
	}

	plaintext, err := rsa.DecryptOAEP(sha256.New(), p.rand, privateKey, ciphertext, nil)
	if err != nil {
		return nil, ErrDecryptionFailed
	}

	return plaintext, nil
}

func (p *SoftwareProvider) RSAPSSSign(ctx context.Context, pkcs8 []byte, saltLen int, message []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	privateKey, err := ParsePrivateKey(pkcs8)
	if err != nil {
		return nil, err
	}

	digest := sha256.Sum256(message)
	signature, err := rsa.SignPSS(p.rand, privateKey, gocrypto.SHA256, digest[:], &rsa.PSSOptions{
		SaltLength: saltLen,
		Hash:       gocrypto.SHA256,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to sign: %w", err)
	}

	return signature, nil
}

// RSAPSSVerify reports whether signature is valid for message. A bad
// signature is (false, nil); only an unusable key is an error.
func (p *SoftwareProvider) RSAPSSVerify(ctx context.Context, spki []byte, saltLen int, message, signature []byte) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	publicKey, err := ParsePublicKey(spki)
	if err != nil {
		return false, err
	}

	digest := sha256.Sum256(message)
	err = rsa.VerifyPSS(publicKey, gocrypto.SHA256, digest[:], signature, &rsa.PSSOptions{
		SaltLength: saltLen,
		Hash:       gocrypto.SHA256,
	})

	return err == nil, nil
}

// ParsePublicKey parses an SPKI DER encoded RSA public key.
func ParsePublicKey(spki []byte) (*rsa.PublicKey, error) {
	key, err := x509.ParsePKIXPublicKey(spki)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}

	publicKey, ok := key.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: public key is %T, not RSA", ErrInvalidKey, key)
	}

	return publicKey, nil
}

// ParsePrivateKey parses a PKCS#8 DER encoded RSA private key.
func ParsePrivateKey(pkcs8 []byte) (*rsa.PrivateKey, error) {
	key, err := x509.ParsePKCS8PrivateKey(pkcs8)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}

	privateKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: private key is %T, not RSA", ErrInvalidKey, key)
	}

	return privateKey, nil
}
