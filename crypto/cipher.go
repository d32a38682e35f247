package crypto

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/subtle"
	"fmt"
)

// AESEncrypt encrypts plaintext with AES in the given mode. GCM output is
// ciphertext||tag without the nonce; CBC output is PKCS#7 padded.
func (p *SoftwareProvider) AESEncrypt(ctx context.Context, mode Mode, key, iv, plaintext []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	block, err := newBlock(key)
	if err != nil {
		return nil, err
	}

	switch mode {
	case ModeGCM:
		gcm, err := newGCM(block, iv)
		if err != nil {
			return nil, err
		}
		return gcm.Seal(nil, iv, plaintext, nil), nil

	case ModeCBC:
		if len(iv) != CBCIVSize {
			return nil, fmt.Errorf("%w: got %d, want %d", ErrInvalidNonceSize, len(iv), CBCIVSize)
		}
		padded := pkcs7Pad(plaintext, aes.BlockSize)
		ciphertext := make([]byte, len(padded))
		cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)
		return ciphertext, nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMode, mode)
	}
}

// AESDecrypt reverses AESEncrypt. Tag and padding failures both surface
// as ErrDecryptionFailed.
func (p *SoftwareProvider) AESDecrypt(ctx context.Context, mode Mode, key, iv, ciphertext []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	block, err := newBlock(key)
	if err != nil {
		return nil, err
	}

	switch mode {
	case ModeGCM:
		gcm, err := newGCM(block, iv)
		if err != nil {
			return nil, err
		}
		if len(ciphertext) < GCMTagSize {
			return nil, ErrDecryptionFailed
		}
		plaintext, err := gcm.Open(nil, iv, ciphertext, nil)
		if err != nil {
			return nil, ErrDecryptionFailed
		}
		return plaintext, nil

	case ModeCBC:
		if len(iv) != CBCIVSize {
			return nil, fmt.Errorf("%w: got %d, want %d", ErrInvalidNonceSize, len(iv), CBCIVSize)
		}
		if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
			return nil, ErrDecryptionFailed
		}
		padded := make([]byte, len(ciphertext))
		cipher.NewCBCDecrypter(block, iv).CryptBlocks(padded, ciphertext)
		plaintext, ok := pkcs7Unpad(padded, aes.BlockSize)
		if !ok {
			return nil, ErrDecryptionFailed
		}
		return plaintext, nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMode, mode)
	}
}

func newBlock(key []byte) (cipher.Block, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return block, nil
}

func newGCM(block cipher.Block, nonce []byte) (cipher.AEAD, error) {
	if len(nonce) != GCMNonceSize {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrInvalidNonceSize, len(nonce), GCMNonceSize)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	padded := make([]byte, len(data), len(data)+n)
	copy(padded, data)
	for i := 0; i < n; i++ {
		padded = append(padded, byte(n))
	}
	return padded
}

// pkcs7Unpad checks every padding byte before reporting success.
func pkcs7Unpad(data []byte, blockSize int) ([]byte, bool) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, false
	}

	n := int(data[len(data)-1])
	if n == 0 || n > blockSize {
		return nil, false
	}

	good := 1
	for i := len(data) - n; i < len(data); i++ {
		good &= subtle.ConstantTimeByteEq(data[i], byte(n))
	}
	if good != 1 {
		return nil, false
	}

	return data[:len(data)-n], true
}
