package crypto

import (
	"bytes"
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testKeyPairOnce sync.Once
	testSPKI        []byte
	testPKCS8       []byte
	testKeyPairErr  error
)

// testKeyPair generates one 2048-bit pair shared by the package tests.
func testKeyPair(t testing.TB) ([]byte, []byte) {
	testKeyPairOnce.Do(func() {
		provider := NewSoftwareProvider(ProviderOptions{})
		testSPKI, testPKCS8, testKeyPairErr = provider.RSAGenerateKeyPair(context.Background(), 2048, DefaultPublicExponent)
	})
	require.NoError(t, testKeyPairErr)
	return testSPKI, testPKCS8
}

func TestRSAGenerateKeyPair(t *testing.T) {
	spki, pkcs8 := testKeyPair(t)

	publicKey, err := ParsePublicKey(spki)
	require.NoError(t, err)
	assert.Equal(t, 2048, publicKey.N.BitLen())
	assert.Equal(t, DefaultPublicExponent, publicKey.E)

	privateKey, err := ParsePrivateKey(pkcs8)
	require.NoError(t, err)
	assert.True(t, privateKey.PublicKey.Equal(publicKey))
}

func TestRSAGenerateKeyPair_UnsupportedExponent(t *testing.T) {
	provider := NewSoftwareProvider(ProviderOptions{})

	_, _, err := provider.RSAGenerateKeyPair(context.Background(), 2048, 3)
	assert.ErrorIs(t, err, ErrUnsupportedExponent)
}

func TestRSAOAEP(t *testing.T) {
	provider := NewSoftwareProvider(ProviderOptions{})
	spki, pkcs8 := testKeyPair(t)
	ctx := context.Background()

	limit := MaxOAEPPlaintext(256)
	require.Equal(t, 190, limit)

	tests := []struct {
		name      string
		plaintext []byte
		tooLong   bool
	}{
		{"empty", []byte{}, false},
		{"short", []byte("hello"), false},
		{"at limit", bytes.Repeat([]byte{'x'}, limit), false},
		{"one over limit", bytes.Repeat([]byte{'x'}, limit+1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ciphertext, err := provider.RSAOAEPEncrypt(ctx, spki, tt.plaintext)
			if tt.tooLong {
				assert.ErrorIs(t, err, ErrMessageTooLong)
				return
			}
			require.NoError(t, err)
			assert.Len(t, ciphertext, 256)

			decrypted, err := provider.RSAOAEPDecrypt(ctx, pkcs8, ciphertext)
			require.NoError(t, err)
			assert.Equal(t, len(tt.plaintext), len(decrypted))
			if len(tt.plaintext) > 0 {
				assert.Equal(t, tt.plaintext, decrypted)
			}
		})
	}
}

func TestRSAOAEP_Randomized(t *testing.T) {
	provider := NewSoftwareProvider(ProviderOptions{})
	spki, _ := testKeyPair(t)

	first, err := provider.RSAOAEPEncrypt(context.Background(), spki, []byte("same input"))
	require.NoError(t, err)
	second, err := provider.RSAOAEPEncrypt(context.Background(), spki, []byte("same input"))
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestRSAOAEPDecrypt_Failures(t *testing.T) {
	provider := NewSoftwareProvider(ProviderOptions{})
	spki, pkcs8 := testKeyPair(t)
	ctx := context.Background()

	ciphertext, err := provider.RSAOAEPEncrypt(ctx, spki, []byte("secret"))
	require.NoError(t, err)

	tampered := bytes.Clone(ciphertext)
	tampered[10] ^= 0x01
	_, err = provider.RSAOAEPDecrypt(ctx, pkcs8, tampered)
	assert.ErrorIs(t, err, ErrDecryptionFailed)

	_, err = provider.RSAOAEPDecrypt(ctx, pkcs8, ciphertext[:100])
	assert.ErrorIs(t, err, ErrDecryptionFailed)

	_, err = provider.RSAOAEPDecrypt(ctx, []byte("not a key"), ciphertext)
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestRSAPSS(t *testing.T) {
	provider := NewSoftwareProvider(ProviderOptions{})
	spki, pkcs8 := testKeyPair(t)
	ctx := context.Background()
	message := []byte("message to sign")

	signature, err := provider.RSAPSSSign(ctx, pkcs8, 32, message)
	require.NoError(t, err)
	assert.Len(t, signature, 256)

	valid, err := provider.RSAPSSVerify(ctx, spki, 32, message, signature)
	require.NoError(t, err)
	assert.True(t, valid)

	t.Run("modified message", func(t *testing.T) {
		valid, err := provider.RSAPSSVerify(ctx, spki, 32, []byte("message to sign!"), signature)
		require.NoError(t, err)
		assert.False(t, valid)
	})

	t.Run("modified signature", func(t *testing.T) {
		tampered := bytes.Clone(signature)
		tampered[0] ^= 0x80
		valid, err := provider.RSAPSSVerify(ctx, spki, 32, message, tampered)
		require.NoError(t, err)
		assert.False(t, valid)
	})

	t.Run("truncated signature", func(t *testing.T) {
		valid, err := provider.RSAPSSVerify(ctx, spki, 32, message, signature[:10])
		require.NoError(t, err)
		assert.False(t, valid)
	})

	t.Run("other key", func(t *testing.T) {
		otherSPKI, _, err := provider.RSAGenerateKeyPair(ctx, 1024, DefaultPublicExponent)
		require.NoError(t, err)

		valid, err := provider.RSAPSSVerify(ctx, otherSPKI, 32, message, signature)
		require.NoError(t, err)
		assert.False(t, valid)
	})

	t.Run("unparseable key", func(t *testing.T) {
		_, err := provider.RSAPSSVerify(ctx, []byte{0x30, 0x00}, 32, message, signature)
		assert.ErrorIs(t, err, ErrInvalidKey)
	})
}

func TestParseKeys_WrongKind(t *testing.T) {
	spki, pkcs8 := testKeyPair(t)

	_, err := ParsePublicKey(pkcs8)
	assert.ErrorIs(t, err, ErrInvalidKey)

	_, err = ParsePrivateKey(spki)
	assert.ErrorIs(t, err, ErrInvalidKey)
}
