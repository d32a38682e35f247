package crypto

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingProvider wraps a SoftwareProvider and counts primitive calls
type countingProvider struct {
	*SoftwareProvider
	aesCalls    int
	verifyCalls int
}

func newCountingProvider() *countingProvider {
	return &countingProvider{SoftwareProvider: NewSoftwareProvider(ProviderOptions{})}
}

func (p *countingProvider) AESEncrypt(ctx context.Context, mode Mode, key, iv, plaintext []byte) ([]byte, error) {
	p.aesCalls++
	return p.SoftwareProvider.AESEncrypt(ctx, mode, key, iv, plaintext)
}

func (p *countingProvider) AESDecrypt(ctx context.Context, mode Mode, key, iv, ciphertext []byte) ([]byte, error) {
	p.aesCalls++
	return p.SoftwareProvider.AESDecrypt(ctx, mode, key, iv, ciphertext)
}

func (p *countingProvider) RSAPSSVerify(ctx context.Context, spki []byte, saltLen int, message, signature []byte) (bool, error) {
	p.verifyCalls++
	return p.SoftwareProvider.RSAPSSVerify(ctx, spki, saltLen, message, signature)
}

func TestCachingProvider_AESEncrypt(t *testing.T) {
	underlying := newCountingProvider()
	provider, err := NewCachingProvider(underlying, CachingConfig{
		MaxCache: 10,
		MaxAge:   5 * time.Minute,
		MaxUsage: 5,
	}, nil)
	require.NoError(t, err, "Failed to create caching provider")

	ctx := context.Background()

	// First call should reach the underlying provider
	first, err := provider.AESEncrypt(ctx, ModeGCM, testKey256, testGCMIV, []byte("payload"))
	require.NoError(t, err)

	// Second call should be served from cache
	second, err := provider.AESEncrypt(ctx, ModeGCM, testKey256, testGCMIV, []byte("payload"))
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, underlying.aesCalls, "Expected underlying provider to be called only once")

	// Callers get their own copy
	second[0] ^= 0xff
	third, err := provider.AESEncrypt(ctx, ModeGCM, testKey256, testGCMIV, []byte("payload"))
	require.NoError(t, err)
	assert.Equal(t, first, third)

	// Different inputs miss
	_, err = provider.AESEncrypt(ctx, ModeCBC, testKey256, testCBCIV, []byte("payload"))
	require.NoError(t, err)
	assert.Equal(t, 2, underlying.aesCalls)
}

func TestCachingProvider_Expiration(t *testing.T) {
	underlying := newCountingProvider()
	provider, err := NewCachingProvider(underlying, CachingConfig{
		MaxCache: 10,
		MaxAge:   50 * time.Millisecond, // very short maxAge for testing
		MaxUsage: 100,
	}, nil)
	require.NoError(t, err)

	ctx := context.Background()

	_, err = provider.AESEncrypt(ctx, ModeGCM, testKey256, testGCMIV, []byte("payload"))
	require.NoError(t, err)
	assert.Equal(t, 1, underlying.aesCalls)

	// Wait for the entry to expire
	time.Sleep(100 * time.Millisecond)

	_, err = provider.AESEncrypt(ctx, ModeGCM, testKey256, testGCMIV, []byte("payload"))
	require.NoError(t, err)
	assert.Equal(t, 2, underlying.aesCalls, "Expected underlying provider to be called again after expiration")
}

func TestCachingProvider_UsageLimit(t *testing.T) {
	underlying := newCountingProvider()
	maxUsage := 3
	provider, err := NewCachingProvider(underlying, CachingConfig{
		MaxCache: 10,
		MaxUsage: maxUsage,
	}, nil)
	require.NoError(t, err)

	ctx := context.Background()

	for i := 1; i <= maxUsage; i++ {
		_, err = provider.AESEncrypt(ctx, ModeGCM, testKey256, testGCMIV, []byte("payload"))
		require.NoError(t, err, "Failed on usage %d", i)
	}
	assert.Equal(t, 1, underlying.aesCalls, "Expected underlying provider to be called only once before reaching limit")

	_, err = provider.AESEncrypt(ctx, ModeGCM, testKey256, testGCMIV, []byte("payload"))
	require.NoError(t, err)
	assert.Equal(t, 2, underlying.aesCalls, "Expected underlying provider to be called again after reaching usage limit")
}

func TestCachingProvider_FailuresNotCached(t *testing.T) {
	underlying := newCountingProvider()
	provider, err := NewCachingProvider(underlying, CachingConfig{MaxCache: 10, MaxUsage: 10}, nil)
	require.NoError(t, err)

	ctx := context.Background()
	garbage := make([]byte, 32)

	for i := 0; i < 2; i++ {
		_, err = provider.AESDecrypt(ctx, ModeGCM, testKey256, testGCMIV, garbage)
		assert.ErrorIs(t, err, ErrDecryptionFailed)
	}
	assert.Equal(t, 2, underlying.aesCalls)
}

func TestCachingProvider_Verify(t *testing.T) {
	underlying := newCountingProvider()
	provider, err := NewCachingProvider(underlying, CachingConfig{MaxCache: 10, MaxUsage: 10}, nil)
	require.NoError(t, err)

	spki, pkcs8 := testKeyPair(t)
	ctx := context.Background()
	message := []byte("cached verify")

	signature, err := provider.RSAPSSSign(ctx, pkcs8, 32, message)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		valid, err := provider.RSAPSSVerify(ctx, spki, 32, message, signature)
		require.NoError(t, err)
		assert.True(t, valid)
	}
	assert.Equal(t, 1, underlying.verifyCalls)

	// Salt length is part of the key
	_, err = provider.RSAPSSVerify(ctx, spki, 20, message, signature)
	require.NoError(t, err)
	assert.Equal(t, 2, underlying.verifyCalls)
}

func TestCachingProvider_Eviction(t *testing.T) {
	underlying := newCountingProvider()
	provider, err := NewCachingProvider(underlying, CachingConfig{MaxCache: 1, MaxUsage: 10}, nil)
	require.NoError(t, err)

	ctx := context.Background()

	_, err = provider.AESEncrypt(ctx, ModeGCM, testKey256, testGCMIV, []byte("a"))
	require.NoError(t, err)
	_, err = provider.AESEncrypt(ctx, ModeGCM, testKey256, testGCMIV, []byte("b"))
	require.NoError(t, err)
	_, err = provider.AESEncrypt(ctx, ModeGCM, testKey256, testGCMIV, []byte("a"))
	require.NoError(t, err)

	assert.Equal(t, 3, underlying.aesCalls)
}

func TestNewCachingProvider_InvalidSize(t *testing.T) {
	_, err := NewCachingProvider(newCountingProvider(), CachingConfig{MaxCache: 0, MaxUsage: 1}, nil)
	assert.Error(t, err)
}

func TestCreateCacheKey(t *testing.T) {
	// Length prefixes keep part boundaries distinct
	assert.NotEqual(t,
		createCacheKey("op", []byte("ab"), []byte("c")),
		createCacheKey("op", []byte("a"), []byte("bc")),
	)
	assert.NotEqual(t,
		createCacheKey("encrypt", []byte("x")),
		createCacheKey("decrypt", []byte("x")),
	)
	assert.Equal(t,
		createCacheKey("op", []byte("x")),
		createCacheKey("op", []byte("x")),
	)
}
