package crypto

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"devtoolbox/cryptotool/metrics"

	lru "github.com/hashicorp/golang-lru"
	"go.opentelemetry.io/otel/attribute"
)

// CachingConfig holds configuration for the caching provider
type CachingConfig struct {
	MaxCache int
	// MaxAge of zero disables age based expiry.
	MaxAge   time.Duration
	MaxUsage int
}

type cachedResult struct {
	value      []byte
	valid      bool
	createdAt  time.Time
	usageCount int
}

// CachingProvider memoizes the deterministic primitives of an underlying
// Provider: AES encrypt/decrypt, OAEP decrypt and PSS verify. Randomized
// primitives pass straight through. Entries are keyed by a SHA-256 digest
// of the inputs, so no key bytes are retained.
type CachingProvider struct {
	Provider

	cache          *lru.Cache
	mutex          sync.RWMutex
	maxAge         time.Duration
	maxUsage       int
	metricsHandler *metrics.MetricsHandler
}

var _ Provider = (*CachingProvider)(nil)

// NewCachingProvider wraps underlying with an LRU result cache
func NewCachingProvider(
	underlying Provider,
	config CachingConfig,
	metricsHandler *metrics.MetricsHandler,
) (*CachingProvider, error) {
	if metricsHandler == nil {
		metricsHandler = metrics.NopHandler()
	}

	c := &CachingProvider{
		Provider:       underlying,
		maxAge:         config.MaxAge,
		maxUsage:       config.MaxUsage,
		metricsHandler: metricsHandler,
	}

	cache, err := lru.NewWithEvict(config.MaxCache, func(key interface{}, value interface{}) {
		c.metricsHandler.Counter(metrics.CacheEvictions).Inc(1)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create cache: %v", err)
	}
	c.cache = cache

	return c, nil
}

func (c *CachingProvider) AESEncrypt(ctx context.Context, mode Mode, key, iv, plaintext []byte) ([]byte, error) {
	cacheKey := createCacheKey("aes-encrypt", []byte(mode.String()), key, iv, plaintext)
	result, err := c.getOrCompute(ctx, "aes-encrypt", cacheKey, func() (*cachedResult, error) {
		out, err := c.Provider.AESEncrypt(ctx, mode, key, iv, plaintext)
		return &cachedResult{value: out}, err
	})
	if err != nil {
		return nil, err
	}
	return bytes.Clone(result.value), nil
}

func (c *CachingProvider) AESDecrypt(ctx context.Context, mode Mode, key, iv, ciphertext []byte) ([]byte, error) {
	cacheKey := createCacheKey("aes-decrypt", []byte(mode.String()), key, iv, ciphertext)
	result, err := c.getOrCompute(ctx, "aes-decrypt", cacheKey, func() (*cachedResult, error) {
		out, err := c.Provider.AESDecrypt(ctx, mode, key, iv, ciphertext)
		return &cachedResult{value: out}, err
	})
	if err != nil {
		return nil, err
	}
	return bytes.Clone(result.value), nil
}

func (c *CachingProvider) RSAOAEPDecrypt(ctx context.Context, pkcs8, ciphertext []byte) ([]byte, error) {
	cacheKey := createCacheKey("rsa-oaep-decrypt", pkcs8, ciphertext)
	result, err := c.getOrCompute(ctx, "rsa-oaep-decrypt", cacheKey, func() (*cachedResult, error) {
		out, err := c.Provider.RSAOAEPDecrypt(ctx, pkcs8, ciphertext)
		return &cachedResult{value: out}, err
	})
	if err != nil {
		return nil, err
	}
	return bytes.Clone(result.value), nil
}

func (c *CachingProvider) RSAPSSVerify(ctx context.Context, spki []byte, saltLen int, message, signature []byte) (bool, error) {
	salt := make([]byte, 8)
	binary.BigEndian.PutUint64(salt, uint64(saltLen))

	cacheKey := createCacheKey("rsa-pss-verify", spki, salt, message, signature)
	result, err := c.getOrCompute(ctx, "rsa-pss-verify", cacheKey, func() (*cachedResult, error) {
		ok, err := c.Provider.RSAPSSVerify(ctx, spki, saltLen, message, signature)
		return &cachedResult{valid: ok}, err
	})
	if err != nil {
		return false, err
	}
	return result.valid, nil
}

// getOrCompute returns a valid cached result or computes, caches and
// returns a new one. Failures are never cached.
func (c *CachingProvider) getOrCompute(ctx context.Context, operation, cacheKey string, compute func() (*cachedResult, error)) (*cachedResult, error) {
	handler := c.metricsHandler.WithAttributes(attribute.String(metrics.AttrOperation, operation))

	// Try to get from cache first
	c.mutex.RLock()
	cachedValue, found := c.cache.Get(cacheKey)
	c.mutex.RUnlock()

	if found {
		result := cachedValue.(*cachedResult)

		c.mutex.Lock()
		valid := c.isResultValid(result)
		if valid {
			result.usageCount++
		}
		c.mutex.Unlock()

		if valid {
			handler.Counter(metrics.CacheHits).Inc(1)
			return result, nil
		}

		// Remove expired result
		c.mutex.Lock()
		c.cache.Remove(cacheKey)
		c.mutex.Unlock()
	}

	handler.Counter(metrics.CacheMisses).Inc(1)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result, err := compute()
	if err != nil {
		return nil, err
	}

	result.createdAt = time.Now()
	result.usageCount = 1

	c.mutex.Lock()
	c.cache.Add(cacheKey, result)
	c.mutex.Unlock()

	return result, nil
}

// isResultValid checks if the result is still valid based on age and usage count
func (c *CachingProvider) isResultValid(result *cachedResult) bool {
	if c.maxAge > 0 && time.Since(result.createdAt) > c.maxAge {
		return false
	}

	if result.usageCount >= c.maxUsage {
		return false
	}

	return true
}

// createCacheKey hashes the operation name and length-prefixed inputs
func createCacheKey(operation string, parts ...[]byte) string {
	h := sha256.New()
	h.Write([]byte(operation))

	var length [8]byte
	for _, part := range parts {
		binary.BigEndian.PutUint64(length[:], uint64(len(part)))
		h.Write(length[:])
		h.Write(part)
	}

	return fmt.Sprintf("%x", h.Sum(nil))
}
