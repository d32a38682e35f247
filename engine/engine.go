package engine

import (
	"context"
	"fmt"
	"time"

	"devtoolbox/cryptotool/crypto"
	"devtoolbox/cryptotool/keys"
	"devtoolbox/cryptotool/metrics"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Engine validates and executes transform requests against a Provider.
type Engine struct {
	provider       crypto.Provider
	keys           *keys.Manager
	metricsHandler *metrics.MetricsHandler
	logger         *zap.Logger
}

func NewEngine(
	provider crypto.Provider,
	keyManager *keys.Manager,
	metricsHandler *metrics.MetricsHandler,
	logger *zap.Logger,
) *Engine {
	if metricsHandler == nil {
		metricsHandler = metrics.NopHandler()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if keyManager == nil {
		keyManager = keys.NewManager(provider, logger)
	}

	return &Engine{
		provider:       provider,
		keys:           keyManager,
		metricsHandler: metricsHandler,
		logger:         logger,
	}
}

// Convert runs req and never returns a nil Result. Every failure is
// reported through Result.Err.
func (e *Engine) Convert(ctx context.Context, req *Request) *Result {
	handler := e.metricsHandler.WithAttributes(
		attribute.String(metrics.AttrOperation, req.Operation.String()),
		attribute.String(metrics.AttrAlgorithm, req.Algorithm.String()),
	)
	handler.Counter(metrics.ConvertRequests).Inc(1)

	start := time.Now()
	result := e.convert(ctx, req)
	handler.Timer(metrics.ConvertLatency).Record(time.Since(start))

	if result.Failed() {
		handler.WithAttributes(attribute.String(metrics.AttrErrorKind, result.Err.Kind.String())).
			Counter(metrics.ConvertErrors).Inc(1)

		e.logger.Debug("convert failed",
			zap.String("operation", req.Operation.String()),
			zap.String("algorithm", req.Algorithm.String()),
			zap.Stringer("kind", result.Err.Kind),
		)
		return result
	}

	handler.Counter(metrics.ConvertSuccess).Inc(1)
	return result
}

func (e *Engine) convert(ctx context.Context, req *Request) *Result {
	switch req.Algorithm {
	case AES:
		if err := validateAES(req); err != nil {
			return failureResult(err)
		}
		return e.executeAES(ctx, req)
	case RSA:
		limit, err := validateRSA(req)
		if err != nil {
			return failureResult(err)
		}
		return e.executeRSA(ctx, req, limit)
	default:
		return failureResult(newError(UnsupportedOperation, fmt.Errorf("unknown algorithm %s", req.Algorithm)))
	}
}

func validateAES(req *Request) *Error {
	switch req.Operation {
	case Encrypt, Decrypt:
	default:
		return newError(UnsupportedOperation, fmt.Errorf("%s is not defined for AES", req.Operation))
	}

	if req.Key == nil || len(req.Key.Bytes) == 0 {
		return newError(MissingKey, nil)
	}
	if req.Key.Kind != keys.Secret {
		return newError(MissingKey, fmt.Errorf("AES requires a secret key, got %s", req.Key.Kind))
	}
	switch len(req.Key.Bytes) {
	case 16, 24, 32:
	default:
		return newError(InvalidKeyFormat, fmt.Errorf("AES key must be 16, 24 or 32 bytes, got %d", len(req.Key.Bytes)))
	}

	nonceSize := req.Mode.NonceSize()
	if nonceSize == 0 {
		return newError(UnsupportedOperation, fmt.Errorf("%w: %s", crypto.ErrUnsupportedMode, req.Mode))
	}
	if len(req.IV) == 0 {
		return newError(MissingIV, nil)
	}
	if len(req.IV) != nonceSize {
		return newError(IvLengthMismatch, fmt.Errorf("%s requires a %d byte IV, got %d", req.Mode.Algorithm(), nonceSize, len(req.IV)))
	}

	return nil
}

// validateRSA checks key kind and inputs. For encryption it returns the
// OAEP plaintext limit for the key.
func validateRSA(req *Request) (int, *Error) {
	var want keys.Kind
	switch req.Operation {
	case Encrypt, Verify:
		want = keys.Public
	case Decrypt, Sign:
		want = keys.Private
	default:
		return 0, newError(UnsupportedOperation, fmt.Errorf("unknown operation %s", req.Operation))
	}

	if req.Key == nil || len(req.Key.Bytes) == 0 {
		return 0, newError(MissingKey, nil)
	}
	if req.Key.Family != keys.Asymmetric || req.Key.Kind != want {
		return 0, newError(MissingKey, fmt.Errorf("%s requires a %s key, got %s", req.Operation, want, req.Key.Kind))
	}

	switch req.Operation {
	case Encrypt:
		publicKey, err := crypto.ParsePublicKey(req.Key.Bytes)
		if err != nil {
			return 0, newError(InvalidKeyFormat, err)
		}
		limit := crypto.MaxOAEPPlaintext(publicKey.Size())
		if len(req.Payload) > limit {
			return limit, &Error{Kind: PlaintextTooLong, Limit: limit}
		}
		return limit, nil
	case Verify:
		if len(req.Signature) == 0 {
			return 0, newError(SignatureRequired, nil)
		}
	}

	return 0, nil
}

func (e *Engine) executeAES(ctx context.Context, req *Request) *Result {
	var (
		out []byte
		err error
	)

	switch req.Operation {
	case Encrypt:
		out, err = e.provider.AESEncrypt(ctx, req.Mode, req.Key.Bytes, req.IV, req.Payload)
	case Decrypt:
		out, err = e.provider.AESDecrypt(ctx, req.Mode, req.Key.Bytes, req.IV, req.Payload)
	}
	if err != nil {
		return failureResult(AsError(err))
	}

	return successResult(out)
}

func (e *Engine) executeRSA(ctx context.Context, req *Request, limit int) *Result {
	switch req.Operation {
	case Encrypt:
		out, err := e.provider.RSAOAEPEncrypt(ctx, req.Key.Bytes, req.Payload)
		if err != nil {
			failure := AsError(err)
			if failure.Kind == PlaintextTooLong {
				failure.Limit = limit
			}
			return failureResult(failure)
		}
		return successResult(out)

	case Decrypt:
		out, err := e.provider.RSAOAEPDecrypt(ctx, req.Key.Bytes, req.Payload)
		if err != nil {
			return failureResult(AsError(err))
		}
		return successResult(out)

	case Sign:
		out, err := e.provider.RSAPSSSign(ctx, req.Key.Bytes, PSSSaltLength, req.Payload)
		if err != nil {
			return failureResult(AsError(err))
		}
		return successResult(out)

	case Verify:
		valid, err := e.provider.RSAPSSVerify(ctx, req.Key.Bytes, PSSSaltLength, req.Payload, req.Signature)
		if err != nil {
			return failureResult(AsError(err))
		}
		return verifiedResult(valid)

	default:
		return failureResult(newError(UnsupportedOperation, fmt.Errorf("unknown operation %s", req.Operation)))
	}
}

// GenerateKey generates an AES key of the given size.
func (e *Engine) GenerateKey(ctx context.Context, bits int) (*keys.Material, error) {
	var key *keys.Material
	err := e.recordKeygen("symmetric-key", func() error {
		var err error
		key, err = e.keys.GenerateSymmetricKey(ctx, bits)
		return err
	})
	return key, err
}

// GenerateNonce generates a nonce of the length mode requires.
func (e *Engine) GenerateNonce(ctx context.Context, mode crypto.Mode) ([]byte, error) {
	var nonce []byte
	err := e.recordKeygen("nonce", func() error {
		var err error
		nonce, err = e.keys.GenerateNonce(ctx, mode)
		return err
	})
	return nonce, err
}

// GenerateKeyPair generates an RSA key pair of the given modulus size.
func (e *Engine) GenerateKeyPair(ctx context.Context, bits int, role keys.Role) (*keys.KeyPair, error) {
	var pair *keys.KeyPair
	err := e.recordKeygen("key-pair", func() error {
		var err error
		pair, err = e.keys.GenerateKeyPair(ctx, bits, role)
		return err
	})
	return pair, err
}

// Keys returns the key manager used by the generation entry points.
func (e *Engine) Keys() *keys.Manager {
	return e.keys
}

func (e *Engine) recordKeygen(kind string, generate func() error) error {
	handler := e.metricsHandler.WithAttributes(attribute.String(metrics.AttrOperation, kind))
	handler.Counter(metrics.KeygenRequests).Inc(1)

	start := time.Now()
	err := generate()
	handler.Timer(metrics.KeygenLatency).Record(time.Since(start))

	if err != nil {
		handler.Counter(metrics.KeygenErrors).Inc(1)
		e.logger.Debug("key generation failed", zap.String("kind", kind), zap.Error(err))
	}
	return err
}
