package controller

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"devtoolbox/cryptotool/codec"
	"devtoolbox/cryptotool/crypto"
	"devtoolbox/cryptotool/engine"
	"devtoolbox/cryptotool/keys"
	"devtoolbox/cryptotool/metrics"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Converter is the engine surface the controller drives.
type Converter interface {
	Convert(ctx context.Context, req *engine.Request) *engine.Result
	GenerateKey(ctx context.Context, bits int) (*keys.Material, error)
	GenerateNonce(ctx context.Context, mode crypto.Mode) ([]byte, error)
	GenerateKeyPair(ctx context.Context, bits int, role keys.Role) (*keys.KeyPair, error)
}

// Options configures a Controller.
type Options struct {
	Pair      Pair
	Algorithm engine.Algorithm
	Mode      crypto.Mode
	KeySize   int
	Debounce  time.Duration
	// OnChange receives a snapshot whenever output or the visible error changes.
	OnChange       func(Snapshot)
	Logger         *zap.Logger
	MetricsHandler *metrics.MetricsHandler
}

// Controller runs debounced conversions over an input buffer and tracks
// which side of an operation pair is active. Each scheduled run carries a
// generation number; a result is applied only while its generation is
// still current.
type Controller struct {
	converter      Converter
	debounce       time.Duration
	onChange       func(Snapshot)
	logger         *zap.Logger
	metricsHandler *metrics.MetricsHandler

	mu         sync.Mutex
	pair       Pair
	operation  engine.Operation
	algorithm  engine.Algorithm
	mode       crypto.Mode
	keySize    int
	secretKey  *keys.Material
	publicKey  *keys.Material
	privateKey *keys.Material
	iv         []byte
	signature  []byte
	input      string
	output     string
	err        *engine.Error
	generation uint64
	applied    uint64
	timer      *time.Timer
	cancelRun  context.CancelFunc
	closed     bool
}

func New(converter Converter, options Options) *Controller {
	if options.Logger == nil {
		options.Logger = zap.NewNop()
	}
	if options.MetricsHandler == nil {
		options.MetricsHandler = metrics.NopHandler()
	}
	if options.KeySize == 0 {
		options.KeySize = defaultKeySize(options.Algorithm)
	}

	first, _ := options.Pair.Operations()

	return &Controller{
		converter:      converter,
		debounce:       options.Debounce,
		onChange:       options.OnChange,
		logger:         options.Logger,
		metricsHandler: options.MetricsHandler,
		pair:           options.Pair,
		operation:      first,
		algorithm:      options.Algorithm,
		mode:           options.Mode,
		keySize:        options.KeySize,
	}
}

func defaultKeySize(algorithm engine.Algorithm) int {
	if algorithm == engine.RSA {
		return 2048
	}
	return 256
}

// SetInput replaces the input buffer and schedules a conversion.
func (c *Controller) SetInput(input string) {
	c.mutate(func() {
		c.input = input
	})
}

// SetKey installs key material into the slot matching its kind.
func (c *Controller) SetKey(key *keys.Material) {
	c.mutate(func() {
		c.installKey(key)
	})
}

func (c *Controller) SetIV(iv []byte) {
	c.mutate(func() {
		c.iv = iv
	})
}

func (c *Controller) SetMode(mode crypto.Mode) {
	c.mutate(func() {
		c.mode = mode
	})
}

// SetAlgorithm switches between AES and RSA. Installed keys are kept.
func (c *Controller) SetAlgorithm(algorithm engine.Algorithm) {
	c.mutate(func() {
		c.algorithm = algorithm
	})
}

// SetKeySize sets the size used by GenerateKey. It does not touch the
// installed keys.
func (c *Controller) SetKeySize(bits int) {
	c.mu.Lock()
	c.keySize = bits
	c.mu.Unlock()
}

// SetSignature sets the signature checked on the verify side.
func (c *Controller) SetSignature(signature []byte) {
	c.mutate(func() {
		c.signature = signature
	})
}

// Swap flips the active side of the pair. For encrypt/decrypt the input
// and output buffers are exchanged. For sign/verify the produced signature
// moves into the signature slot and the message stays as input.
func (c *Controller) Swap() {
	c.apply(func() {
		switch c.pair {
		case SignVerify:
			if c.operation == engine.Sign {
				signature, err := codec.DecodeBase64(c.output, codec.Standard)
				if err == nil && len(signature) > 0 {
					c.signature = signature
				}
			}
			c.output = ""
		default:
			c.input, c.output = c.output, c.input
		}
		c.operation = c.pair.Other(c.operation)
	}, false)
}

// Enter switches to another operation pair with cleared buffers.
func (c *Controller) Enter(pair Pair) {
	c.reset(func() {
		c.pair = pair
		c.operation, _ = pair.Operations()
	})
}

// Clear empties the input, output and signature buffers.
func (c *Controller) Clear() {
	c.reset(func() {})
}

// GenerateKey generates a key for the current algorithm and installs it.
// For RSA both halves of the pair are installed.
func (c *Controller) GenerateKey(ctx context.Context) error {
	c.mu.Lock()
	algorithm, bits, role := c.algorithm, c.keySize, c.role()
	c.mu.Unlock()

	switch algorithm {
	case engine.AES:
		key, err := c.converter.GenerateKey(ctx, bits)
		if err != nil {
			return err
		}
		c.SetKey(key)
	case engine.RSA:
		pair, err := c.converter.GenerateKeyPair(ctx, bits, role)
		if err != nil {
			return err
		}
		c.mutate(func() {
			c.installKey(pair.Public)
			c.installKey(pair.Private)
		})
	default:
		return fmt.Errorf("unknown algorithm %s", algorithm)
	}
	return nil
}

// GenerateNonce generates an IV for the current mode and installs it.
func (c *Controller) GenerateNonce(ctx context.Context) error {
	c.mu.Lock()
	mode := c.mode
	c.mu.Unlock()

	iv, err := c.converter.GenerateNonce(ctx, mode)
	if err != nil {
		return err
	}
	c.SetIV(iv)
	return nil
}

// Pending reports whether a scheduled or running conversion has not been
// applied yet.
func (c *Controller) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed && c.applied != c.generation
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Close cancels any pending or running conversion. Later results are
// discarded.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	c.generation++
	c.stopLocked()
}

func (c *Controller) role() keys.Role {
	if c.pair == SignVerify {
		return keys.SignVerify
	}
	return keys.EncryptDecrypt
}

func (c *Controller) installKey(key *keys.Material) {
	if key == nil {
		return
	}
	switch key.Kind {
	case keys.Secret:
		c.secretKey = key
	case keys.Public:
		c.publicKey = key
	case keys.Private:
		c.privateKey = key
	}
}

// mutate applies change, clears output and schedules a new run. A missing
// key, IV or signature is reported right away without waiting for the
// debounce window.
func (c *Controller) mutate(change func()) {
	c.apply(change, true)
}

func (c *Controller) apply(change func(), clearOutput bool) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}

	change()
	if clearOutput {
		c.output = ""
	}
	c.err = c.precheckLocked()
	c.scheduleLocked()
	snapshot := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(snapshot)
}

func (c *Controller) reset(change func()) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}

	change()
	c.input = ""
	c.output = ""
	c.signature = nil
	c.err = nil
	c.generation++
	c.applied = c.generation
	c.stopLocked()
	snapshot := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(snapshot)
}

func (c *Controller) scheduleLocked() {
	c.generation++
	c.stopLocked()

	generation := c.generation
	c.timer = time.AfterFunc(c.debounce, func() {
		c.run(generation)
	})
}

func (c *Controller) stopLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	if c.cancelRun != nil {
		c.cancelRun()
		c.cancelRun = nil
	}
}

// precheckLocked returns the missing-input failure for the current state,
// if any. Empty input never reports an error.
func (c *Controller) precheckLocked() *engine.Error {
	if blank(c.input) {
		return nil
	}

	switch c.algorithm {
	case engine.AES:
		if c.secretKey == nil {
			return &engine.Error{Kind: engine.MissingKey}
		}
		if len(c.iv) == 0 {
			return &engine.Error{Kind: engine.MissingIV}
		}
	case engine.RSA:
		switch c.operation {
		case engine.Encrypt, engine.Verify:
			if c.publicKey == nil {
				return &engine.Error{Kind: engine.MissingKey}
			}
		case engine.Decrypt, engine.Sign:
			if c.privateKey == nil {
				return &engine.Error{Kind: engine.MissingKey}
			}
		}
		if c.operation == engine.Verify && len(c.signature) == 0 {
			return &engine.Error{Kind: engine.SignatureRequired}
		}
	}
	return nil
}

func (c *Controller) run(generation uint64) {
	c.mu.Lock()
	if generation != c.generation {
		c.mu.Unlock()
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.cancelRun = cancel

	input := c.input
	operation := c.operation
	req := &engine.Request{
		Operation: operation,
		Algorithm: c.algorithm,
		Mode:      c.mode,
		IV:        c.iv,
		Signature: c.signature,
		Key:       c.keyForLocked(operation),
	}
	c.mu.Unlock()
	defer cancel()

	handler := c.metricsHandler.WithAttributes(attribute.String(metrics.AttrOperation, operation.String()))
	handler.Counter(metrics.ControllerRuns).Inc(1)

	var (
		output string
		failed *engine.Error
	)
	if !blank(input) {
		output, failed = c.convert(ctx, req, input)
	}

	c.mu.Lock()
	if generation != c.generation {
		c.mu.Unlock()
		handler.Counter(metrics.ControllerDiscarded).Inc(1)
		c.logger.Debug("discarded stale result", zap.Uint64("generation", generation))
		return
	}

	c.cancelRun = nil
	c.applied = generation
	c.output = output
	c.err = nil
	if c.errorVisibleLocked(failed) {
		c.err = failed
	}
	snapshot := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(snapshot)
}

// convert decodes input at the boundary, runs the engine and encodes the
// result for display.
func (c *Controller) convert(ctx context.Context, req *engine.Request, input string) (string, *engine.Error) {
	switch req.Operation {
	case engine.Decrypt:
		payload, err := codec.DecodeBase64(input, codec.Standard)
		if err != nil {
			return "", engine.AsError(err)
		}
		req.Payload = payload
	default:
		req.Payload = []byte(input)
	}

	result := c.converter.Convert(ctx, req)
	if result.Failed() {
		if errors.Is(ctx.Err(), context.Canceled) {
			return "", nil
		}
		return "", result.Err
	}

	switch {
	case result.Outcome == engine.Verified && result.Valid:
		return VerifyValid, nil
	case result.Outcome == engine.Verified:
		return VerifyInvalid, nil
	case req.Operation == engine.Decrypt:
		return string(result.Data), nil
	default:
		return codec.EncodeBase64(result.Data, codec.Standard), nil
	}
}

// errorVisibleLocked reports whether a failed run is shown. Runs only
// reach this point for the current generation, so the input has been quiet
// for a full debounce window; only blank input stays silent.
func (c *Controller) errorVisibleLocked(failed *engine.Error) bool {
	return failed != nil && !blank(c.input)
}

// blank reports whether input holds nothing but whitespace.
func blank(input string) bool {
	return strings.TrimSpace(input) == ""
}

func (c *Controller) keyForLocked(operation engine.Operation) *keys.Material {
	if c.algorithm == engine.AES {
		return c.secretKey
	}
	switch operation {
	case engine.Encrypt, engine.Verify:
		return c.publicKey
	default:
		return c.privateKey
	}
}

func (c *Controller) snapshotLocked() Snapshot {
	signature := ""
	if len(c.signature) > 0 {
		signature = codec.EncodeBase64(c.signature, codec.Standard)
	}

	return Snapshot{
		Pair:       c.pair,
		Operation:  c.operation,
		Algorithm:  c.algorithm,
		Mode:       c.mode,
		KeySize:    c.keySize,
		Input:      c.input,
		Output:     c.output,
		Signature:  signature,
		Err:        c.err,
		Generation: c.generation,
	}
}

func (c *Controller) notify(snapshot Snapshot) {
	if c.onChange != nil {
		c.onChange(snapshot)
	}
}
