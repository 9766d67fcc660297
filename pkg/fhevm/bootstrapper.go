package fhevm

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/fhecounter/fhevm_sdk_go/internal/logging"
	"github.com/fhecounter/fhevm_sdk_go/pkg/mockfhe"
	"github.com/fhecounter/fhevm_sdk_go/pkg/provider"
	"github.com/fhecounter/fhevm_sdk_go/pkg/pubkey"
	"github.com/fhecounter/fhevm_sdk_go/pkg/sdk"
)

// Bootstrapper runs at most one bootstrap at a time. Starting a new one
// cancels the previous attempt with ErrSuperseded.
type Bootstrapper struct {
	mode       Mode
	mockChains provider.MockChains
	cache      *pubkey.Cache
	log        *logging.Logger
	realLoader *sdk.Loader
	mockLoader *sdk.Loader

	real *Creator
	mock *Creator

	mu      sync.Mutex
	cancel  context.CancelCauseFunc
	attempt string
	last    Mode
}

// Option configures a Bootstrapper.
type Option func(*Bootstrapper)

// WithMode sets the strategy selection mode (default auto).
func WithMode(m Mode) Option {
	return func(b *Bootstrapper) { b.mode = m }
}

// WithMockChains replaces the chain ids served by the mock.
func WithMockChains(chains provider.MockChains) Option {
	return func(b *Bootstrapper) { b.mockChains = chains }
}

// WithCache shares a public key cache between both strategies.
func WithCache(c *pubkey.Cache) Option {
	return func(b *Bootstrapper) { b.cache = c }
}

// WithLogger routes bootstrap diagnostics to l.
func WithLogger(l *logging.Logger) Option {
	return func(b *Bootstrapper) {
		if l != nil {
			b.log = l
		}
	}
}

// WithRealLoader sets the loader used by the real SDK strategy.
func WithRealLoader(l *sdk.Loader) Option {
	return func(b *Bootstrapper) { b.realLoader = l }
}

// WithMockLoader sets the loader used by the mock strategy.
func WithMockLoader(l *sdk.Loader) Option {
	return func(b *Bootstrapper) { b.mockLoader = l }
}

// NewBootstrapper builds a bootstrapper. Without loaders it loads the real
// SDK from sdk.DefaultSources and the mock from mockfhe with default delays,
// each into its own environment.
func NewBootstrapper(opts ...Option) *Bootstrapper {
	b := &Bootstrapper{
		mode:       ModeAuto,
		mockChains: provider.DefaultMockChains(),
		log:        logging.Discard(),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.cache == nil {
		b.cache = pubkey.NewMemory()
	}
	if b.realLoader == nil {
		b.realLoader = sdk.NewLoader(sdk.NewEnvironment(), nil, sdk.WithLogger(b.log.Named("sdk")))
	}
	if b.mockLoader == nil {
		m := mockfhe.New(mockfhe.WithLogger(b.log.Named("mock")))
		b.mockLoader = sdk.NewLoader(sdk.NewEnvironment(), []sdk.Source{m.Source()}, sdk.WithLogger(b.log.Named("sdk")))
	}
	b.real = NewCreator(b.realLoader, b.cache, b.log.Named("relayer"))
	b.mock = NewCreator(b.mockLoader, b.cache, b.log.Named("mock"))
	return b
}

// Cache returns the shared public key cache.
func (b *Bootstrapper) Cache() *pubkey.Cache { return b.cache }

// Mode reports the strategy chosen by the most recent attempt, or "" before
// the first one.
func (b *Bootstrapper) Mode() Mode {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.last
}

// Bootstrap cancels any in-flight attempt, selects a strategy and creates an
// instance with it.
func (b *Bootstrapper) Bootstrap(ctx context.Context, cfg Config) (sdk.Instance, error) {
	attemptCtx, cancel := context.WithCancelCause(ctx)
	id := uuid.NewString()

	b.mu.Lock()
	if b.cancel != nil {
		b.cancel(ErrSuperseded)
	}
	b.cancel = cancel
	b.attempt = id
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		if b.attempt == id {
			b.cancel = nil
			b.attempt = ""
		}
		b.mu.Unlock()
		cancel(nil)
	}()

	log := b.log.Named(id[:8])
	strategy, cfg, err := b.SelectStrategy(attemptCtx, cfg)
	if err != nil {
		log.Warn("strategy selection failed: %v", err)
		return nil, err
	}
	if ms, ok := strategy.(MockStrategy); ok {
		log.Info("using mock strategy: %s", ms.Reason)
	} else {
		log.Info("using real SDK strategy")
	}

	b.mu.Lock()
	if b.attempt == id {
		b.last = strategy.Mode()
	}
	b.mu.Unlock()

	inst, err := strategy.Creator().CreateInstance(attemptCtx, cfg)
	if err != nil {
		log.Warn("bootstrap failed: %v", err)
		return nil, err
	}
	return inst, nil
}

// Cancel aborts the in-flight attempt, if any.
func (b *Bootstrapper) Cancel() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cancel != nil {
		b.cancel(context.Canceled)
	}
}
