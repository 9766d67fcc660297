// Package mockfhe is a stand-in for the encryption SDK. Handles carry the
// plaintext, so it is only suitable for local chains and demos.
package mockfhe

import (
	"context"
	"time"

	"github.com/fhecounter/fhevm_sdk_go/internal/httpx"
	"github.com/fhecounter/fhevm_sdk_go/internal/logging"
	"github.com/fhecounter/fhevm_sdk_go/pkg/sdk"
)

const (
	// SourceName identifies the mock in loader diagnostics.
	SourceName = "mockfhe"

	DefaultLoadDelay = time.Second
	DefaultInitDelay = 500 * time.Millisecond
)

// DefaultNetwork is the contract registry the mock module reports.
func DefaultNetwork() sdk.NetworkConfig {
	return sdk.DefaultSepoliaConfig()
}

// Mock builds mock SDK modules.
type Mock struct {
	loadDelay time.Duration
	initDelay time.Duration
	network   sdk.NetworkConfig
	log       *logging.Logger
}

// Option configures a Mock.
type Option func(*Mock)

// WithLoadDelay sets how long the mock source takes to "download".
func WithLoadDelay(d time.Duration) Option {
	return func(m *Mock) { m.loadDelay = d }
}

// WithInitDelay sets how long InitSDK takes.
func WithInitDelay(d time.Duration) Option {
	return func(m *Mock) { m.initDelay = d }
}

// WithNetwork overrides the reported network configuration.
func WithNetwork(cfg sdk.NetworkConfig) Option {
	return func(m *Mock) { m.network = cfg }
}

// WithLogger routes mock diagnostics to l.
func WithLogger(l *logging.Logger) Option {
	return func(m *Mock) {
		if l != nil {
			m.log = l
		}
	}
}

// New returns a Mock with the default delays.
func New(opts ...Option) *Mock {
	m := &Mock{
		loadDelay: DefaultLoadDelay,
		initDelay: DefaultInitDelay,
		network:   DefaultNetwork(),
		log:       logging.Discard(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Module builds a fresh module. Each call returns an uninitialised module.
func (m *Mock) Module() *sdk.Module {
	initialized := false
	cfg := m.network
	return &sdk.Module{
		Name:          SourceName,
		Version:       "mock",
		SepoliaConfig: &cfg,
		Initialized:   &initialized,
		InitSDK: func(ctx context.Context) (bool, error) {
			if err := httpx.Sleep(ctx, m.initDelay); err != nil {
				return false, err
			}
			m.log.Debug("mock SDK initialised")
			return true, nil
		},
		CreateInstance: func(ctx context.Context, cfg sdk.InstanceConfig) (sdk.Instance, error) {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			inst := NewInstance(cfg.ChainID, m.log)
			m.log.Info("mock FHEVM instance created for chain %d", inst.ChainID())
			return inst, nil
		},
	}
}

// Source exposes a module to the loader after the configured load delay.
func (m *Mock) Source() sdk.Source {
	return sdk.NewStaticSource(SourceName, m.Module(), m.loadDelay)
}
