package fhevm

import (
	"context"
	"errors"
	"fmt"

	"github.com/fhecounter/fhevm_sdk_go/internal/logging"
	"github.com/fhecounter/fhevm_sdk_go/pkg/provider"
	"github.com/fhecounter/fhevm_sdk_go/pkg/pubkey"
	"github.com/fhecounter/fhevm_sdk_go/pkg/sdk"
)

// DefaultPublicParamsBits is the public parameter size persisted next to
// the public key.
const DefaultPublicParamsBits = 2048

// Config describes one bootstrap.
type Config struct {
	Provider provider.Provider
	// ChainID skips the eth_chainId query when non-zero.
	ChainID uint64
	// OnStatusChange is called synchronously before each step.
	OnStatusChange func(Status)

	// PublicParamsBits selects the public parameters cached with the key.
	// Zero means DefaultPublicParamsBits.
	PublicParamsBits int
}

func (c Config) emit(s Status) {
	if c.OnStatusChange != nil {
		c.OnStatusChange(s)
	}
}

// Creator runs the load, init and create sequence against one loader.
type Creator struct {
	loader *sdk.Loader
	cache  *pubkey.Cache
	log    *logging.Logger
}

// NewCreator returns a creator for the module the loader installs. A nil
// cache selects an in-memory one.
func NewCreator(loader *sdk.Loader, cache *pubkey.Cache, log *logging.Logger) *Creator {
	if cache == nil {
		cache = pubkey.NewMemory()
	}
	if log == nil {
		log = logging.Discard()
	}
	return &Creator{loader: loader, cache: cache, log: log}
}

// Loader returns the loader the creator installs modules with.
func (c *Creator) Loader() *sdk.Loader { return c.loader }

// Cache returns the public key cache.
func (c *Creator) Cache() *pubkey.Cache { return c.cache }

// CreateInstance bootstraps an instance. Cancellation of ctx is checked after
// every blocking step and yields an *Error of kind KindAbort. The key cache
// is best-effort: its failures are logged, never returned.
func (c *Creator) CreateInstance(ctx context.Context, cfg Config) (sdk.Instance, error) {
	if err := checkpoint(ctx, "start"); err != nil {
		return nil, err
	}
	if c.loader == nil {
		return nil, &Error{Kind: KindEnvironment, Op: "sdk.isLoaded", Err: sdk.ErrEnvironment}
	}

	loaded, err := c.loader.IsLoaded()
	if err != nil {
		return nil, &Error{Kind: KindEnvironment, Op: "sdk.isLoaded", Err: err}
	}
	if !loaded {
		cfg.emit(StatusSDKLoading)
		if err := c.loader.Load(ctx); err != nil {
			return nil, loadFailure(ctx, err)
		}
		if err := checkpoint(ctx, "sdk.load"); err != nil {
			return nil, err
		}
		cfg.emit(StatusSDKLoaded)
	}

	env := c.loader.Environment()
	if !env.Initialized() {
		cfg.emit(StatusSDKInitializing)
		if err := env.Init(ctx); err != nil {
			if ctx.Err() != nil {
				return nil, aborted(ctx, "sdk.init")
			}
			return nil, &Error{Kind: KindSDKInit, Op: "sdk.init", Err: err}
		}
		if err := checkpoint(ctx, "sdk.init"); err != nil {
			return nil, err
		}
		cfg.emit(StatusSDKInitialized)
	}
	module := env.Module()

	chainID, err := resolveChainID(ctx, cfg)
	if err != nil {
		return nil, err
	}

	network := *module.SepoliaConfig
	network.ChainID = chainID
	aclAddress := network.ACLContractAddress.Hex()

	keys, err := c.cache.Get(ctx, aclAddress)
	if err != nil {
		c.logCache("get", err)
		keys = pubkey.KeyMaterial{}
	}
	if err := checkpoint(ctx, "cache.get"); err != nil {
		return nil, err
	}

	bits := cfg.PublicParamsBits
	if bits <= 0 {
		bits = DefaultPublicParamsBits
	}

	cfg.emit(StatusCreating)
	inst, err := module.CreateInstance(ctx, sdk.InstanceConfig{
		NetworkConfig:    network,
		Network:          cfg.Provider,
		PublicKey:        keys.PublicKey,
		PublicParams:     keys.PublicParams,
		PublicParamsBits: bits,
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, aborted(ctx, "sdk.createInstance")
		}
		return nil, &Error{Kind: KindInstanceCreate, Op: "sdk.createInstance", Err: err}
	}
	if inst == nil {
		return nil, &Error{Kind: KindInstanceCreate, Op: "sdk.createInstance", Err: errors.New("createInstance returned no instance")}
	}
	if err := checkpoint(ctx, "sdk.createInstance"); err != nil {
		return nil, err
	}

	c.persistKeys(ctx, aclAddress, inst, bits)
	if err := checkpoint(ctx, "cache.set"); err != nil {
		return nil, err
	}
	c.log.Info("instance ready on chain %d (mock=%t)", inst.ChainID(), inst.IsMock())
	return inst, nil
}

func (c *Creator) persistKeys(ctx context.Context, address string, inst sdk.Instance, bits int) {
	publicKey, err := inst.PublicKey()
	if err != nil {
		c.logCache("set", fmt.Errorf("read public key: %w", err))
		return
	}
	publicParams, err := inst.PublicParams(bits)
	if err != nil {
		c.logCache("set", fmt.Errorf("read public params: %w", err))
		return
	}
	if publicKey == "" || publicParams == "" {
		c.log.Debug("instance exposes no key material to cache")
		return
	}
	if err := c.cache.Set(ctx, address, publicKey, publicParams); err != nil {
		c.logCache("set", err)
	}
}

func (c *Creator) logCache(op string, err error) {
	c.log.Warn("ignoring %v", &Error{Kind: KindCache, Op: "cache." + op, Err: err})
}

func resolveChainID(ctx context.Context, cfg Config) (uint64, error) {
	if cfg.ChainID != 0 {
		return cfg.ChainID, nil
	}
	if cfg.Provider.IsZero() {
		return 0, &Error{Kind: KindConfiguration, Op: "chain.resolve", Err: fmt.Errorf("%w: no provider and no chain id", provider.ErrInvalidProvider)}
	}
	id, err := cfg.Provider.ChainID(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return 0, aborted(ctx, "chain.resolve")
		}
		return 0, &Error{Kind: KindConfiguration, Op: "chain.resolve", Err: err}
	}
	if err := checkpoint(ctx, "chain.resolve"); err != nil {
		return 0, err
	}
	return id, nil
}

// loadFailure classifies a Load error. When every source answered with a
// malformed payload the failure is a shape problem rather than a load one.
func loadFailure(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return aborted(ctx, "sdk.load")
	}
	if errors.Is(err, sdk.ErrEnvironment) {
		return &Error{Kind: KindEnvironment, Op: "sdk.load", Err: err}
	}
	var le *sdk.LoadError
	if errors.As(err, &le) && len(le.Attempts) > 0 {
		shapeOnly := true
		for _, a := range le.Attempts {
			var se *sdk.ShapeError
			if !errors.As(a.Err, &se) {
				shapeOnly = false
				break
			}
		}
		if shapeOnly {
			return &Error{Kind: KindSDKShape, Op: "sdk.load", Err: err}
		}
	}
	return &Error{Kind: KindSDKLoad, Op: "sdk.load", Err: err}
}

func checkpoint(ctx context.Context, op string) error {
	if ctx.Err() != nil {
		return aborted(ctx, op)
	}
	return nil
}

func aborted(ctx context.Context, op string) error {
	return &Error{Kind: KindAbort, Op: op, Err: context.Cause(ctx)}
}
