package relayer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/tuneinsight/lattigo/v6/core/rlwe"

	"github.com/fhecounter/fhevm_sdk_go/internal/httpx"
	"github.com/fhecounter/fhevm_sdk_go/internal/logging"
	"github.com/fhecounter/fhevm_sdk_go/pkg/sdk"
)

const (
	// DriverName is the manifest "driver" value served by this package.
	DriverName = "relayer"
	// DefaultPublicParamsBits is the CRS size cached alongside the key.
	DefaultPublicParamsBits = 2048
)

// Options is the driver-specific "options" object of a manifest.
type Options struct {
	RelayerURL string      `json:"relayerUrl,omitempty"`
	Params     *ParamsSpec `json:"params,omitempty"`
}

func init() {
	sdk.Register(DriverName, sdk.DriverFunc(func(ctx context.Context, m *sdk.Manifest) (*sdk.Module, error) {
		return NewModule(m, logging.FromEnv("relayer"))
	}))
}

type module struct {
	relayerURL string
	spec       ParamsSpec
	log        *logging.Logger

	mu     sync.Mutex
	scheme *Scheme
}

// NewModule builds an SDK module from a manifest naming this driver.
func NewModule(m *sdk.Manifest, log *logging.Logger) (*sdk.Module, error) {
	if m == nil {
		return nil, errors.New("relayer: nil manifest")
	}
	var opts Options
	if len(m.Options) > 0 {
		if err := json.Unmarshal(m.Options, &opts); err != nil {
			return nil, fmt.Errorf("relayer: decode manifest options: %w", err)
		}
	}
	mod := &module{relayerURL: strings.TrimSpace(opts.RelayerURL), spec: DefaultParams(), log: log}
	if mod.relayerURL == "" {
		mod.relayerURL = strings.TrimSpace(m.SepoliaConfig.RelayerURL)
	}
	if mod.relayerURL == "" {
		return nil, errors.New("relayer: manifest names no relayer URL")
	}
	if opts.Params != nil && !opts.Params.IsZero() {
		mod.spec = *opts.Params
	}
	if mod.log == nil {
		mod.log = logging.Discard()
	}

	cfg := m.SepoliaConfig
	if cfg.RelayerURL == "" {
		cfg.RelayerURL = mod.relayerURL
	}
	return &sdk.Module{
		Name:           m.Name,
		Version:        m.Version,
		SepoliaConfig:  &cfg,
		Initialized:    m.Initialized,
		InitSDK:        mod.initSDK,
		CreateInstance: mod.createInstance,
	}, nil
}

// initSDK builds the BGV parameters. It is the expensive step the loader's
// caller waits on before creating instances.
func (m *module) initSDK(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.scheme != nil {
		return true, nil
	}
	s, err := NewScheme(m.spec)
	if err != nil {
		return false, err
	}
	m.scheme = s
	m.log.Info("BGV parameters ready (logN=%d, t=%d)", m.spec.LogN, m.spec.PlaintextModulus)
	return true, nil
}

func (m *module) currentScheme() (*Scheme, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.scheme == nil {
		return nil, errors.New("relayer: initSDK has not completed")
	}
	return m.scheme, nil
}

func (m *module) createInstance(ctx context.Context, cfg sdk.InstanceConfig) (sdk.Instance, error) {
	scheme, err := m.currentScheme()
	if err != nil {
		return nil, err
	}
	relayerURL := strings.TrimSpace(cfg.RelayerURL)
	if relayerURL == "" {
		relayerURL = m.relayerURL
	}
	client, err := NewClient(relayerURL, httpx.WithLogger(m.log))
	if err != nil {
		return nil, err
	}

	publicKey, pk, publicParams := m.cachedKeys(scheme, cfg)
	if pk == nil {
		keys, err := client.KeyURL(ctx)
		if err != nil {
			return nil, fmt.Errorf("relayer: fetch key material: %w", err)
		}
		if !keys.Params.IsZero() && !sameParams(keys.Params, scheme.Spec()) {
			return nil, fmt.Errorf("relayer: relayer parameters %+v differ from module parameters %+v", keys.Params, scheme.Spec())
		}
		publicKey = keys.FhePublicKey.Data
		if pk, err = DecodePublicKey(publicKey); err != nil {
			return nil, err
		}
		for size, data := range keys.CRS {
			bits, err := strconv.Atoi(size)
			if err != nil {
				m.log.Warn("ignoring CRS with size %q", size)
				continue
			}
			publicParams[bits] = data.Data
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	network := cfg.NetworkConfig
	network.RelayerURL = relayerURL
	return &Instance{
		chainID:      cfg.ChainID,
		network:      network,
		scheme:       scheme,
		pk:           pk,
		publicKey:    publicKey,
		publicParams: publicParams,
		client:       client,
		log:          m.log,
	}, nil
}

// cachedKeys returns the cached key material when it decodes to a key for
// scheme. Anything else is a cache miss and leaves pk nil.
func (m *module) cachedKeys(scheme *Scheme, cfg sdk.InstanceConfig) (string, *rlwe.PublicKey, map[int]string) {
	publicParams := map[int]string{}
	if cfg.PublicKey == "" || cfg.PublicParams == "" {
		return "", nil, publicParams
	}
	pk, err := DecodePublicKey(cfg.PublicKey)
	if err == nil {
		err = scheme.CheckPublicKey(pk)
	}
	if err != nil {
		m.log.Warn("ignoring unusable cached key material: %v", err)
		return "", nil, publicParams
	}
	bits := cfg.PublicParamsBits
	if bits <= 0 {
		bits = DefaultPublicParamsBits
	}
	m.log.Debug("using cached key material (public params %d bits)", bits)
	publicParams[bits] = cfg.PublicParams
	return cfg.PublicKey, pk, publicParams
}

func sameParams(a, b ParamsSpec) bool {
	return a.LogN == b.LogN && a.PlaintextModulus == b.PlaintextModulus &&
		slices.Equal(a.LogQ, b.LogQ) && slices.Equal(a.LogP, b.LogP)
}
