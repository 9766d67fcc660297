package fhevm_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fhecounter/fhevm_sdk_go/pkg/fhevm"
	"github.com/fhecounter/fhevm_sdk_go/pkg/mockfhe"
	"github.com/fhecounter/fhevm_sdk_go/pkg/provider"
	"github.com/fhecounter/fhevm_sdk_go/pkg/pubkey"
	pubkeymock "github.com/fhecounter/fhevm_sdk_go/pkg/pubkey/mock"
	"github.com/fhecounter/fhevm_sdk_go/pkg/sdk"
)

type statusLog struct {
	mu  sync.Mutex
	got []fhevm.Status
}

func (l *statusLog) record(s fhevm.Status) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.got = append(l.got, s)
}

func (l *statusLog) list() []fhevm.Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]fhevm.Status(nil), l.got...)
}

func chainRequester(id string) provider.Provider {
	return provider.FromRequester(provider.RequesterFunc(func(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
		if method != "eth_chainId" {
			return nil, errors.New("unsupported method " + method)
		}
		return json.RawMessage(`"` + id + `"`), nil
	}))
}

func mockLoader(opts ...mockfhe.Option) *sdk.Loader {
	opts = append([]mockfhe.Option{mockfhe.WithLoadDelay(0), mockfhe.WithInitDelay(0)}, opts...)
	return sdk.NewLoader(sdk.NewEnvironment(), []sdk.Source{mockfhe.New(opts...).Source()})
}

func aclAddress() string {
	return sdk.DefaultSepoliaConfig().ACLContractAddress.Hex()
}

func TestMockBootstrapOnHardhat(t *testing.T) {
	cache := pubkey.NewMemory()
	creator := fhevm.NewCreator(mockLoader(), cache, nil)
	ctx := context.Background()

	km, err := cache.Get(ctx, aclAddress())
	if err != nil || !km.IsZero() {
		t.Fatalf("expected empty cache, got %+v %v", km, err)
	}

	var statuses statusLog
	inst, err := creator.CreateInstance(ctx, fhevm.Config{
		Provider:       chainRequester("0x7a69"),
		OnStatusChange: statuses.record,
	})
	if err != nil {
		t.Fatalf("CreateInstance: %v", err)
	}
	if got := statuses.list(); !reflect.DeepEqual(got, fhevm.Statuses()) {
		t.Fatalf("statuses = %v, want %v", got, fhevm.Statuses())
	}
	if inst.ChainID() != provider.HardhatChainID || !inst.IsMock() {
		t.Fatalf("unexpected instance chain=%d mock=%t", inst.ChainID(), inst.IsMock())
	}

	h, err := inst.Encrypt32(ctx, 7)
	if err != nil {
		t.Fatalf("Encrypt32: %v", err)
	}
	v, err := inst.Decrypt(ctx, h)
	if err != nil || v != 7 {
		t.Fatalf("Decrypt = %d, %v", v, err)
	}

	km, err = cache.Get(ctx, aclAddress())
	if err != nil {
		t.Fatalf("Get after bootstrap: %v", err)
	}
	if km.PublicKey == "" || km.PublicParams == "" {
		t.Fatalf("expected cached key material, got %+v", km)
	}
}

func TestSecondAttemptSkipsLoadAndInit(t *testing.T) {
	var inits atomic.Int32
	network := sdk.DefaultSepoliaConfig()
	initialized := false
	module := &sdk.Module{
		Name:          "counting",
		SepoliaConfig: &network,
		Initialized:   &initialized,
		InitSDK: func(ctx context.Context) (bool, error) {
			inits.Add(1)
			return true, nil
		},
		CreateInstance: func(ctx context.Context, cfg sdk.InstanceConfig) (sdk.Instance, error) {
			return mockfhe.NewInstance(cfg.ChainID, nil), nil
		},
	}
	loader := sdk.NewLoader(sdk.NewEnvironment(), []sdk.Source{sdk.NewStaticSource("counting", module, 0)})
	creator := fhevm.NewCreator(loader, nil, nil)
	ctx := context.Background()

	if _, err := creator.CreateInstance(ctx, fhevm.Config{ChainID: 31337}); err != nil {
		t.Fatalf("first CreateInstance: %v", err)
	}
	var statuses statusLog
	if _, err := creator.CreateInstance(ctx, fhevm.Config{ChainID: 31337, OnStatusChange: statuses.record}); err != nil {
		t.Fatalf("second CreateInstance: %v", err)
	}
	if got := statuses.list(); !reflect.DeepEqual(got, []fhevm.Status{fhevm.StatusCreating}) {
		t.Fatalf("second attempt statuses = %v", got)
	}
	if n := inits.Load(); n != 1 {
		t.Fatalf("initSDK ran %d times", n)
	}
}

func TestCachedKeyMaterialIsPassedToSDK(t *testing.T) {
	cache := pubkey.NewMemory()
	if err := cache.Set(context.Background(), aclAddress(), "cached-pk", "cached-pp"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	network := sdk.DefaultSepoliaConfig()
	var seen sdk.InstanceConfig
	module := &sdk.Module{
		SepoliaConfig: &network,
		InitSDK:       func(ctx context.Context) (bool, error) { return true, nil },
		CreateInstance: func(ctx context.Context, cfg sdk.InstanceConfig) (sdk.Instance, error) {
			seen = cfg
			return mockfhe.NewInstance(cfg.ChainID, nil), nil
		},
	}
	loader := sdk.NewLoader(sdk.NewEnvironment(), []sdk.Source{sdk.NewStaticSource("static", module, 0)})

	if _, err := fhevm.NewCreator(loader, cache, nil).CreateInstance(context.Background(), fhevm.Config{ChainID: 11155111}); err != nil {
		t.Fatalf("CreateInstance: %v", err)
	}
	if seen.PublicKey != "cached-pk" || seen.PublicParams != "cached-pp" {
		t.Fatalf("SDK saw key material %q/%q", seen.PublicKey, seen.PublicParams)
	}
	if seen.PublicParamsBits != fhevm.DefaultPublicParamsBits {
		t.Fatalf("PublicParamsBits = %d, want %d", seen.PublicParamsBits, fhevm.DefaultPublicParamsBits)
	}
	if seen.ChainID != 11155111 || seen.ACLContractAddress != network.ACLContractAddress {
		t.Fatalf("unexpected network config %+v", seen.NetworkConfig)
	}
}

func TestCacheFailuresAreSwallowed(t *testing.T) {
	cache, store := pubkeymock.NewCache()
	store.FailReads(errors.New("disk on fire"))
	store.FailWrites(errors.New("disk on fire"))

	inst, err := fhevm.NewCreator(mockLoader(), cache, nil).CreateInstance(context.Background(), fhevm.Config{ChainID: 31337})
	if err != nil {
		t.Fatalf("cache failures must not fail the bootstrap: %v", err)
	}
	if inst == nil {
		t.Fatalf("expected an instance")
	}
	if gets, puts := store.Calls(); gets != 1 || puts != 1 {
		t.Fatalf("calls = %d gets, %d puts", gets, puts)
	}
}

func TestCancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var statuses statusLog
	inst, err := fhevm.NewCreator(mockLoader(), nil, nil).CreateInstance(ctx, fhevm.Config{ChainID: 31337, OnStatusChange: statuses.record})
	if inst != nil {
		t.Fatalf("aborted bootstrap returned an instance")
	}
	if !errors.Is(err, fhevm.ErrAborted) || fhevm.KindOf(err) != fhevm.KindAbort {
		t.Fatalf("expected abort, got %v", err)
	}
	if len(statuses.list()) != 0 {
		t.Fatalf("aborted bootstrap emitted %v", statuses.list())
	}
}

func TestCancelDuringInit(t *testing.T) {
	loader := mockLoader(mockfhe.WithInitDelay(5 * time.Second))
	creator := fhevm.NewCreator(loader, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	initStarted := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		_, err := creator.CreateInstance(ctx, fhevm.Config{ChainID: 31337, OnStatusChange: func(s fhevm.Status) {
			if s == fhevm.StatusSDKInitializing {
				close(initStarted)
			}
		}})
		done <- err
	}()

	<-initStarted
	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, fhevm.ErrAborted) || !errors.Is(err, context.Canceled) {
			t.Fatalf("expected abort caused by context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("bootstrap did not observe cancellation")
	}
	if loader.Environment().Initialized() {
		t.Fatalf("an aborted init must not mark the environment initialised")
	}
}

func TestErrorKinds(t *testing.T) {
	unavailable := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	}))
	defer unavailable.Close()
	malformed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"name":"relayer-sdk","SepoliaConfig":"nope"}`))
	}))
	defer malformed.Close()

	network := sdk.DefaultSepoliaConfig()
	staticLoader := func(m *sdk.Module) *sdk.Loader {
		if m.SepoliaConfig == nil {
			m.SepoliaConfig = &network
		}
		if m.InitSDK == nil {
			m.InitSDK = func(ctx context.Context) (bool, error) { return true, nil }
		}
		if m.CreateInstance == nil {
			m.CreateInstance = func(ctx context.Context, cfg sdk.InstanceConfig) (sdk.Instance, error) {
				return mockfhe.NewInstance(cfg.ChainID, nil), nil
			}
		}
		return sdk.NewLoader(sdk.NewEnvironment(), []sdk.Source{sdk.NewStaticSource("static", m, 0)})
	}
	rejected := errors.New("relayer said no")

	cases := []struct {
		name   string
		loader *sdk.Loader
		cfg    fhevm.Config
		kind   fhevm.Kind
		target error
	}{
		{
			name:   "no environment",
			loader: sdk.NewLoader(nil, []sdk.Source{}),
			cfg:    fhevm.Config{ChainID: 31337},
			kind:   fhevm.KindEnvironment,
			target: sdk.ErrEnvironment,
		},
		{
			name:   "sources unavailable",
			loader: sdk.NewLoader(sdk.NewEnvironment(), sdk.HTTPSources([]string{unavailable.URL + "/a.json", unavailable.URL + "/b.json"})),
			cfg:    fhevm.Config{ChainID: 31337},
			kind:   fhevm.KindSDKLoad,
		},
		{
			name:   "malformed manifest",
			loader: sdk.NewLoader(sdk.NewEnvironment(), sdk.HTTPSources([]string{malformed.URL})),
			cfg:    fhevm.Config{ChainID: 31337},
			kind:   fhevm.KindSDKShape,
		},
		{
			name: "init returns false",
			loader: staticLoader(&sdk.Module{InitSDK: func(ctx context.Context) (bool, error) {
				return false, nil
			}}),
			cfg:    fhevm.Config{ChainID: 31337},
			kind:   fhevm.KindSDKInit,
			target: sdk.ErrInitFailed,
		},
		{
			name:   "no provider",
			loader: staticLoader(&sdk.Module{}),
			cfg:    fhevm.Config{},
			kind:   fhevm.KindConfiguration,
			target: provider.ErrInvalidProvider,
		},
		{
			name: "provider error",
			loader: staticLoader(&sdk.Module{}),
			cfg: fhevm.Config{Provider: provider.FromRequester(provider.RequesterFunc(func(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
				return nil, errors.New("wallet locked")
			}))},
			kind:   fhevm.KindConfiguration,
			target: provider.ErrInvalidProvider,
		},
		{
			name: "construction rejected",
			loader: staticLoader(&sdk.Module{CreateInstance: func(ctx context.Context, cfg sdk.InstanceConfig) (sdk.Instance, error) {
				return nil, rejected
			}}),
			cfg:    fhevm.Config{ChainID: 31337},
			kind:   fhevm.KindInstanceCreate,
			target: rejected,
		},
		{
			name: "nil instance",
			loader: staticLoader(&sdk.Module{CreateInstance: func(ctx context.Context, cfg sdk.InstanceConfig) (sdk.Instance, error) {
				return nil, nil
			}}),
			cfg:  fhevm.Config{ChainID: 31337},
			kind: fhevm.KindInstanceCreate,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			inst, err := fhevm.NewCreator(tc.loader, nil, nil).CreateInstance(context.Background(), tc.cfg)
			if inst != nil {
				t.Fatalf("failed bootstrap returned an instance")
			}
			var fe *fhevm.Error
			if !errors.As(err, &fe) {
				t.Fatalf("expected *fhevm.Error, got %T %v", err, err)
			}
			if fe.Kind != tc.kind {
				t.Fatalf("kind = %s, want %s (%v)", fe.Kind, tc.kind, err)
			}
			if tc.target != nil && !errors.Is(err, tc.target) {
				t.Fatalf("expected %v in chain, got %v", tc.target, err)
			}
			if errors.Is(err, fhevm.ErrAborted) {
				t.Fatalf("non-cancellation failure reported as abort: %v", err)
			}
		})
	}
}

func TestLoadErrorListsSources(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	urls := []string{srv.URL + "/one.json", srv.URL + "/two.json"}
	loader := sdk.NewLoader(sdk.NewEnvironment(), sdk.HTTPSources(urls))
	_, err := fhevm.NewCreator(loader, nil, nil).CreateInstance(context.Background(), fhevm.Config{ChainID: 31337})

	var le *sdk.LoadError
	if !errors.As(err, &le) {
		t.Fatalf("expected *sdk.LoadError, got %v", err)
	}
	if !reflect.DeepEqual(le.Sources(), urls) {
		t.Fatalf("sources = %v, want %v", le.Sources(), urls)
	}
}
