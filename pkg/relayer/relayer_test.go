package relayer_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fhecounter/fhevm_sdk_go/internal/sandbox"
	"github.com/fhecounter/fhevm_sdk_go/pkg/relayer"
	"github.com/fhecounter/fhevm_sdk_go/pkg/sdk"
)

var (
	counterContract = common.HexToAddress("0x1111111111111111111111111111111111111111")
	alice           = common.HexToAddress("0x2222222222222222222222222222222222222222")
)

func TestSchemeRoundTrip(t *testing.T) {
	scheme, err := relayer.NewScheme(relayer.DefaultParams())
	if err != nil {
		t.Fatalf("NewScheme: %v", err)
	}
	kp := scheme.GenerateKeyPair()

	cases := []struct {
		w sdk.Width
		v uint64
	}{
		{sdk.Uint8, 0},
		{sdk.Uint8, 255},
		{sdk.Uint16, 65535},
		{sdk.Uint32, 0xdeadbeef},
		{sdk.Uint64, 0xfedcba9876543210},
	}
	for _, tc := range cases {
		ct, err := scheme.Encrypt(kp.PublicKey(), tc.w, tc.v)
		if err != nil {
			t.Fatalf("Encrypt(%s, %d): %v", tc.w, tc.v, err)
		}
		got, err := kp.Decrypt(ct, tc.w)
		if err != nil {
			t.Fatalf("Decrypt(%s): %v", tc.w, err)
		}
		if got != tc.v {
			t.Fatalf("%s round trip: got %d want %d", tc.w, got, tc.v)
		}
	}

	if _, err := scheme.Encrypt(kp.PublicKey(), sdk.Uint8, 256); err == nil {
		t.Fatalf("expected overflow error")
	}
}

func TestNewSchemeRejectsSmallModulus(t *testing.T) {
	spec := relayer.DefaultParams()
	spec.PlaintextModulus = 257
	if _, err := relayer.NewScheme(spec); err == nil {
		t.Fatalf("expected error for plaintext modulus 257")
	}
}

func TestPublicKeyEncoding(t *testing.T) {
	scheme, err := relayer.NewScheme(relayer.DefaultParams())
	if err != nil {
		t.Fatalf("NewScheme: %v", err)
	}
	kp := scheme.GenerateKeyPair()
	encoded, err := relayer.EncodePublicKey(kp.PublicKey())
	if err != nil {
		t.Fatalf("EncodePublicKey: %v", err)
	}
	pk, err := relayer.DecodePublicKey(encoded)
	if err != nil {
		t.Fatalf("DecodePublicKey: %v", err)
	}
	ct, err := scheme.Encrypt(pk, sdk.Uint16, 4242)
	if err != nil {
		t.Fatalf("Encrypt under decoded key: %v", err)
	}
	if v, err := kp.Decrypt(ct, sdk.Uint16); err != nil || v != 4242 {
		t.Fatalf("Decrypt = %d, %v", v, err)
	}
	if _, err := relayer.DecodePublicKey("%%%"); err == nil {
		t.Fatalf("expected error for malformed key")
	}
}

func TestHandleLayout(t *testing.T) {
	h, err := relayer.ComputeHandle([]byte("ciphertext"), 11155111, 3, sdk.Uint32)
	if err != nil {
		t.Fatalf("ComputeHandle: %v", err)
	}
	idx, w, err := relayer.ParseHandle(h.Hex())
	if err != nil {
		t.Fatalf("ParseHandle: %v", err)
	}
	if idx != 3 || w != sdk.Uint32 {
		t.Fatalf("ParseHandle = %d, %s", idx, w)
	}

	other, _ := relayer.ComputeHandle([]byte("ciphertext"), 31337, 3, sdk.Uint32)
	if other == h {
		t.Fatalf("handles should depend on the chain id")
	}

	if _, err := relayer.ComputeHandle(nil, 1, 256, sdk.Uint8); err == nil {
		t.Fatalf("expected index range error")
	}
	for _, bad := range []string{"0x1234", "nothex", common.Hash{}.Hex()} {
		if _, _, err := relayer.ParseHandle(bad); !errors.Is(err, relayer.ErrInvalidHandle) {
			t.Fatalf("ParseHandle(%q) = %v", bad, err)
		}
	}
}

func TestNewModuleRequiresRelayerURL(t *testing.T) {
	m := &sdk.Manifest{Name: "relayer-sdk", Driver: relayer.DriverName, SepoliaConfig: sdk.DefaultSepoliaConfig()}
	if _, err := relayer.NewModule(m, nil); err == nil {
		t.Fatalf("expected error without relayer URL")
	}

	opts, _ := json.Marshal(relayer.Options{RelayerURL: "http://relayer.local"})
	m.Options = opts
	mod, err := relayer.NewModule(m, nil)
	if err != nil {
		t.Fatalf("NewModule: %v", err)
	}
	if err := mod.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if mod.SepoliaConfig.RelayerURL != "http://relayer.local" {
		t.Fatalf("relayer url = %q", mod.SepoliaConfig.RelayerURL)
	}
	if _, err := mod.CreateInstance(context.Background(), sdk.InstanceConfig{NetworkConfig: *mod.SepoliaConfig}); err == nil {
		t.Fatalf("CreateInstance before InitSDK should fail")
	}
}

// keyURLCounter counts GET /v1/keyurl requests reaching the sandbox.
func keyURLCounter(next http.Handler, n *atomic.Int32) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/keyurl" {
			n.Add(1)
		}
		next.ServeHTTP(w, r)
	})
}

func loadRelayerModule(t *testing.T, chainID uint64) (*sdk.Module, *sandbox.Server, *atomic.Int32) {
	t.Helper()
	srv, err := sandbox.New(sandbox.Config{ChainID: chainID})
	if err != nil {
		t.Fatalf("sandbox.New: %v", err)
	}
	var keyFetches atomic.Int32
	ts := httptest.NewServer(keyURLCounter(srv.Handler(), &keyFetches))
	t.Cleanup(ts.Close)

	env := sdk.NewEnvironment()
	loader := sdk.NewLoader(env, sdk.HTTPSources([]string{ts.URL + sandbox.ManifestPath}))
	ctx := context.Background()
	if err := loader.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := env.Init(ctx); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return env.Module(), srv, &keyFetches
}

func TestInstanceEncryptDecryptThroughRelayer(t *testing.T) {
	mod, srv, keyFetches := loadRelayerModule(t, 11155111)
	ctx := context.Background()

	cfg := sdk.InstanceConfig{NetworkConfig: *mod.SepoliaConfig}
	cfg.ChainID = 11155111
	inst, err := mod.CreateInstance(ctx, cfg)
	if err != nil {
		t.Fatalf("CreateInstance: %v", err)
	}
	if inst.IsMock() {
		t.Fatalf("relayer instance reports IsMock")
	}
	if keyFetches.Load() != 1 {
		t.Fatalf("keyurl fetched %d times", keyFetches.Load())
	}
	pk, err := inst.PublicKey()
	if err != nil || pk != srv.PublicKey() {
		t.Fatalf("PublicKey mismatch: %v", err)
	}
	if pp, err := inst.PublicParams(relayer.DefaultPublicParamsBits); err != nil || pp == "" {
		t.Fatalf("PublicParams: %q %v", pp, err)
	}
	if _, err := inst.PublicParams(4096); !errors.Is(err, relayer.ErrNoPublicParams) {
		t.Fatalf("expected ErrNoPublicParams, got %v", err)
	}

	proof, err := inst.CreateEncryptedInput(counterContract, alice).Add32(7).Add8(200).Encrypt(ctx)
	if err != nil {
		t.Fatalf("Encrypt input: %v", err)
	}
	if len(proof.Handles) != 2 {
		t.Fatalf("handles = %v", proof.Handles)
	}
	// count byte, two handles, 32-byte attestation
	if want := 2 + 2*(1+2*32+32); len(proof.InputProof) != want {
		t.Fatalf("input proof length = %d, want %d", len(proof.InputProof), want)
	}
	for i, want := range []uint64{7, 200} {
		got, err := inst.Decrypt(ctx, proof.Handles[i])
		if err != nil {
			t.Fatalf("Decrypt handle %d: %v", i, err)
		}
		if got != want {
			t.Fatalf("handle %d decrypted to %d, want %d", i, got, want)
		}
	}

	h, err := inst.Encrypt64(ctx, 1<<40)
	if err != nil {
		t.Fatalf("Encrypt64: %v", err)
	}
	if v, err := inst.Decrypt(ctx, h); err != nil || v != 1<<40 {
		t.Fatalf("Decrypt64 = %d, %v", v, err)
	}
}

func TestInstanceUsesCachedKeyMaterial(t *testing.T) {
	mod, srv, keyFetches := loadRelayerModule(t, 11155111)

	cfg := sdk.InstanceConfig{NetworkConfig: *mod.SepoliaConfig, PublicKey: srv.PublicKey(), PublicParams: "cached-crs"}
	cfg.ChainID = 11155111
	inst, err := mod.CreateInstance(context.Background(), cfg)
	if err != nil {
		t.Fatalf("CreateInstance: %v", err)
	}
	if keyFetches.Load() != 0 {
		t.Fatalf("cached material should skip keyurl, got %d fetches", keyFetches.Load())
	}
	if pp, _ := inst.PublicParams(relayer.DefaultPublicParamsBits); pp != "cached-crs" {
		t.Fatalf("PublicParams = %q", pp)
	}
	if _, err := inst.Encrypt8(context.Background(), 9); err != nil {
		t.Fatalf("Encrypt8 with cached key: %v", err)
	}
}

func TestInstanceCachedParamsKeepRequestedSize(t *testing.T) {
	mod, srv, _ := loadRelayerModule(t, 11155111)

	cfg := sdk.InstanceConfig{NetworkConfig: *mod.SepoliaConfig, PublicKey: srv.PublicKey(), PublicParams: "cached-crs-4096", PublicParamsBits: 4096}
	cfg.ChainID = 11155111
	inst, err := mod.CreateInstance(context.Background(), cfg)
	if err != nil {
		t.Fatalf("CreateInstance: %v", err)
	}
	if pp, err := inst.PublicParams(4096); err != nil || pp != "cached-crs-4096" {
		t.Fatalf("PublicParams(4096) = %q, %v", pp, err)
	}
	if _, err := inst.PublicParams(relayer.DefaultPublicParamsBits); !errors.Is(err, relayer.ErrNoPublicParams) {
		t.Fatalf("expected ErrNoPublicParams for the default size, got %v", err)
	}
}

func TestInstanceRefetchesUnusableCachedKey(t *testing.T) {
	other, err := relayer.NewScheme(relayer.ParamsSpec{LogN: 12, LogQ: []int{36, 36}, LogP: []int{37}, PlaintextModulus: 65537})
	if err != nil {
		t.Fatalf("NewScheme: %v", err)
	}
	foreign, err := relayer.EncodePublicKey(other.GenerateKeyPair().PublicKey())
	if err != nil {
		t.Fatalf("EncodePublicKey: %v", err)
	}

	cases := map[string]string{
		"not base64":      "0x7e1f3e2d90e3deb2a0c4",
		"truncated":       "AAAA",
		"empty vector":    "AAAAAAAAAAA=",
		"other ring size": foreign,
	}
	for name, cached := range cases {
		t.Run(name, func(t *testing.T) {
			mod, srv, keyFetches := loadRelayerModule(t, 11155111)
			cfg := sdk.InstanceConfig{NetworkConfig: *mod.SepoliaConfig, PublicKey: cached, PublicParams: "stale-crs"}
			cfg.ChainID = 11155111

			inst, err := mod.CreateInstance(context.Background(), cfg)
			if err != nil {
				t.Fatalf("CreateInstance: %v", err)
			}
			if keyFetches.Load() != 1 {
				t.Fatalf("unusable cached key should trigger one keyurl fetch, got %d", keyFetches.Load())
			}
			if pk, _ := inst.PublicKey(); pk != srv.PublicKey() {
				t.Fatalf("instance kept the cached key")
			}
			if pp, _ := inst.PublicParams(relayer.DefaultPublicParamsBits); pp == "stale-crs" || pp == "" {
				t.Fatalf("PublicParams = %q", pp)
			}
			if _, err := inst.Encrypt8(context.Background(), 3); err != nil {
				t.Fatalf("Encrypt8: %v", err)
			}
		})
	}
}

func TestInputProofRejectsWrongChain(t *testing.T) {
	mod, _, _ := loadRelayerModule(t, 31337)

	cfg := sdk.InstanceConfig{NetworkConfig: *mod.SepoliaConfig}
	cfg.ChainID = 1
	inst, err := mod.CreateInstance(context.Background(), cfg)
	if err != nil {
		t.Fatalf("CreateInstance: %v", err)
	}
	if _, err := inst.Encrypt8(context.Background(), 1); err == nil {
		t.Fatalf("expected the relayer to reject chain 1")
	}
}
