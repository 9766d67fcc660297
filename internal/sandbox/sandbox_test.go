package sandbox_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fhecounter/fhevm_sdk_go/internal/devseed"
	"github.com/fhecounter/fhevm_sdk_go/internal/httpx"
	"github.com/fhecounter/fhevm_sdk_go/internal/sandbox"
	"github.com/fhecounter/fhevm_sdk_go/pkg/provider"
	"github.com/fhecounter/fhevm_sdk_go/pkg/pubkey"
	"github.com/fhecounter/fhevm_sdk_go/pkg/relayer"
	"github.com/fhecounter/fhevm_sdk_go/pkg/sdk"
)

func startSandbox(t *testing.T, cfg sandbox.Config) (*sandbox.Server, *httptest.Server) {
	t.Helper()
	srv, err := sandbox.New(cfg)
	if err != nil {
		t.Fatalf("sandbox.New: %v", err)
	}
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts
}

func TestParseFailConfig(t *testing.T) {
	cfg, err := sandbox.ParseFailConfig("rate=0.25,code=503")
	if err != nil {
		t.Fatalf("ParseFailConfig: %v", err)
	}
	if cfg.Rate != 0.25 || cfg.Code != 503 {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg, err := sandbox.ParseFailConfig(""); err != nil || cfg.Rate != 0 {
		t.Fatalf("empty config: %+v %v", cfg, err)
	}
	for _, bad := range []string{"rate=2", "code=42", "rate", "speed=1"} {
		if _, err := sandbox.ParseFailConfig(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestRPCChainID(t *testing.T) {
	_, ts := startSandbox(t, sandbox.Config{ChainID: 31337})

	id, err := provider.FromURL(ts.URL + "/rpc").ChainID(context.Background())
	if err != nil {
		t.Fatalf("ChainID: %v", err)
	}
	if id != 31337 {
		t.Fatalf("chain id = %d", id)
	}

	_, err = provider.FromURL(ts.URL+"/rpc").Call(context.Background(), "eth_blockNumber")
	if err == nil || !strings.Contains(err.Error(), "does not exist") {
		t.Fatalf("expected method-not-found, got %v", err)
	}
}

func TestManifestLoadsThroughRelayerDriver(t *testing.T) {
	_, ts := startSandbox(t, sandbox.Config{ChainID: 11155111})

	resp, err := http.Get(ts.URL + sandbox.ManifestPath)
	if err != nil {
		t.Fatalf("GET manifest: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	m, err := sdk.ParseManifest(body)
	if err != nil {
		t.Fatalf("ParseManifest: %v", err)
	}
	if m.Driver != relayer.DriverName {
		t.Fatalf("driver = %q", m.Driver)
	}
	if m.SepoliaConfig.RelayerURL != ts.URL {
		t.Fatalf("relayer url = %q, want %q", m.SepoliaConfig.RelayerURL, ts.URL)
	}
	if m.Initialized == nil || *m.Initialized {
		t.Fatalf("manifest should advertise an uninitialised module")
	}

	env := sdk.NewEnvironment()
	loader := sdk.NewLoader(env, sdk.HTTPSources([]string{ts.URL + sandbox.ManifestPath}))
	if err := loader.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if env.Module().SepoliaConfig.ACLContractAddress != sdk.DefaultSepoliaConfig().ACLContractAddress {
		t.Fatalf("unexpected ACL address %s", env.Module().SepoliaConfig.ACLContractAddress.Hex())
	}
}

func TestChainstoreServesPublicKeyCache(t *testing.T) {
	ts42 := int64(42)
	seeded := common.HexToAddress("0x2fb4341027eb1d2ad8b5d9708187df8633cafa92").Hex()
	_, ts := startSandbox(t, sandbox.Config{KeySeed: []devseed.KeySeedEntry{
		{Address: strings.ToLower(seeded), PublicKey: "seed-pk", PublicParams: "seed-pp", Timestamp: &ts42},
	}})

	backend, err := pubkey.NewHTTPBackend(ts.URL, httpx.WithRetryPolicy(httpx.NoRetry))
	if err != nil {
		t.Fatalf("NewHTTPBackend: %v", err)
	}
	cache := pubkey.New(backend)
	ctx := context.Background()

	km, err := cache.Get(ctx, seeded)
	if err != nil {
		t.Fatalf("Get seeded: %v", err)
	}
	if km.PublicKey != "seed-pk" || km.PublicParams != "seed-pp" {
		t.Fatalf("unexpected seeded material %+v", km)
	}

	other := common.HexToAddress("0x9d6891a6240d6130c54ae243d8005063d05fe14b").Hex()
	if err := cache.Set(ctx, other, "pk", "pp"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	recs, err := cache.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(recs) != 2 || recs[0].Timestamp != 42 {
		t.Fatalf("unexpected records %+v", recs)
	}
}

func TestFailureInjection(t *testing.T) {
	_, ts := startSandbox(t, sandbox.Config{Fail: sandbox.FailConfig{Rate: 1, Code: http.StatusServiceUnavailable}})

	resp, err := http.Get(ts.URL + "/v1/keyurl")
	if err != nil {
		t.Fatalf("GET keyurl: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Fatalf("missing request id header")
	}
}

func TestPublicDecryptUnknownHandle(t *testing.T) {
	_, ts := startSandbox(t, sandbox.Config{})

	client, err := relayer.NewClient(ts.URL, httpx.WithRetryPolicy(httpx.NoRetry))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	_, err = client.PublicDecrypt(context.Background(), []string{common.Hash{1}.Hex()})
	var httpErr *httpx.HTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %v", err)
	}
}

func TestKeyURLPayload(t *testing.T) {
	srv, ts := startSandbox(t, sandbox.Config{})

	client, err := relayer.NewClient(ts.URL)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	keys, err := client.KeyURL(context.Background())
	if err != nil {
		t.Fatalf("KeyURL: %v", err)
	}
	if keys.FhePublicKey.Data != srv.PublicKey() {
		t.Fatalf("public key mismatch")
	}
	if _, ok := keys.CRS["2048"]; !ok {
		raw, _ := json.Marshal(keys.CRS)
		t.Fatalf("missing 2048-bit CRS: %s", raw)
	}
	if _, err := relayer.DecodePublicKey(keys.FhePublicKey.Data); err != nil {
		t.Fatalf("DecodePublicKey: %v", err)
	}
}
