package fhevm

import (
	"fmt"
	"os"
	"strings"

	"github.com/fhecounter/fhevm_sdk_go/internal/logging"
	"github.com/fhecounter/fhevm_sdk_go/pkg/provider"
	"github.com/fhecounter/fhevm_sdk_go/pkg/pubkey"
	"github.com/fhecounter/fhevm_sdk_go/pkg/sdk"

	// Registers the "relayer" driver named by the default SDK manifests.
	_ "github.com/fhecounter/fhevm_sdk_go/pkg/relayer"
)

const (
	envMode       = "FHEVM_RUNTIME_MODE"
	envSDKURLs    = "FHEVM_SDK_URLS"
	envMockChains = "FHEVM_MOCK_CHAINS"
)

// NewFromEnv builds a Bootstrapper from environment variables:
//
//	FHEVM_RUNTIME_MODE   auto (default), relayer or mock
//	FHEVM_SDK_URLS       comma separated manifest URLs, each optionally
//	                     pinned with a #sha3-256-<hex> suffix; unset means
//	                     sdk.DefaultSourceURLs, which no CDN publishes yet
//	FHEVM_MOCK_CHAINS    extra mock chains, "1337=http://localhost:8545,..."
//	FHEVM_KEYCACHE_*     public key cache, see pubkey.NewFromEnv
//	FHEVM_LOG_LEVEL      logrus level
func NewFromEnv() (*Bootstrapper, error) {
	mode, err := ParseMode(os.Getenv(envMode))
	if err != nil {
		return nil, err
	}

	chains := provider.DefaultMockChains()
	if raw := strings.TrimSpace(os.Getenv(envMockChains)); raw != "" {
		extra, err := provider.ParseMockChains(raw)
		if err != nil {
			return nil, fmt.Errorf("fhevm: %s: %w", envMockChains, err)
		}
		chains = chains.Merge(extra)
	}

	cache, cacheMode, err := pubkey.NewFromEnv()
	if err != nil {
		return nil, fmt.Errorf("fhevm: key cache: %w", err)
	}

	log := logging.FromEnv("fhevm")
	var sources []sdk.Source
	if raw := strings.TrimSpace(os.Getenv(envSDKURLs)); raw != "" {
		var urls []string
		for _, u := range strings.Split(raw, ",") {
			if u = strings.TrimSpace(u); u != "" {
				urls = append(urls, u)
			}
		}
		sources = sdk.HTTPSources(urls)
	}
	realLoader := sdk.NewLoader(sdk.NewEnvironment(), sources, sdk.WithLogger(log.Named("sdk")))

	log.Debug("runtime mode=%s key cache=%s mock chains=%s sources=%v", mode, cacheMode, chains, realLoader.Sources())
	return NewBootstrapper(
		WithMode(mode),
		WithMockChains(chains),
		WithCache(cache),
		WithLogger(log),
		WithRealLoader(realLoader),
	), nil
}
