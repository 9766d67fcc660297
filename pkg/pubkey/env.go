package pubkey

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/fhecounter/fhevm_sdk_go/internal/devseed"
)

const (
	envMode = "FHEVM_KEYCACHE_MODE"
	envPath = "FHEVM_KEYCACHE_PATH"
	envURL  = "FHEVM_KEYCACHE_URL"
	envSeed = "FHEVM_KEYCACHE_SEED"

	ModeAuto   = "auto"
	ModeMemory = "memory"
	ModeFile   = "file"
	ModeHTTP   = "http"
)

// NewFromEnv builds a cache from FHEVM_KEYCACHE_* variables and returns the
// resolved mode. In auto mode a URL selects http, a path selects file and
// otherwise memory is used. FHEVM_KEYCACHE_SEED names a devseed file applied
// after construction.
func NewFromEnv() (cache *Cache, mode string, err error) {
	mode = strings.ToLower(strings.TrimSpace(os.Getenv(envMode)))
	path := strings.TrimSpace(os.Getenv(envPath))
	baseURL := strings.TrimSpace(os.Getenv(envURL))

	if mode == "" || mode == ModeAuto {
		switch {
		case baseURL != "":
			mode = ModeHTTP
		case path != "":
			mode = ModeFile
		default:
			mode = ModeMemory
		}
	}

	switch mode {
	case ModeMemory:
		cache = NewMemory()
	case ModeFile:
		if path == "" {
			return nil, "", fmt.Errorf("pubkey: file mode requires %s", envPath)
		}
		b, err := NewFileBackend(path)
		if err != nil {
			return nil, "", err
		}
		cache = New(b)
	case ModeHTTP:
		if baseURL == "" {
			return nil, "", fmt.Errorf("pubkey: http mode requires %s", envURL)
		}
		b, err := NewHTTPBackend(baseURL)
		if err != nil {
			return nil, "", fmt.Errorf("pubkey: init http backend: %w", err)
		}
		cache = New(b)
	default:
		return nil, "", fmt.Errorf("pubkey: unsupported %s value %q", envMode, mode)
	}

	if seedPath := strings.TrimSpace(os.Getenv(envSeed)); seedPath != "" {
		entries, err := devseed.LoadKeySeed(seedPath)
		if err != nil {
			return nil, "", fmt.Errorf("pubkey: load seed: %w", err)
		}
		if err := cache.Seed(context.Background(), entries); err != nil {
			return nil, "", fmt.Errorf("pubkey: apply seed: %w", err)
		}
	}
	return cache, mode, nil
}
