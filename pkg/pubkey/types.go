package pubkey

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// HashKey is the chainstore hash holding one field per ACL address.
const HashKey = "fhevm:publickeys"

// ErrInvalidAddress is returned for keys that are not 20-byte hex addresses.
var ErrInvalidAddress = errors.New("pubkey: invalid address")

// KeyMaterial is the cached public key and public params for one ACL
// address. Empty strings mean nothing is cached.
type KeyMaterial struct {
	PublicKey    string `json:"publicKey"`
	PublicParams string `json:"publicParams"`
}

// IsZero reports whether no material is present.
func (k KeyMaterial) IsZero() bool {
	return k.PublicKey == "" && k.PublicParams == ""
}

// Record is one persisted cache entry. Timestamp is unix milliseconds.
type Record struct {
	Address      string `json:"address"`
	PublicKey    string `json:"publicKey"`
	PublicParams string `json:"publicParams"`
	Timestamp    int64  `json:"timestamp"`
}

// Material returns the key material held by r.
func (r Record) Material() KeyMaterial {
	return KeyMaterial{PublicKey: r.PublicKey, PublicParams: r.PublicParams}
}

// Backend persists records. Get returns nil, nil when address is absent.
// Addresses passed to a backend are already checksummed.
type Backend interface {
	Get(ctx context.Context, address string) (*Record, error)
	Put(ctx context.Context, rec Record) error
	List(ctx context.Context) ([]Record, error)
	Clear(ctx context.Context) error
}

// CacheError wraps a backend failure.
type CacheError struct {
	Op      string
	Address string
	Err     error
}

func (e *CacheError) Error() string {
	if e.Address == "" {
		return fmt.Sprintf("pubkey: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("pubkey: %s %s: %v", e.Op, e.Address, e.Err)
}

func (e *CacheError) Unwrap() error { return e.Err }

// NormalizeAddress returns the EIP-55 checksummed form of address.
func NormalizeAddress(address string) (string, error) {
	trimmed := strings.TrimSpace(address)
	if !common.IsHexAddress(trimmed) {
		return "", fmt.Errorf("%w: %q", ErrInvalidAddress, address)
	}
	return common.HexToAddress(trimmed).Hex(), nil
}
