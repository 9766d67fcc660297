// Package provider abstracts the two ways a caller can point the SDK at a
// chain: an RPC endpoint URL, or a wallet-style object answering
// EIP-1193 requests.
package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
)

// ErrInvalidProvider is wrapped by every chain resolution failure.
var ErrInvalidProvider = errors.New("provider: invalid provider")

// Requester is the EIP-1193 request capability exposed by browser wallets and
// their Go stand-ins.
type Requester interface {
	Request(ctx context.Context, method string, params ...any) (json.RawMessage, error)
}

// RequesterFunc adapts a function to Requester.
type RequesterFunc func(ctx context.Context, method string, params ...any) (json.RawMessage, error)

func (f RequesterFunc) Request(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	return f(ctx, method, params...)
}

// Provider is either an endpoint URL or a Requester. The zero value is
// invalid.
type Provider struct {
	url       string
	requester Requester
}

// FromURL returns a provider backed by a JSON-RPC endpoint.
func FromURL(rawURL string) Provider {
	return Provider{url: strings.TrimSpace(rawURL)}
}

// FromRequester returns a provider backed by a wallet-style requester.
func FromRequester(r Requester) Provider {
	return Provider{requester: r}
}

// URL returns the endpoint URL, empty for requester providers.
func (p Provider) URL() string { return p.url }

// Requester returns the wrapped requester, nil for URL providers.
func (p Provider) Requester() Requester { return p.requester }

// IsZero reports whether p carries neither a URL nor a requester.
func (p Provider) IsZero() bool { return p.url == "" && p.requester == nil }

func (p Provider) String() string {
	switch {
	case p.requester != nil:
		return "requester"
	case p.url != "":
		return p.url
	default:
		return "<none>"
	}
}

// Call performs a raw JSON-RPC call through whichever transport p wraps.
func (p Provider) Call(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	switch {
	case p.requester != nil:
		return p.requester.Request(ctx, method, params...)
	case p.url != "":
		client, err := rpc.DialContext(ctx, p.url)
		if err != nil {
			return nil, fmt.Errorf("%w: dial %s: %v", ErrInvalidProvider, p.url, err)
		}
		defer client.Close()
		var raw json.RawMessage
		if err := client.CallContext(ctx, &raw, method, params...); err != nil {
			return nil, err
		}
		return raw, nil
	default:
		return nil, fmt.Errorf("%w: neither URL nor requester set", ErrInvalidProvider)
	}
}

// ChainID queries eth_chainId. Hex quantities and plain JSON numbers are both
// accepted; zero is rejected.
func (p Provider) ChainID(ctx context.Context) (uint64, error) {
	raw, err := p.Call(ctx, "eth_chainId")
	if err != nil {
		if errors.Is(err, ErrInvalidProvider) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return 0, err
		}
		return 0, fmt.Errorf("%w: eth_chainId via %s: %v", ErrInvalidProvider, p, err)
	}
	id, err := parseQuantity(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: eth_chainId returned %s: %v", ErrInvalidProvider, string(raw), err)
	}
	if id == 0 {
		return 0, fmt.Errorf("%w: eth_chainId returned zero", ErrInvalidProvider)
	}
	return id, nil
}

func parseQuantity(raw json.RawMessage) (uint64, error) {
	var hexQty hexutil.Uint64
	if err := json.Unmarshal(raw, &hexQty); err == nil {
		return uint64(hexQty), nil
	}
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return strconv.ParseUint(strings.TrimSpace(asString), 10, 64)
	}
	var n uint64
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, errors.New("not a quantity")
	}
	return n, nil
}
