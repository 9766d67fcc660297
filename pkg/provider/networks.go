package provider

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

const (
	// SepoliaChainID identifies the public Sepolia test network.
	SepoliaChainID uint64 = 11155111
	// HardhatChainID identifies a local Hardhat development node.
	HardhatChainID uint64 = 31337
)

// Network describes a well-known chain.
type Network struct {
	ChainID uint64
	Name    string
	RPCURL  string
}

// KnownNetworks lists the networks the demo client knows about.
var KnownNetworks = map[uint64]Network{
	SepoliaChainID: {ChainID: SepoliaChainID, Name: "Sepolia Testnet", RPCURL: "https://ethereum-sepolia-rpc.publicnode.com"},
	HardhatChainID: {ChainID: HardhatChainID, Name: "Local Hardhat", RPCURL: "http://localhost:8545"},
}

// LookupNetwork returns the well-known network for id.
func LookupNetwork(id uint64) (Network, bool) {
	n, ok := KnownNetworks[id]
	return n, ok
}

// MockChains maps chain ids that should be served by the mock encryption
// backend to their RPC URLs.
type MockChains map[uint64]string

// DefaultMockChains returns a fresh copy of the default mock chain table.
func DefaultMockChains() MockChains {
	return MockChains{HardhatChainID: KnownNetworks[HardhatChainID].RPCURL}
}

// Contains reports whether id is a mock chain.
func (m MockChains) Contains(id uint64) bool {
	_, ok := m[id]
	return ok
}

// Merge returns m with extra layered on top.
func (m MockChains) Merge(extra MockChains) MockChains {
	out := make(MockChains, len(m)+len(extra))
	for k, v := range m {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

// String renders the table in the same form ParseMockChains accepts.
func (m MockChains) String() string {
	ids := make([]uint64, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, fmt.Sprintf("%d=%s", id, m[id]))
	}
	return strings.Join(parts, ",")
}

// ParseMockChains parses "31337=http://localhost:8545,1337=..." entries. The
// URL part is optional.
func ParseMockChains(raw string) (MockChains, error) {
	out := MockChains{}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		idPart, url, _ := strings.Cut(part, "=")
		id, err := strconv.ParseUint(strings.TrimSpace(idPart), 10, 64)
		if err != nil || id == 0 {
			return nil, fmt.Errorf("provider: invalid mock chain id %q", idPart)
		}
		out[id] = strings.TrimSpace(url)
	}
	return out, nil
}
