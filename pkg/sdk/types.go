package sdk

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fhecounter/fhevm_sdk_go/pkg/provider"
)

// Width is the bit width of an encrypted unsigned integer.
type Width uint8

const (
	Uint8  Width = 8
	Uint16 Width = 16
	Uint32 Width = 32
	Uint64 Width = 64
)

// Valid reports whether w is one of the supported widths.
func (w Width) Valid() bool {
	switch w {
	case Uint8, Uint16, Uint32, Uint64:
		return true
	}
	return false
}

// Max returns the largest value representable at width w.
func (w Width) Max() uint64 {
	if w >= 64 {
		return ^uint64(0)
	}
	return 1<<uint(w) - 1
}

// Code is the FHEVM type tag of the width (euint8=2 ... euint64=5).
func (w Width) Code() byte {
	switch w {
	case Uint8:
		return 2
	case Uint16:
		return 3
	case Uint32:
		return 4
	case Uint64:
		return 5
	}
	return 0
}

// WidthFromCode is the inverse of Code.
func WidthFromCode(code byte) (Width, bool) {
	switch code {
	case 2:
		return Uint8, true
	case 3:
		return Uint16, true
	case 4:
		return Uint32, true
	case 5:
		return Uint64, true
	}
	return 0, false
}

func (w Width) String() string {
	return fmt.Sprintf("euint%d", uint8(w))
}

// NetworkConfig is the contract registry a bundle ships for its network
// (the SepoliaConfig object of the relayer SDK).
type NetworkConfig struct {
	ChainID              uint64         `json:"chainId"`
	GatewayChainID       uint64         `json:"gatewayChainId,omitempty"`
	ACLContractAddress   common.Address `json:"aclContractAddress"`
	KMSVerifierAddress   common.Address `json:"kmsContractAddress"`
	InputVerifierAddress common.Address `json:"inputVerifierContractAddress"`
	RelayerURL           string         `json:"relayerUrl,omitempty"`
}

// InstanceConfig is the merged configuration handed to a module's
// CreateInstance: network defaults, the caller's provider, the resolved
// chain id and any cached key material.
type InstanceConfig struct {
	NetworkConfig
	Network      provider.Provider
	PublicKey    string
	PublicParams string

	// PublicParamsBits is the size PublicParams was cached for.
	PublicParamsBits int
}

// InputProof is the result of sealing an encrypted input.
type InputProof struct {
	Handles    []string `json:"handles"`
	InputProof string   `json:"inputProof"`
}

// Instance is a ready-to-use encryption context bound to one chain.
type Instance interface {
	ChainID() uint64
	Encrypt8(ctx context.Context, v uint8) (string, error)
	Encrypt16(ctx context.Context, v uint16) (string, error)
	Encrypt32(ctx context.Context, v uint32) (string, error)
	Encrypt64(ctx context.Context, v uint64) (string, error)
	Decrypt(ctx context.Context, handle string) (uint64, error)
	CreateEncryptedInput(contract, user common.Address) *Input
	PublicKey() (string, error)
	PublicParams(bits int) (string, error)
	IsMock() bool
}

// DefaultSepoliaConfig returns the Sepolia contract registry published with
// relayer SDK 0.1.x.
func DefaultSepoliaConfig() NetworkConfig {
	return NetworkConfig{
		ChainID:              provider.SepoliaChainID,
		ACLContractAddress:   common.HexToAddress("0x2Fb4341027eb1d2aD8B5D9708187df8633cAFA92"),
		KMSVerifierAddress:   common.HexToAddress("0x9d6891A6240D6130c54ae243d8005063D05fE14b"),
		InputVerifierAddress: common.HexToAddress("0x33a5B57658F8BBD25806b5983C1FD2d6A2D4Fe18"),
	}
}
