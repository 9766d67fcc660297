package mockfhe

import (
	"context"
	"crypto/rand"
	"fmt"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/fhecounter/fhevm_sdk_go/internal/logging"
	"github.com/fhecounter/fhevm_sdk_go/pkg/sdk"
)

// proofLen is the byte length of a mock input proof (128 hex digits).
const proofLen = 64

// Instance encodes values directly into handles. Nothing is encrypted.
type Instance struct {
	chainID uint64
	network sdk.NetworkConfig
	log     *logging.Logger
}

var (
	_ sdk.Instance = (*Instance)(nil)
	_ sdk.Sealer   = (*Instance)(nil)
)

// NewInstance returns a mock instance bound to chainID.
func NewInstance(chainID uint64, log *logging.Logger) *Instance {
	if chainID == 0 {
		chainID = DefaultNetwork().ChainID
	}
	if log == nil {
		log = logging.Discard()
	}
	net := DefaultNetwork()
	net.ChainID = chainID
	return &Instance{chainID: chainID, network: net, log: log}
}

func (i *Instance) ChainID() uint64 { return i.chainID }
func (i *Instance) IsMock() bool    { return true }

func (i *Instance) Encrypt8(ctx context.Context, v uint8) (string, error) {
	return sdk.EncryptValue(ctx, i, sdk.Uint8, uint64(v))
}

func (i *Instance) Encrypt16(ctx context.Context, v uint16) (string, error) {
	return sdk.EncryptValue(ctx, i, sdk.Uint16, uint64(v))
}

func (i *Instance) Encrypt32(ctx context.Context, v uint32) (string, error) {
	return sdk.EncryptValue(ctx, i, sdk.Uint32, uint64(v))
}

func (i *Instance) Encrypt64(ctx context.Context, v uint64) (string, error) {
	return sdk.EncryptValue(ctx, i, sdk.Uint64, v)
}

func (i *Instance) Decrypt(ctx context.Context, handle string) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	v, err := DecodeHandle(handle)
	if err != nil {
		return 0, err
	}
	i.log.Debug("decrypt(%s) -> %d", handle, v)
	return v, nil
}

func (i *Instance) CreateEncryptedInput(contract, user common.Address) *sdk.Input {
	return sdk.NewInput(i, contract, user)
}

// Seal encodes each value as a handle and attaches a random proof.
func (i *Instance) Seal(ctx context.Context, contract, user common.Address, values []sdk.TypedValue) (*sdk.InputProof, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	handles := make([]string, 0, len(values))
	for _, v := range values {
		h, err := EncodeHandle(v.Width, v.Value)
		if err != nil {
			return nil, err
		}
		handles = append(handles, h)
	}
	proof := make([]byte, proofLen)
	if _, err := rand.Read(proof); err != nil {
		return nil, fmt.Errorf("mockfhe: generate proof: %w", err)
	}
	i.log.Debug("sealed %d values for %s", len(handles), contract.Hex())
	return &sdk.InputProof{Handles: handles, InputProof: hexutil.Encode(proof)}, nil
}

// PublicKey returns a deterministic placeholder derived from the chain id.
func (i *Instance) PublicKey() (string, error) {
	return placeholder("mock-public-key", i.chainID), nil
}

// PublicParams returns a deterministic placeholder for the given CRS size.
func (i *Instance) PublicParams(bits int) (string, error) {
	if bits <= 0 {
		return "", fmt.Errorf("mockfhe: invalid public params size %d", bits)
	}
	return placeholder("mock-public-params-"+strconv.Itoa(bits), i.chainID), nil
}

func placeholder(label string, chainID uint64) string {
	return hexutil.Encode(crypto.Keccak256([]byte(label), []byte(strconv.FormatUint(chainID, 10))))
}
