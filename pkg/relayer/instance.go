package relayer

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/tuneinsight/lattigo/v6/core/rlwe"

	"github.com/fhecounter/fhevm_sdk_go/internal/logging"
	"github.com/fhecounter/fhevm_sdk_go/pkg/sdk"
)

// ErrNoPublicParams is returned when the relayer served no CRS of the
// requested size.
var ErrNoPublicParams = errors.New("relayer: public params not available")

// Instance encrypts locally under the relayer's public key and delegates
// proofs and decryption to the relayer.
type Instance struct {
	chainID      uint64
	network      sdk.NetworkConfig
	scheme       *Scheme
	pk           *rlwe.PublicKey
	publicKey    string
	publicParams map[int]string
	client       *Client
	log          *logging.Logger
}

var (
	_ sdk.Instance = (*Instance)(nil)
	_ sdk.Sealer   = (*Instance)(nil)
)

func (i *Instance) ChainID() uint64 { return i.chainID }
func (i *Instance) IsMock() bool    { return false }

// Network returns the contract registry the instance was created with.
func (i *Instance) Network() sdk.NetworkConfig { return i.network }

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

func (i *Instance) CreateEncryptedInput(contract, user common.Address) *sdk.Input {
	return sdk.NewInput(i, contract, user)
}

// Seal encrypts every value and asks the relayer for handles and a proof.
func (i *Instance) Seal(ctx context.Context, contract, user common.Address, values []sdk.TypedValue) (*sdk.InputProof, error) {
	req := InputProofRequest{
		ContractAddress: contract,
		UserAddress:     user,
		ChainID:         i.chainID,
		Ciphertexts:     make([]Ciphertext, 0, len(values)),
	}
	for _, v := range values {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ct, err := i.scheme.Encrypt(i.pk, v.Width, v.Value)
		if err != nil {
			return nil, err
		}
		req.Ciphertexts = append(req.Ciphertexts, Ciphertext{Type: v.Width.Code(), Data: base64.StdEncoding.EncodeToString(ct)})
	}
	resp, err := i.client.InputProof(ctx, req)
	if err != nil {
		return nil, err
	}
	i.log.Debug("input proof for %s: %d handles", contract.Hex(), len(resp.Handles))
	return &sdk.InputProof{Handles: resp.Handles, InputProof: resp.InputProof}, nil
}

func (i *Instance) Decrypt(ctx context.Context, handle string) (uint64, error) {
	if _, _, err := ParseHandle(handle); err != nil {
		return 0, err
	}
	values, err := i.client.PublicDecrypt(ctx, []string{handle})
	if err != nil {
		return 0, err
	}
	for h, v := range values {
		if strings.EqualFold(h, handle) {
			return v, nil
		}
	}
	return 0, fmt.Errorf("relayer: no value returned for %s", handle)
}

func (i *Instance) PublicKey() (string, error) {
	return i.publicKey, nil
}

func (i *Instance) PublicParams(bits int) (string, error) {
	pp, ok := i.publicParams[bits]
	if !ok || pp == "" {
		return "", fmt.Errorf("%w: %d bits", ErrNoPublicParams, bits)
	}
	return pp, nil
}
