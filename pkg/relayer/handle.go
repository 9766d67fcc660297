package relayer

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/fhecounter/fhevm_sdk_go/pkg/sdk"
)

// ErrInvalidHandle is returned by ParseHandle.
var ErrInvalidHandle = errors.New("relayer: invalid handle")

// ComputeHandle derives the 32-byte handle of the index-th ciphertext of an
// input: keccak256(ciphertext || chainID) with byte 30 replaced by the index
// and byte 31 by the FHE type code.
func ComputeHandle(ciphertext []byte, chainID uint64, index int, w sdk.Width) (common.Hash, error) {
	if index < 0 || index > 255 {
		return common.Hash{}, fmt.Errorf("relayer: handle index %d out of range", index)
	}
	if !w.Valid() {
		return common.Hash{}, fmt.Errorf("relayer: unsupported width %d", w)
	}
	var chain [8]byte
	binary.BigEndian.PutUint64(chain[:], chainID)
	h := common.BytesToHash(crypto.Keccak256(ciphertext, chain[:]))
	h[30] = byte(index)
	h[31] = w.Code()
	return h, nil
}

// ParseHandle returns the index and width encoded in a handle.
func ParseHandle(handle string) (index int, w sdk.Width, err error) {
	raw, err := hexutil.Decode(handle)
	if err != nil || len(raw) != common.HashLength {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidHandle, handle)
	}
	w, ok := sdk.WidthFromCode(raw[31])
	if !ok {
		return 0, 0, fmt.Errorf("%w: unknown type code %d", ErrInvalidHandle, raw[31])
	}
	return int(raw[30]), w, nil
}
