package mockfhe

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/fhecounter/fhevm_sdk_go/pkg/sdk"
)

// HandleLen is the length of a mock handle: "0x" plus 64 hex digits.
const HandleLen = 66

// ErrInvalidHandle is returned when a handle cannot be decoded.
var ErrInvalidHandle = errors.New("mockfhe: invalid handle")

// EncodeHandle renders v as a 32-byte big-endian hex handle.
func EncodeHandle(w sdk.Width, v uint64) (string, error) {
	if !w.Valid() {
		return "", fmt.Errorf("mockfhe: unsupported width %d", w)
	}
	if v > w.Max() {
		return "", fmt.Errorf("mockfhe: value %d overflows %s", v, w)
	}
	return fmt.Sprintf("0x%064x", v), nil
}

// DecodeHandle recovers the plaintext from a mock handle.
func DecodeHandle(handle string) (uint64, error) {
	if len(handle) != HandleLen {
		return 0, fmt.Errorf("%w: length %d, want %d", ErrInvalidHandle, len(handle), HandleLen)
	}
	if !strings.HasPrefix(handle, "0x") && !strings.HasPrefix(handle, "0X") {
		return 0, fmt.Errorf("%w: missing 0x prefix", ErrInvalidHandle)
	}
	n, ok := new(big.Int).SetString(handle[2:], 16)
	if !ok {
		return 0, fmt.Errorf("%w: not hex", ErrInvalidHandle)
	}
	if !n.IsUint64() {
		return 0, fmt.Errorf("%w: value exceeds 64 bits", ErrInvalidHandle)
	}
	return n.Uint64(), nil
}
