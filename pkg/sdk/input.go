package sdk

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// ErrEmptyInput is returned when sealing an input with no values.
var ErrEmptyInput = errors.New("sdk: encrypted input has no values")

// TypedValue is one plaintext queued in an Input.
type TypedValue struct {
	Width Width
	Value uint64
}

// Sealer turns queued plaintexts into handles and an input proof. Instances
// implement it.
type Sealer interface {
	Seal(ctx context.Context, contract, user common.Address, values []TypedValue) (*InputProof, error)
}

// Input accumulates values destined for one contract call.
type Input struct {
	contract common.Address
	user     common.Address
	values   []TypedValue
	sealer   Sealer
}

// NewInput returns an empty input sealed by s.
func NewInput(s Sealer, contract, user common.Address) *Input {
	return &Input{contract: contract, user: user, sealer: s}
}

func (in *Input) Add8(v uint8) *Input   { return in.add(Uint8, uint64(v)) }
func (in *Input) Add16(v uint16) *Input { return in.add(Uint16, uint64(v)) }
func (in *Input) Add32(v uint32) *Input { return in.add(Uint32, uint64(v)) }
func (in *Input) Add64(v uint64) *Input { return in.add(Uint64, v) }

func (in *Input) add(w Width, v uint64) *Input {
	in.values = append(in.values, TypedValue{Width: w, Value: v})
	return in
}

// Values returns a copy of the queued values.
func (in *Input) Values() []TypedValue {
	return append([]TypedValue(nil), in.values...)
}

// Contract returns the target contract address.
func (in *Input) Contract() common.Address { return in.contract }

// User returns the address of the account submitting the input.
func (in *Input) User() common.Address { return in.user }

// Encrypt seals the queued values.
func (in *Input) Encrypt(ctx context.Context) (*InputProof, error) {
	if len(in.values) == 0 {
		return nil, ErrEmptyInput
	}
	if in.sealer == nil {
		return nil, errors.New("sdk: input has no sealer")
	}
	proof, err := in.sealer.Seal(ctx, in.contract, in.user, in.Values())
	if err != nil {
		return nil, err
	}
	if proof == nil || len(proof.Handles) != len(in.values) {
		return nil, fmt.Errorf("sdk: sealer returned %d handles for %d values", handleCount(proof), len(in.values))
	}
	return proof, nil
}

// EncryptValue seals a single value and returns its handle. Instances use it
// to implement the EncryptN helpers.
func EncryptValue(ctx context.Context, s Sealer, w Width, v uint64) (string, error) {
	if !w.Valid() {
		return "", fmt.Errorf("sdk: unsupported width %d", w)
	}
	if v > w.Max() {
		return "", fmt.Errorf("sdk: value %d overflows %s", v, w)
	}
	proof, err := NewInput(s, common.Address{}, common.Address{}).add(w, v).Encrypt(ctx)
	if err != nil {
		return "", err
	}
	return proof.Handles[0], nil
}

func handleCount(p *InputProof) int {
	if p == nil {
		return 0
	}
	return len(p.Handles)
}
