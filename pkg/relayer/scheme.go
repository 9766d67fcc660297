package relayer

import (
	"encoding/base64"
	"errors"
	"fmt"
	"sync"

	"github.com/tuneinsight/lattigo/v6/core/rlwe"
	"github.com/tuneinsight/lattigo/v6/schemes/bgv"

	"github.com/fhecounter/fhevm_sdk_go/pkg/sdk"
)

// limbBits is the width of one plaintext slot; the plaintext modulus 65537
// holds any 16-bit limb.
const limbBits = 16

// ParamsSpec describes the BGV parameters shared by clients and the relayer.
type ParamsSpec struct {
	LogN             int    `json:"logN"`
	LogQ             []int  `json:"logQ"`
	LogP             []int  `json:"logP"`
	PlaintextModulus uint64 `json:"plaintextModulus"`
}

// DefaultParams are small encryption-only parameters.
func DefaultParams() ParamsSpec {
	return ParamsSpec{
		LogN:             11,
		LogQ:             []int{36, 36},
		LogP:             []int{37},
		PlaintextModulus: 65537,
	}
}

// IsZero reports whether no parameters were given.
func (p ParamsSpec) IsZero() bool {
	return p.LogN == 0 && len(p.LogQ) == 0 && len(p.LogP) == 0 && p.PlaintextModulus == 0
}

func (p ParamsSpec) literal() bgv.ParametersLiteral {
	return bgv.ParametersLiteral{
		LogN:             p.LogN,
		LogQ:             p.LogQ,
		LogP:             p.LogP,
		PlaintextModulus: p.PlaintextModulus,
	}
}

// Scheme wraps a BGV parameter set with an encoder.
type Scheme struct {
	spec   ParamsSpec
	params bgv.Parameters

	mu      sync.Mutex
	encoder *bgv.Encoder
}

// NewScheme builds the parameters described by spec.
func NewScheme(spec ParamsSpec) (*Scheme, error) {
	if spec.PlaintextModulus < 1<<limbBits {
		return nil, fmt.Errorf("relayer: plaintext modulus %d cannot hold %d-bit limbs", spec.PlaintextModulus, limbBits)
	}
	params, err := bgv.NewParametersFromLiteral(spec.literal())
	if err != nil {
		return nil, fmt.Errorf("relayer: build BGV parameters: %w", err)
	}
	return &Scheme{spec: spec, params: params, encoder: bgv.NewEncoder(params)}, nil
}

// Spec returns the parameters the scheme was built from.
func (s *Scheme) Spec() ParamsSpec { return s.spec }

// KeyPair is a BGV secret/public key pair. Only the relayer side holds one.
type KeyPair struct {
	scheme *Scheme
	sk     *rlwe.SecretKey
	pk     *rlwe.PublicKey
}

// GenerateKeyPair samples a fresh key pair.
func (s *Scheme) GenerateKeyPair() *KeyPair {
	sk, pk := rlwe.NewKeyGenerator(s.params).GenKeyPairNew()
	return &KeyPair{scheme: s, sk: sk, pk: pk}
}

// PublicKey returns the public half.
func (kp *KeyPair) PublicKey() *rlwe.PublicKey { return kp.pk }

// EncodePublicKey serialises pk as base64.
func EncodePublicKey(pk *rlwe.PublicKey) (string, error) {
	if pk == nil {
		return "", errors.New("relayer: nil public key")
	}
	raw, err := pk.MarshalBinary()
	if err != nil {
		return "", fmt.Errorf("relayer: marshal public key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// DecodePublicKey parses a base64 public key produced by EncodePublicKey.
func DecodePublicKey(encoded string) (*rlwe.PublicKey, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("relayer: decode public key: %w", err)
	}
	pk := new(rlwe.PublicKey)
	if err := pk.UnmarshalBinary(raw); err != nil {
		return nil, fmt.Errorf("relayer: unmarshal public key: %w", err)
	}
	return pk, nil
}

// CheckPublicKey reports an error when pk was not generated for the scheme's
// ring degree and modulus chain.
func (s *Scheme) CheckPublicKey(pk *rlwe.PublicKey) error {
	if pk == nil || len(pk.Value) == 0 {
		return errors.New("relayer: empty public key")
	}
	if n := pk.Value[0].Q.N(); n != s.params.N() {
		return fmt.Errorf("relayer: public key ring degree %d, want %d", n, s.params.N())
	}
	if pk.LevelQ() != s.params.MaxLevelQ() || pk.LevelP() != s.params.MaxLevelP() {
		return fmt.Errorf("relayer: public key levels (%d, %d), want (%d, %d)",
			pk.LevelQ(), pk.LevelP(), s.params.MaxLevelQ(), s.params.MaxLevelP())
	}
	return nil
}

// limbCount is the number of 16-bit slots a value of width w occupies.
func limbCount(w sdk.Width) int {
	n := int(w) / limbBits
	if n == 0 {
		n = 1
	}
	return n
}

// Encrypt splits v into 16-bit limbs, one per slot, and encrypts them under
// pk. The result is a serialised rlwe ciphertext.
func (s *Scheme) Encrypt(pk *rlwe.PublicKey, w sdk.Width, v uint64) ([]byte, error) {
	if !w.Valid() {
		return nil, fmt.Errorf("relayer: unsupported width %d", w)
	}
	if v > w.Max() {
		return nil, fmt.Errorf("relayer: value %d overflows %s", v, w)
	}
	limbs := make([]uint64, limbCount(w))
	for i := range limbs {
		limbs[i] = (v >> (limbBits * uint(i))) & (1<<limbBits - 1)
	}

	pt := bgv.NewPlaintext(s.params, s.params.MaxLevel())
	s.mu.Lock()
	err := s.encoder.Encode(limbs, pt)
	s.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("relayer: encode: %w", err)
	}
	ct, err := rlwe.NewEncryptor(s.params, pk).EncryptNew(pt)
	if err != nil {
		return nil, fmt.Errorf("relayer: encrypt: %w", err)
	}
	return ct.MarshalBinary()
}

// Decrypt reverses Encrypt for a value of width w.
func (kp *KeyPair) Decrypt(ciphertext []byte, w sdk.Width) (uint64, error) {
	if !w.Valid() {
		return 0, fmt.Errorf("relayer: unsupported width %d", w)
	}
	ct := new(rlwe.Ciphertext)
	if err := ct.UnmarshalBinary(ciphertext); err != nil {
		return 0, fmt.Errorf("relayer: unmarshal ciphertext: %w", err)
	}
	s := kp.scheme
	pt := rlwe.NewDecryptor(s.params, kp.sk).DecryptNew(ct)

	limbs := make([]uint64, limbCount(w))
	s.mu.Lock()
	err := s.encoder.Decode(pt, limbs)
	s.mu.Unlock()
	if err != nil {
		return 0, fmt.Errorf("relayer: decode: %w", err)
	}
	var v uint64
	for i, limb := range limbs {
		v |= (limb & (1<<limbBits - 1)) << (limbBits * uint(i))
	}
	if v > w.Max() {
		return 0, fmt.Errorf("relayer: decrypted value %d overflows %s", v, w)
	}
	return v, nil
}
