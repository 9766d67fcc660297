package sandbox

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gin-gonic/gin"

	"github.com/fhecounter/fhevm_sdk_go/internal/relayerapi"
	"github.com/fhecounter/fhevm_sdk_go/pkg/relayer"
	"github.com/fhecounter/fhevm_sdk_go/pkg/sdk"
)

func newCRS(bits int) (string, error) {
	buf := make([]byte, bits/8)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("sandbox: generate CRS: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf), nil
}

func (s *Server) handleKeyURL(c *gin.Context) {
	c.JSON(http.StatusOK, relayerapi.Success(relayer.KeyURLResponse{
		FhePublicKey: relayer.KeyData{DataID: "fhe-public-key", Data: s.pubKey},
		CRS:          s.crs,
		Params:       s.cfg.Params,
	}))
}

func (s *Server) handleInputProof(c *gin.Context) {
	var req relayer.InputProofRequest
	if err := c.BindJSON(&req); err != nil {
		return
	}
	if req.ChainID != s.cfg.ChainID {
		c.JSON(http.StatusBadRequest, relayerapi.Failure(fmt.Sprintf("chain id %d is not served here (want %d)", req.ChainID, s.cfg.ChainID)))
		return
	}
	if len(req.Ciphertexts) == 0 || len(req.Ciphertexts) > 255 {
		c.JSON(http.StatusBadRequest, relayerapi.Failure(fmt.Sprintf("expected 1 to 255 ciphertexts, got %d", len(req.Ciphertexts))))
		return
	}

	handles := make([]string, len(req.Ciphertexts))
	values := make([]uint64, len(req.Ciphertexts))
	for i, ct := range req.Ciphertexts {
		w, ok := sdk.WidthFromCode(ct.Type)
		if !ok {
			c.JSON(http.StatusBadRequest, relayerapi.Failure(fmt.Sprintf("ciphertext %d: unknown type %d", i, ct.Type)))
			return
		}
		raw, err := base64.StdEncoding.DecodeString(ct.Data)
		if err != nil {
			c.JSON(http.StatusBadRequest, relayerapi.Failure(fmt.Sprintf("ciphertext %d: %v", i, err)))
			return
		}
		v, err := s.keys.Decrypt(raw, w)
		if err != nil {
			c.JSON(http.StatusBadRequest, relayerapi.Failure(fmt.Sprintf("ciphertext %d: %v", i, err)))
			return
		}
		h, err := relayer.ComputeHandle(raw, s.cfg.ChainID, i, w)
		if err != nil {
			c.JSON(http.StatusBadRequest, relayerapi.Failure(err.Error()))
			return
		}
		handles[i] = h.Hex()
		values[i] = v
	}

	s.mu.Lock()
	for i, h := range handles {
		s.values[strings.ToLower(h)] = values[i]
	}
	s.mu.Unlock()

	c.JSON(http.StatusOK, relayerapi.Success(relayer.InputProofResponse{
		Handles:    handles,
		InputProof: inputProof(handles, req),
	}))
}

// inputProof is a count byte followed by the handles and a keccak
// attestation over the handles and the contract/user pair.
func inputProof(handles []string, req relayer.InputProofRequest) string {
	out := []byte{byte(len(handles))}
	digest := make([][]byte, 0, len(handles)+3)
	for _, h := range handles {
		raw := hexutil.MustDecode(h)
		out = append(out, raw...)
		digest = append(digest, raw)
	}
	var chain [8]byte
	binary.BigEndian.PutUint64(chain[:], req.ChainID)
	digest = append(digest, req.ContractAddress.Bytes(), req.UserAddress.Bytes(), chain[:])
	out = append(out, crypto.Keccak256(digest...)...)
	return hexutil.Encode(out)
}

func (s *Server) handlePublicDecrypt(c *gin.Context) {
	var req relayer.PublicDecryptRequest
	if err := c.BindJSON(&req); err != nil {
		return
	}
	out := relayer.PublicDecryptResponse{Values: make(map[string]string, len(req.Handles))}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, h := range req.Handles {
		v, ok := s.values[strings.ToLower(h)]
		if !ok {
			c.JSON(http.StatusNotFound, relayerapi.Failure("unknown handle "+h))
			return
		}
		out.Values[h] = strconv.FormatUint(v, 10)
	}
	c.JSON(http.StatusOK, relayerapi.Success(out))
}
