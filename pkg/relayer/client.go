package relayer

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fhecounter/fhevm_sdk_go/internal/httpx"
	"github.com/fhecounter/fhevm_sdk_go/internal/relayerapi"
)

// KeyData is one piece of key material served by the relayer.
type KeyData struct {
	DataID string `json:"dataId"`
	Data   string `json:"data"`
}

// KeyURLResponse is the payload of GET /v1/keyurl.
type KeyURLResponse struct {
	FhePublicKey KeyData            `json:"fhePublicKey"`
	CRS          map[string]KeyData `json:"crs"`
	Params       ParamsSpec         `json:"params"`
}

// Ciphertext is one encrypted value submitted for an input proof.
type Ciphertext struct {
	Type byte   `json:"type"`
	Data string `json:"data"`
}

// InputProofRequest is the body of POST /v1/input-proof.
type InputProofRequest struct {
	ContractAddress common.Address `json:"contractAddress"`
	UserAddress     common.Address `json:"userAddress"`
	ChainID         uint64         `json:"chainId"`
	Ciphertexts     []Ciphertext   `json:"ciphertexts"`
}

// InputProofResponse is the payload returned for an input proof.
type InputProofResponse struct {
	Handles    []string `json:"handles"`
	InputProof string   `json:"inputProof"`
}

// PublicDecryptRequest is the body of POST /v1/public-decrypt.
type PublicDecryptRequest struct {
	Handles []string `json:"handles"`
}

// PublicDecryptResponse maps handles to decimal plaintexts.
type PublicDecryptResponse struct {
	Values map[string]string `json:"values"`
}

// Client talks to a relayer over HTTP.
type Client struct {
	http *httpx.Client
}

// NewClient returns a client for the relayer at baseURL.
func NewClient(baseURL string, opts ...httpx.Option) (*Client, error) {
	cl, err := httpx.NewClient(baseURL, opts...)
	if err != nil {
		return nil, err
	}
	return &Client{http: cl}, nil
}

// BaseURL returns the relayer URL.
func (c *Client) BaseURL() string { return c.http.BaseURL() }

// KeyURL fetches the relayer's public key, CRS and parameters.
func (c *Client) KeyURL(ctx context.Context) (*KeyURLResponse, error) {
	body, err := c.http.GetJSON(ctx, "v1/keyurl", nil)
	if err != nil {
		return nil, err
	}
	var out KeyURLResponse
	if err := relayerapi.Decode(body, &out); err != nil {
		return nil, fmt.Errorf("relayer: decode keyurl response: %w", err)
	}
	if out.FhePublicKey.Data == "" {
		return nil, errors.New("relayer: keyurl response has no public key")
	}
	return &out, nil
}

// InputProof registers ciphertexts and returns their handles and proof.
func (c *Client) InputProof(ctx context.Context, req InputProofRequest) (*InputProofResponse, error) {
	body, err := c.http.PostJSON(ctx, "v1/input-proof", req)
	if err != nil {
		return nil, err
	}
	var out InputProofResponse
	if err := relayerapi.Decode(body, &out); err != nil {
		return nil, fmt.Errorf("relayer: decode input-proof response: %w", err)
	}
	if len(out.Handles) != len(req.Ciphertexts) {
		return nil, fmt.Errorf("relayer: got %d handles for %d ciphertexts", len(out.Handles), len(req.Ciphertexts))
	}
	return &out, nil
}

// PublicDecrypt asks the relayer to decrypt publicly decryptable handles.
func (c *Client) PublicDecrypt(ctx context.Context, handles []string) (map[string]uint64, error) {
	body, err := c.http.PostJSON(ctx, "v1/public-decrypt", PublicDecryptRequest{Handles: handles})
	if err != nil {
		return nil, err
	}
	var out PublicDecryptResponse
	if err := relayerapi.Decode(body, &out); err != nil {
		return nil, fmt.Errorf("relayer: decode public-decrypt response: %w", err)
	}
	values := make(map[string]uint64, len(out.Values))
	for h, raw := range out.Values {
		v, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("relayer: value for %s: %w", h, err)
		}
		values[h] = v
	}
	return values, nil
}
