package pubkey

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/fhecounter/fhevm_sdk_go/internal/httpx"
	"github.com/fhecounter/fhevm_sdk_go/internal/relayerapi"
)

// HTTPBackend stores records in a chainstore hash over its REST API
// (/hset, /hget, /hgetall). The API has no delete, so Clear overwrites each
// field with a null tombstone that Get and List skip.
type HTTPBackend struct {
	client  *httpx.Client
	hashKey string
}

// NewHTTPBackend builds a backend for the chainstore at baseURL.
func NewHTTPBackend(baseURL string, opts ...httpx.Option) (*HTTPBackend, error) {
	cl, err := httpx.NewClient(baseURL, opts...)
	if err != nil {
		return nil, err
	}
	return NewHTTPBackendWithClient(cl), nil
}

// NewHTTPBackendWithClient wraps an existing httpx.Client.
func NewHTTPBackendWithClient(cl *httpx.Client) *HTTPBackend {
	return &HTTPBackend{client: cl, hashKey: HashKey}
}

func (b *HTTPBackend) Get(ctx context.Context, address string) (*Record, error) {
	body, err := b.client.GetJSON(ctx, "hget", url.Values{"hkey": {b.hashKey}, "key": {address}})
	if err != nil {
		return nil, err
	}
	payload, err := relayerapi.Extract(body)
	if err != nil {
		return nil, err
	}
	return decodeStored(payload)
}

func (b *HTTPBackend) Put(ctx context.Context, rec Record) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	return b.hset(ctx, rec.Address, string(raw))
}

func (b *HTTPBackend) List(ctx context.Context) ([]Record, error) {
	fields, err := b.hgetall(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(fields))
	for field, raw := range fields {
		rec, err := decodeStored(raw)
		if err != nil {
			return nil, fmt.Errorf("decode field %s: %w", field, err)
		}
		if rec != nil {
			out = append(out, *rec)
		}
	}
	return out, nil
}

func (b *HTTPBackend) Clear(ctx context.Context) error {
	fields, err := b.hgetall(ctx)
	if err != nil {
		return err
	}
	for field := range fields {
		if err := b.hset(ctx, field, "null"); err != nil {
			return err
		}
	}
	return nil
}

func (b *HTTPBackend) hset(ctx context.Context, field, value string) error {
	_, err := b.client.PostJSON(ctx, "hset", map[string]any{
		"hkey":             b.hashKey,
		"key":              field,
		"value":            value,
		"chainstore_peers": []string{},
	})
	return err
}

func (b *HTTPBackend) hgetall(ctx context.Context) (map[string]json.RawMessage, error) {
	body, err := b.client.GetJSON(ctx, "hgetall", url.Values{"hkey": {b.hashKey}})
	if err != nil {
		return nil, err
	}
	payload, err := relayerapi.Extract(body)
	if err != nil {
		return nil, err
	}
	payload = bytes.TrimSpace(payload)
	if len(payload) == 0 || bytes.Equal(payload, []byte("null")) {
		return nil, nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload, &fields); err != nil {
		return nil, fmt.Errorf("decode hgetall response: %w", err)
	}
	return fields, nil
}

// decodeStored accepts a record document or a JSON string holding one.
// Empty payloads and null tombstones decode to nil.
func decodeStored(raw []byte) (*Record, error) {
	raw = bytes.TrimSpace(raw)
	var inner string
	if err := json.Unmarshal(raw, &inner); err == nil {
		raw = bytes.TrimSpace([]byte(inner))
	}
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, err
	}
	if rec.Address == "" {
		return nil, nil
	}
	return &rec, nil
}
