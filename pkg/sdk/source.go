package sdk

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/sha3"

	"github.com/fhecounter/fhevm_sdk_go/internal/httpx"
)

// DefaultSourceURLs lists the CDN manifests tried in order when no sources
// are configured. No public CDN serves a Go SDK manifest at these paths yet,
// so with the defaults every load fails and auto mode falls back to the mock.
// Pass explicit sources to use the relayer, for example the manifest
// cmd/fhevm-sandbox serves at http://localhost:8787/sdk/manifest.json, or set
// FHEVM_SDK_URLS when building through fhevm.NewFromEnv.
var DefaultSourceURLs = []string{
	"https://cdn.zama.ai/relayer-sdk-go/0.1.2/manifest.json",
	"https://unpkg.com/@zama-fhe/relayer-sdk@0.1.2/dist/manifest.json",
	"https://cdn.jsdelivr.net/npm/@zama-fhe/relayer-sdk@0.1.2/dist/manifest.json",
}

const integrityPrefix = "sha3-256-"

// Source produces a Module.
type Source interface {
	// Name identifies the source in logs and LoadError attempts.
	Name() string
	// Open fetches and builds the module.
	Open(ctx context.Context) (*Module, error)
	// Probe checks that Open would likely succeed without building the
	// module.
	Probe(ctx context.Context) error
}

// SourceOption configures an HTTPSource.
type SourceOption func(*HTTPSource)

// WithIntegrity pins the manifest to a "sha3-256-<hex>" digest.
func WithIntegrity(digest string) SourceOption {
	return func(s *HTTPSource) { s.integrity = strings.TrimSpace(digest) }
}

// WithHTTPOptions passes extra options to the underlying httpx client.
func WithHTTPOptions(opts ...httpx.Option) SourceOption {
	return func(s *HTTPSource) { s.httpOpts = append(s.httpOpts, opts...) }
}

// HTTPSource fetches a manifest from a URL and opens it with the driver the
// manifest names.
type HTTPSource struct {
	url       string
	integrity string
	httpOpts  []httpx.Option
	client    *httpx.Client
	err       error
}

// NewHTTPSource builds a source for rawURL. A "#sha3-256-<hex>" fragment is
// read as the integrity digest. Construction errors surface from Open.
func NewHTTPSource(rawURL string, opts ...SourceOption) *HTTPSource {
	s := &HTTPSource{url: strings.TrimSpace(rawURL)}
	if base, frag, ok := strings.Cut(s.url, "#"); ok && strings.HasPrefix(frag, integrityPrefix) {
		s.url = base
		s.integrity = frag
	}
	for _, opt := range opts {
		opt(s)
	}
	clientOpts := append([]httpx.Option{httpx.WithRetryPolicy(httpx.NoRetry), httpx.WithTimeout(15 * time.Second)}, s.httpOpts...)
	s.client, s.err = httpx.NewClient(s.url, clientOpts...)
	return s
}

// HTTPSources builds one HTTPSource per URL.
func HTTPSources(urls []string, opts ...SourceOption) []Source {
	out := make([]Source, 0, len(urls))
	for _, u := range urls {
		if strings.TrimSpace(u) == "" {
			continue
		}
		out = append(out, NewHTTPSource(u, opts...))
	}
	return out
}

// DefaultSources returns HTTP sources for DefaultSourceURLs.
func DefaultSources(opts ...SourceOption) []Source {
	return HTTPSources(DefaultSourceURLs, opts...)
}

func (s *HTTPSource) Name() string { return s.url }

// Manifest fetches, verifies and parses the manifest.
func (s *HTTPSource) Manifest(ctx context.Context) (*Manifest, error) {
	if s.err != nil {
		return nil, s.err
	}
	body, err := s.client.GetJSON(ctx, "", nil)
	if err != nil {
		return nil, err
	}
	if s.integrity != "" {
		if err := verifyIntegrity(body, s.integrity); err != nil {
			return nil, err
		}
	}
	m, err := ParseManifest(body)
	if err != nil {
		return nil, err
	}
	m.Source = s.url
	return m, nil
}

func (s *HTTPSource) Open(ctx context.Context) (*Module, error) {
	m, err := s.Manifest(ctx)
	if err != nil {
		return nil, err
	}
	d, err := lookupDriver(m.Driver)
	if err != nil {
		return nil, err
	}
	return d.Open(ctx, m)
}

func (s *HTTPSource) Probe(ctx context.Context) error {
	m, err := s.Manifest(ctx)
	if err != nil {
		return err
	}
	_, err = lookupDriver(m.Driver)
	return err
}

func verifyIntegrity(body []byte, digest string) error {
	want, err := hex.DecodeString(strings.TrimPrefix(strings.ToLower(digest), integrityPrefix))
	if err != nil || !strings.HasPrefix(strings.ToLower(digest), integrityPrefix) {
		return fmt.Errorf("%w: malformed digest %q", ErrIntegrity, digest)
	}
	got := sha3.Sum256(body)
	if !bytes.Equal(got[:], want) {
		return fmt.Errorf("%w: got %s%x", ErrIntegrity, integrityPrefix, got)
	}
	return nil
}

// IntegrityOf returns the digest string for data, in the form accepted by
// WithIntegrity.
func IntegrityOf(data []byte) string {
	sum := sha3.Sum256(data)
	return integrityPrefix + hex.EncodeToString(sum[:])
}

// StaticSource serves an in-process module, optionally after a delay that
// stands in for a network fetch.
type StaticSource struct {
	name   string
	module *Module
	delay  time.Duration
}

// NewStaticSource returns a source that always yields m.
func NewStaticSource(name string, m *Module, delay time.Duration) *StaticSource {
	return &StaticSource{name: name, module: m, delay: delay}
}

func (s *StaticSource) Name() string { return s.name }

func (s *StaticSource) Open(ctx context.Context) (*Module, error) {
	if err := httpx.Sleep(ctx, s.delay); err != nil {
		return nil, err
	}
	return s.module, nil
}

func (s *StaticSource) Probe(ctx context.Context) error {
	return s.module.Validate()
}
