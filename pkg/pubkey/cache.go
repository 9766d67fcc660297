package pubkey

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/fhecounter/fhevm_sdk_go/internal/devseed"
)

// Cache stores FHE public key material keyed by ACL contract address.
type Cache struct {
	backend Backend
	now     func() time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock overrides the clock used to stamp records (useful in tests).
func WithClock(fn func() time.Time) Option {
	return func(c *Cache) {
		if fn != nil {
			c.now = fn
		}
	}
}

// New wraps b. A nil backend selects an in-memory one.
func New(b Backend, opts ...Option) *Cache {
	if b == nil {
		b = newMemoryBackend()
	}
	c := &Cache{backend: b, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewMemory returns a cache backed by process memory.
func NewMemory(opts ...Option) *Cache {
	return New(newMemoryBackend(), opts...)
}

// Backend returns the underlying backend.
func (c *Cache) Backend() Backend { return c.backend }

// Get returns the material cached for address. A missing record yields empty
// material and no error.
func (c *Cache) Get(ctx context.Context, address string) (KeyMaterial, error) {
	addr, err := NormalizeAddress(address)
	if err != nil {
		return KeyMaterial{}, err
	}
	if err := c.ready(); err != nil {
		return KeyMaterial{}, err
	}
	rec, err := c.backend.Get(ctx, addr)
	if err != nil {
		return KeyMaterial{}, wrap("get", addr, err)
	}
	if rec == nil {
		return KeyMaterial{}, nil
	}
	return rec.Material(), nil
}

// Set stores material for address, replacing any previous record.
func (c *Cache) Set(ctx context.Context, address, publicKey, publicParams string) error {
	addr, err := NormalizeAddress(address)
	if err != nil {
		return err
	}
	if err := c.ready(); err != nil {
		return err
	}
	rec := Record{
		Address:      addr,
		PublicKey:    publicKey,
		PublicParams: publicParams,
		Timestamp:    c.now().UnixMilli(),
	}
	if err := c.backend.Put(ctx, rec); err != nil {
		return wrap("set", addr, err)
	}
	return nil
}

// Clear removes every record.
func (c *Cache) Clear(ctx context.Context) error {
	if err := c.ready(); err != nil {
		return err
	}
	if err := c.backend.Clear(ctx); err != nil {
		return wrap("clear", "", err)
	}
	return nil
}

// List returns all records sorted by address.
func (c *Cache) List(ctx context.Context) ([]Record, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	recs, err := c.backend.List(ctx)
	if err != nil {
		return nil, wrap("list", "", err)
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].Address < recs[j].Address })
	return recs, nil
}

// Seed writes seed entries, keeping their timestamps when present.
func (c *Cache) Seed(ctx context.Context, entries []devseed.KeySeedEntry) error {
	if err := c.ready(); err != nil {
		return err
	}
	for _, e := range entries {
		addr, err := NormalizeAddress(e.Address)
		if err != nil {
			return fmt.Errorf("pubkey: seed: %w", err)
		}
		ts := c.now().UnixMilli()
		if e.Timestamp != nil {
			ts = *e.Timestamp
		}
		rec := Record{Address: addr, PublicKey: e.PublicKey, PublicParams: e.PublicParams, Timestamp: ts}
		if err := c.backend.Put(ctx, rec); err != nil {
			return wrap("seed", addr, err)
		}
	}
	return nil
}

func (c *Cache) ready() error {
	if c == nil || c.backend == nil {
		return &CacheError{Op: "open", Err: errors.New("cache is not configured")}
	}
	return nil
}

func wrap(op, addr string, err error) error {
	var ce *CacheError
	if errors.As(err, &ce) {
		return err
	}
	return &CacheError{Op: op, Address: addr, Err: err}
}
