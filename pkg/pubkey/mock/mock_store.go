// Package mock provides an in-memory pubkey.Backend with latency and failure
// injection for tests and local development.
package mock

import (
	"context"
	"sync"
	"time"

	"github.com/fhecounter/fhevm_sdk_go/pkg/pubkey"
)

// Store is an in-memory pubkey backend.
type Store struct {
	mu       sync.Mutex
	records  map[string]pubkey.Record
	latency  time.Duration
	readErr  error
	writeErr error
	gets     int
	puts     int
}

// Option configures a Store.
type Option func(*Store)

// WithLatency delays every operation by d, honouring context cancellation.
func WithLatency(d time.Duration) Option {
	return func(s *Store) { s.latency = d }
}

// WithRecords pre-populates the store.
func WithRecords(recs ...pubkey.Record) Option {
	return func(s *Store) {
		for _, rec := range recs {
			s.records[rec.Address] = rec
		}
	}
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{records: make(map[string]pubkey.Record)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewCache returns a cache over a fresh Store together with the store.
func NewCache(opts ...Option) (*pubkey.Cache, *Store) {
	s := New(opts...)
	return pubkey.New(s), s
}

// FailReads makes Get and List return err until reset with nil.
func (s *Store) FailReads(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readErr = err
}

// FailWrites makes Put and Clear return err until reset with nil.
func (s *Store) FailWrites(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writeErr = err
}

// Calls reports how many Get and Put calls reached the store.
func (s *Store) Calls() (gets, puts int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gets, s.puts
}

// Snapshot copies the current records.
func (s *Store) Snapshot() map[string]pubkey.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]pubkey.Record, len(s.records))
	for k, v := range s.records {
		out[k] = v
	}
	return out
}

func (s *Store) Get(ctx context.Context, address string) (*pubkey.Record, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gets++
	if s.readErr != nil {
		return nil, s.readErr
	}
	rec, ok := s.records[address]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (s *Store) Put(ctx context.Context, rec pubkey.Record) error {
	if err := s.wait(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.puts++
	if s.writeErr != nil {
		return s.writeErr
	}
	s.records[rec.Address] = rec
	return nil
}

func (s *Store) List(ctx context.Context) ([]pubkey.Record, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readErr != nil {
		return nil, s.readErr
	}
	out := make([]pubkey.Record, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec)
	}
	return out, nil
}

func (s *Store) Clear(ctx context.Context) error {
	if err := s.wait(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return s.writeErr
	}
	s.records = make(map[string]pubkey.Record)
	return nil
}

func (s *Store) wait(ctx context.Context) error {
	if s.latency <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(s.latency)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
