package mock_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fhecounter/fhevm_sdk_go/pkg/pubkey"
	"github.com/fhecounter/fhevm_sdk_go/pkg/pubkey/mock"
)

const acl = "0x2Fb4341027eb1d2aD8B5D9708187df8633cAFA92"

func TestStoreFailureInjection(t *testing.T) {
	cache, store := mock.NewCache()
	ctx := context.Background()

	boom := errors.New("disk full")
	store.FailWrites(boom)
	err := cache.Set(ctx, acl, "pk", "pp")
	var ce *pubkey.CacheError
	if !errors.As(err, &ce) || !errors.Is(err, boom) || ce.Op != "set" {
		t.Fatalf("expected wrapped CacheError, got %v", err)
	}

	store.FailWrites(nil)
	if err := cache.Set(ctx, acl, "pk", "pp"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	store.FailReads(boom)
	if _, err := cache.Get(ctx, acl); !errors.Is(err, boom) {
		t.Fatalf("expected read failure, got %v", err)
	}
	if gets, puts := store.Calls(); gets != 1 || puts != 2 {
		t.Fatalf("Calls = %d gets, %d puts", gets, puts)
	}
}

func TestStoreLatencyHonoursContext(t *testing.T) {
	cache, _ := mock.NewCache(mock.WithLatency(time.Second))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := cache.Get(ctx, acl); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
}

func TestStoreWithRecords(t *testing.T) {
	cache, store := mock.NewCache(mock.WithRecords(pubkey.Record{Address: acl, PublicKey: "pk", PublicParams: "pp", Timestamp: 1}))
	km, err := cache.Get(context.Background(), acl)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if km.PublicKey != "pk" || km.PublicParams != "pp" {
		t.Fatalf("unexpected material %+v", km)
	}
	if len(store.Snapshot()) != 1 {
		t.Fatalf("unexpected snapshot %v", store.Snapshot())
	}
}
