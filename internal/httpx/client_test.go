package httpx

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

var fastRetry = RetryPolicy{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}

func TestDoRetriesTransientStatus(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		io.WriteString(w, `{"ok":true}`)
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, WithRetryPolicy(fastRetry))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	body, err := c.GetJSON(context.Background(), "status", nil)
	if err != nil {
		t.Fatalf("GetJSON: %v", err)
	}
	if string(body) != `{"ok":true}` {
		t.Fatalf("unexpected body %q", body)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Fatalf("expected 2 calls, got %d", got)
	}
}

func TestDoDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"message":"missing"}`)
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, WithRetryPolicy(fastRetry))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	_, err = c.GetJSON(context.Background(), "missing", nil)
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected HTTPError, got %v", err)
	}
	if httpErr.StatusCode != http.StatusNotFound || httpErr.Retryable() {
		t.Fatalf("unexpected error %#v", httpErr)
	}
	if httpErr.JSON == nil {
		t.Fatalf("expected decoded JSON body")
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("expected a single call, got %d", got)
	}
}

func TestBuildURL(t *testing.T) {
	c, err := NewClient("https://cdn.example.org/sdk/manifest.json")
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	tests := []struct {
		path string
		want string
	}{
		{"", "https://cdn.example.org/sdk/manifest.json"},
		{"https://relayer.example.org/v1/keyurl", "https://relayer.example.org/v1/keyurl"},
	}
	for _, tc := range tests {
		got, err := c.buildURL(tc.path, nil)
		if err != nil {
			t.Fatalf("buildURL(%q): %v", tc.path, err)
		}
		if got != tc.want {
			t.Fatalf("buildURL(%q) = %q, want %q", tc.path, got, tc.want)
		}
	}

	api, err := NewClient("http://localhost:8545/api")
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	got, err := api.buildURL("/v1/keyurl", nil)
	if err != nil {
		t.Fatalf("buildURL: %v", err)
	}
	if got != "http://localhost:8545/api/v1/keyurl" {
		t.Fatalf("unexpected relative URL %q", got)
	}
}

func TestNewClientRejectsUnsupportedScheme(t *testing.T) {
	if _, err := NewClient("ftp://example.org"); err == nil {
		t.Fatalf("expected scheme error")
	}
	if _, err := NewClient("  "); err == nil {
		t.Fatalf("expected empty URL error")
	}
}

func TestDoStopsOnCancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "busy", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, WithRetryPolicy(RetryPolicy{MaxRetries: 5, BaseDelay: time.Second, MaxDelay: time.Second}))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := c.GetJSON(ctx, "", nil); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestBackoffBounds(t *testing.T) {
	b := NewBackoff(10*time.Millisecond, 40*time.Millisecond, 0)
	if d := b.ForAttempt(0); d != 10*time.Millisecond {
		t.Fatalf("attempt 0: %v", d)
	}
	if d := b.ForAttempt(1); d != 20*time.Millisecond {
		t.Fatalf("attempt 1: %v", d)
	}
	if d := b.ForAttempt(10); d != 40*time.Millisecond {
		t.Fatalf("attempt 10 should clamp: %v", d)
	}
}

func TestSleep(t *testing.T) {
	if err := Sleep(context.Background(), time.Millisecond); err != nil {
		t.Fatalf("Sleep: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	if err := Sleep(ctx, time.Minute); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Fatalf("Sleep ignored the cancelled context")
	}
	if err := Sleep(ctx, 0); !errors.Is(err, context.Canceled) {
		t.Fatalf("zero Sleep should still report the context error, got %v", err)
	}
}
