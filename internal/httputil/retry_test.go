package httputil

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

func fastRetry(retries int) RetryConfig {
	return RetryConfig{MaxRetries: retries, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, BackoffFactor: 2}
}

func TestDoRetriesRetryableStatusAndReplaysBody(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if string(body) != "payload" {
			t.Errorf("unexpected body on attempt %d: %q", calls.Load()+1, body)
		}
		if r.Header.Get("Content-Type") != "text/plain" {
			t.Errorf("missing header")
		}
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	headers := http.Header{}
	headers.Set("Content-Type", "text/plain")
	resp, err := Do(context.Background(), server.Client(), http.MethodPost, server.URL, []byte("payload"), headers, fastRetry(3))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.StatusCode)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls.Load())
	}
}

func TestDoReturnsNonRetryableStatusImmediately(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	resp, err := Do(context.Background(), server.Client(), http.MethodGet, server.URL, nil, nil, fastRetry(3))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest || calls.Load() != 1 {
		t.Fatalf("expected single 400 attempt, got status=%d calls=%d", resp.StatusCode, calls.Load())
	}
}

func TestDoExhaustsRetries(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := Do(context.Background(), server.Client(), http.MethodGet, server.URL, nil, nil, fastRetry(1))
	var statusErr *RetryableStatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected retryable status error, got %v", err)
	}
}

func TestDoStopsOnCanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Do(ctx, nil, http.MethodGet, "http://127.0.0.1:1", nil, nil, fastRetry(3))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled, got %v", err)
	}
}

func TestApplyJitterBounds(t *testing.T) {
	t.Parallel()

	if got := applyJitter(time.Second, 0); got != time.Second {
		t.Fatalf("expected no jitter, got %v", got)
	}
	for i := 0; i < 50; i++ {
		got := applyJitter(time.Second, 0.3)
		if got < 700*time.Millisecond || got > 1300*time.Millisecond {
			t.Fatalf("jitter out of bounds: %v", got)
		}
	}
}
