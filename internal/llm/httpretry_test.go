package llm

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestHTTPRetryTransportRetriesTransportError(t *testing.T) {
	var attempts int32

	// A round tripper that fails twice then succeeds, wrapped by the
	// retry transport directly (no real listener needed for a pure
	// transport-error path).
	inner := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		n := atomic.AddInt32(&attempts, 1)
		if n <= 2 {
			return nil, io.ErrClosedPipe
		}
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(nil),
			Header:     make(http.Header),
		}, nil
	})

	rt := &httpRetryTransport{base: inner}
	rt2 := &retryBackoffOverride{httpRetryTransport: rt, backoff: time.Millisecond}

	req, _ := http.NewRequestWithContext(context.Background(), http.MethodGet, "http://example.test", nil)
	resp, err := rt2.RoundTrip(req)
	if err != nil {
		t.Fatalf("expected eventual success, got error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
	if atomic.LoadInt32(&attempts) != 3 {
		t.Errorf("expected 3 attempts (1 + 2 retries), got %d", attempts)
	}
}

func TestHTTPRetryTransportGivesUpAfterMaxRetries(t *testing.T) {
	var attempts int32
	inner := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		atomic.AddInt32(&attempts, 1)
		return nil, io.ErrClosedPipe
	})

	rt := &httpRetryTransport{base: inner}
	rt2 := &retryBackoffOverride{httpRetryTransport: rt, backoff: time.Millisecond}

	req, _ := http.NewRequestWithContext(context.Background(), http.MethodGet, "http://example.test", nil)
	_, err := rt2.RoundTrip(req)
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if atomic.LoadInt32(&attempts) != httpMaxRetries+1 {
		t.Errorf("expected %d attempts, got %d", httpMaxRetries+1, attempts)
	}
}

func TestHTTPRetryTransportHonorsRetryAfter(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&attempts, 1)
		if n == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := &http.Client{Transport: &httpRetryTransport{base: http.DefaultTransport}}
	resp, err := client.Get(server.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200 after 429 retry, got %d", resp.StatusCode)
	}
	if attempts != 2 {
		t.Errorf("expected 2 attempts (1 x 429 + 1 success), got %d", attempts)
	}
}

func TestHTTPRetryTransportStopsAt429AfterMaxRetries(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.Header().Set("Retry-After", "0")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := &http.Client{Transport: &httpRetryTransport{base: http.DefaultTransport}}
	resp, err := client.Get(server.URL)
	if err != nil {
		t.Fatalf("unexpected transport error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusTooManyRequests {
		t.Errorf("expected final 429 to be returned, got %d", resp.StatusCode)
	}
	if attempts != httpMaxRetries+1 {
		t.Errorf("expected %d attempts, got %d", httpMaxRetries+1, attempts)
	}
}

func TestHTTPRetryTransportAbortsOnCanceledContext(t *testing.T) {
	inner := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return nil, io.ErrClosedPipe
	})
	rt := &httpRetryTransport{base: inner}
	rt2 := &retryBackoffOverride{httpRetryTransport: rt, backoff: 50 * time.Millisecond}

	ctx, cancel := context.WithCancel(context.Background())
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, "http://example.test", nil)

	go func() {
		time.Sleep(5 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := rt2.RoundTrip(req)
	if err == nil {
		t.Fatal("expected error")
	}
	if time.Since(start) > 200*time.Millisecond {
		t.Error("expected RoundTrip to abort quickly once context was canceled")
	}
}

func TestRetryAfterDelayParsing(t *testing.T) {
	cases := []struct {
		header string
		want   time.Duration
	}{
		{"", http429DefaultBackoff},
		{"3", 3 * time.Second},
		{"not-a-number", http429DefaultBackoff},
		{"-1", http429DefaultBackoff},
	}
	for _, c := range cases {
		got := retryAfterDelay(c.header)
		if got != c.want {
			t.Errorf("retryAfterDelay(%q) = %v, want %v", c.header, got, c.want)
		}
	}
}

func TestNewHTTPClientSetsTimeoutAndTransport(t *testing.T) {
	client := newHTTPClient()
	if client.Timeout != httpRequestTimeout {
		t.Errorf("expected timeout %v, got %v", httpRequestTimeout, client.Timeout)
	}
	if _, ok := client.Transport.(*httpRetryTransport); !ok {
		t.Errorf("expected *httpRetryTransport, got %T", client.Transport)
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// retryBackoffOverride lets tests exercise the retry loop with a much
// shorter backoff than the production httpRetryBackoff constant, by
// re-implementing RoundTrip with an injected delay instead of sleeping
// the full 500ms per retry.
type retryBackoffOverride struct {
	*httpRetryTransport
	backoff time.Duration
}

func (t *retryBackoffOverride) RoundTrip(req *http.Request) (*http.Response, error) {
	var lastErr error
	for attempt := 0; ; attempt++ {
		resp, err := t.base.RoundTrip(req)
		if err != nil {
			lastErr = err
			if attempt >= httpMaxRetries || !sleepOrDone(req.Context(), t.backoff) {
				return nil, lastErr
			}
			continue
		}
		return resp, nil
	}
}
