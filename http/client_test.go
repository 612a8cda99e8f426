package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

type recordingObserver struct {
	mu       sync.Mutex
	statuses []int
}

func (o *recordingObserver) ObserveRequest(host string, status int, elapsed time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.statuses = append(o.statuses, status)
}

func TestClientInjectsKeyAndUserAgent(t *testing.T) {
	var gotKey, gotPart, gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.URL.Query().Get("key")
		gotPart = r.URL.Query().Get("part")
		gotUA = r.Header.Get("User-Agent")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := DefaultConfig()
	cfg.APIKey = "secret"
	cfg.RateLimiter.RPS = 0
	client := New(cfg)
	defer client.Close()

	req, _ := http.NewRequestWithContext(context.Background(), http.MethodGet, server.URL+"/videos?part=snippet", nil)
	resp, err := client.HTTPClient().Do(req)
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	resp.Body.Close()

	if gotKey != "secret" {
		t.Errorf("key = %q, want secret", gotKey)
	}
	if gotPart != "snippet" {
		t.Errorf("existing query lost: part = %q", gotPart)
	}
	if gotUA != "ytinsight/1.0" {
		t.Errorf("User-Agent = %q", gotUA)
	}
	if req.URL.Query().Get("key") != "" {
		t.Error("caller's request was mutated")
	}
}

func TestClientRecordsRateLimitResponses(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	obs := &recordingObserver{}
	cfg := DefaultConfig()
	cfg.RateLimiter = RateLimiterConfig{RPS: 100, EnableDynamicBackoff: true}
	cfg.Observer = obs
	client := New(cfg)

	resp, err := client.HTTPClient().Get(server.URL + "/search")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429 passed through unchanged", resp.StatusCode)
	}
	state := backoffOf(client.rateLimiter, server.URL)
	if state == nil || state.CurrentBackoff != 7*time.Second {
		t.Errorf("backoff state = %+v, want 7s from Retry-After", state)
	}
	if len(obs.statuses) != 1 || obs.statuses[0] != 429 {
		t.Errorf("observed statuses = %v", obs.statuses)
	}
}

func TestClientDoesNotRetry(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	cfg := DefaultConfig()
	cfg.RateLimiter.RPS = 0
	resp, err := New(cfg).HTTPClient().Get(server.URL)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	resp.Body.Close()
	if calls != 1 {
		t.Errorf("server called %d times, want 1", calls)
	}
}

func TestTransportConfiguration(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Transport.MaxIdleConns = 15
	cfg.Transport.MaxConnsPerHost = 16
	client := New(cfg)

	tr, ok := client.HTTPClient().Transport.(*transport)
	if !ok {
		t.Fatal("transport is not the decorating transport")
	}
	pool, ok := tr.next.(*http.Transport)
	if !ok {
		t.Fatal("inner transport is not *http.Transport")
	}
	if pool.MaxIdleConns != 15 || pool.MaxConnsPerHost != 16 {
		t.Errorf("pool = %d/%d, want 15/16", pool.MaxIdleConns, pool.MaxConnsPerHost)
	}
	if client.HTTPClient().Timeout != 30*time.Second {
		t.Errorf("Timeout = %v", client.HTTPClient().Timeout)
	}
}

func TestParseRetryAfter(t *testing.T) {
	tests := []struct {
		value string
		want  time.Duration
	}{
		{"", 0},
		{"5", 5 * time.Second},
		{"garbage", 0},
	}
	for _, tt := range tests {
		h := http.Header{}
		if tt.value != "" {
			h.Set("Retry-After", tt.value)
		}
		if got := parseRetryAfter(h); got != tt.want {
			t.Errorf("parseRetryAfter(%q) = %v, want %v", tt.value, got, tt.want)
		}
	}
}
