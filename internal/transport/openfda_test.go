package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fdadevices/openfda-agent/internal/fdaerr"
)

func newTestClient(server *httptest.Server, maxRetries int) *Client {
	return NewClientWithBaseURL(server.URL+"/", "test-key", 5, maxRetries)
}

func TestClient_Do_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("api_key") != "test-key" {
			t.Errorf("api_key = %q, want test-key", r.URL.Query().Get("api_key"))
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"meta":    map[string]any{"results": map[string]any{"total": 1, "skip": 0, "limit": 1}},
			"results": []map[string]any{{"product_code": "FXX"}},
		})
	}))
	defer server.Close()

	c := newTestClient(server, 2)
	resp, err := c.Do(context.Background(), Query{Resource: "classification", Search: `product_code:FXX`, Limit: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Meta.Results.Total != 1 {
		t.Errorf("total = %d, want 1", resp.Meta.Results.Total)
	}
	if len(resp.Results) != 1 {
		t.Fatalf("results = %d, want 1", len(resp.Results))
	}
}

func TestClient_Do_404IsEmptyNotError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	c := newTestClient(server, 2)
	resp, err := c.Do(context.Background(), Query{Resource: "classification", Search: "device_name:nope"})
	if err != nil {
		t.Fatalf("404 should not be an error: %v", err)
	}
	if len(resp.Results) != 0 {
		t.Errorf("expected empty results on 404, got %d", len(resp.Results))
	}
}

func TestClient_Do_ClientErrorNoRetry(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("bad search syntax"))
	}))
	defer server.Close()

	c := newTestClient(server, 2)
	_, err := c.Do(context.Background(), Query{Resource: "classification", Search: "???"})
	if err == nil {
		t.Fatal("expected error for 400")
	}
	if kind, ok := fdaerr.Of(err); !ok || kind != fdaerr.KindClientRequest {
		t.Errorf("error kind = %v, want KindClientRequest", kind)
	}
	if calls != 1 {
		t.Errorf("4xx other than 429 must not retry, got %d calls", calls)
	}
}

func TestClient_Do_RetriesOn429ThenSucceeds(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 2 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"meta":    map[string]any{"results": map[string]any{"total": 0, "skip": 0, "limit": 0}},
			"results": []map[string]any{},
		})
	}))
	defer server.Close()

	c := newTestClient(server, 2)
	start := time.Now()
	_, err := c.Do(context.Background(), Query{Resource: "classification", Search: "device_name:x"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
	if time.Since(start) > 2*time.Second {
		t.Errorf("Retry-After: 0 should not incur real backoff delay")
	}
}

func TestClient_Do_RateLimitedAfterMaxRetries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "0")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	c := newTestClient(server, 1)
	_, err := c.Do(context.Background(), Query{Resource: "classification", Search: "device_name:x"})
	if kind, ok := fdaerr.Of(err); !ok || kind != fdaerr.KindRateLimited {
		t.Errorf("error kind = %v, want KindRateLimited", kind)
	}
}

func TestClient_Do_ContextCanceled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "5")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	c := newTestClient(server, 3)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Do(ctx, Query{Resource: "classification", Search: "device_name:x"})
	if err == nil {
		t.Fatal("expected context cancellation error")
	}
}
