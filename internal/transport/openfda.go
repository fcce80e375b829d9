// Package transport implements the single pooled HTTP client shared by every
// openFDA endpoint tool (spec §4.1). It owns retry/backoff, rate-limit
// awareness, and API-key injection so tool code stays a pure function over
// (transport, parameters).
package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/fdadevices/openfda-agent/internal/fdaerr"
)

const (
	baseURL           = "https://api.fda.gov/device/"
	connectTimeout    = 5 * time.Second
	readTimeout       = 30 * time.Second
	maxResponseBytes  = 10 << 20 // 10MiB: openFDA pages are capped at limit=1000 records
	baseBackoff       = time.Second
)

// Client is the shared, concurrency-safe openFDA HTTP client.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	maxRetries int
}

// NewClient builds a Client configured with the given API key (optional —
// absent means the lower unauthenticated rate limit applies) and the
// configured per-request timeout and retry ceiling.
func NewClient(apiKey string, timeoutSeconds, maxRetries int) *Client {
	if timeoutSeconds <= 0 {
		timeoutSeconds = int(readTimeout / time.Second)
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	dialer := &net.Dialer{Timeout: connectTimeout}
	transport := &http.Transport{
		DialContext:         dialer.DialContext,
		MaxIdleConns:        50,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}

	reqTimeout := time.Duration(timeoutSeconds) * time.Second

	return &Client{
		httpClient: &http.Client{
			Timeout:   reqTimeout,
			Transport: transport,
		},
		baseURL:    baseURL,
		apiKey:     apiKey,
		maxRetries: maxRetries,
	}
}

// NewClientWithBaseURL is NewClient with the dataset root overridden —
// exported only for tests that need to point the client at an httptest
// server instead of the live openFDA API.
func NewClientWithBaseURL(base, apiKey string, timeoutSeconds, maxRetries int) *Client {
	c := NewClient(apiKey, timeoutSeconds, maxRetries)
	c.baseURL = base
	return c
}

// Query describes one openFDA request: a resource name ("classification",
// "510k", "pma", "enforcement", "event", "udi", "registrationlisting"),
// a composed filter expression, and pagination.
type Query struct {
	Resource string
	Search   string // filter expression, e.g. `product_code:"FXX"`
	Count    string // aggregation field; mutually exclusive in practice with Search-as-listing
	Limit    int
	Skip     int
}

// Response is the decoded openFDA envelope.
type Response struct {
	Meta struct {
		LastUpdated string `json:"last_updated"`
		Results     struct {
			Total int `json:"total"`
			Skip  int `json:"skip"`
			Limit int `json:"limit"`
		} `json:"results"`
	} `json:"meta"`
	Results []map[string]any `json:"results"`
}

// Do issues one openFDA request, retrying per spec §4.1:
//   - 429: exponential backoff from 1s, doubling, ±25% jitter, up to 3
//     retries, honoring Retry-After when present.
//   - 5xx: same backoff, up to 3 retries.
//   - 4xx other than 429: no retry, fdaerr.KindClientRequest.
//   - timeouts/connection errors: one retry, then fdaerr.KindTransport.
func (c *Client) Do(ctx context.Context, q Query) (*Response, error) {
	req, err := c.buildRequest(ctx, q)
	if err != nil {
		return nil, fdaerr.Wrap(fdaerr.KindValidation, "build request", err)
	}

	var lastErr error
	transportRetries := 1

	for attempt := 0; ; attempt++ {
		resp, doErr := c.httpClient.Do(req.Clone(ctx))
		if doErr != nil {
			lastErr = doErr
			if attempt < transportRetries {
				log.Printf("[openFDA] transport error, retry %d/%d: %v", attempt+1, transportRetries, doErr)
				if !sleep(ctx, baseBackoff) {
					return nil, ctx.Err()
				}
				continue
			}
			return nil, fdaerr.Wrap(fdaerr.KindTransport, "request failed after retries", lastErr)
		}

		body, readErr := readCapped(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return nil, fdaerr.Wrap(fdaerr.KindTransport, "read response body", readErr)
		}

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			if attempt >= c.maxRetries {
				return nil, fdaerr.New(fdaerr.KindRateLimited, "rate limited after max retries")
			}
			wait := retryAfterOr(resp.Header.Get("Retry-After"), backoffFor(attempt))
			log.Printf("[openFDA] 429, retry %d/%d after %v", attempt+1, c.maxRetries, wait)
			if !sleep(ctx, wait) {
				return nil, ctx.Err()
			}
			continue

		case resp.StatusCode >= 500:
			if attempt >= c.maxRetries {
				return nil, fdaerr.New(fdaerr.KindTransport, fmt.Sprintf("server error %d after max retries", resp.StatusCode))
			}
			wait := backoffFor(attempt)
			log.Printf("[openFDA] %d, retry %d/%d after %v", resp.StatusCode, attempt+1, c.maxRetries, wait)
			if !sleep(ctx, wait) {
				return nil, ctx.Err()
			}
			continue

		case resp.StatusCode == http.StatusNotFound:
			// 404 with an empty result set is not an error (spec §4.2).
			return &Response{}, nil

		case resp.StatusCode >= 400:
			return nil, fdaerr.New(fdaerr.KindClientRequest, fmt.Sprintf("%d: %s", resp.StatusCode, string(body)))

		default:
			return decode(body)
		}
	}
}

func (c *Client) buildRequest(ctx context.Context, q Query) (*http.Request, error) {
	if q.Limit <= 0 || q.Limit > 1000 {
		q.Limit = min(max(q.Limit, 1), 1000)
	}

	values := url.Values{}
	if q.Search != "" {
		values.Set("search", q.Search)
	}
	if q.Count != "" {
		values.Set("count", q.Count)
	} else {
		values.Set("limit", strconv.Itoa(q.Limit))
		values.Set("skip", strconv.Itoa(q.Skip))
	}
	if c.apiKey != "" {
		values.Set("api_key", c.apiKey)
	}

	fullURL := c.baseURL + q.Resource + ".json?" + values.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, err
	}
	return req, nil
}

func decode(body []byte) (*Response, error) {
	var r Response
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, fdaerr.Wrap(fdaerr.KindTransport, "decode response", err)
	}
	return &r, nil
}

func readCapped(r io.Reader) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r, maxResponseBytes))
}

func backoffFor(attempt int) time.Duration {
	d := baseBackoff << attempt // 1s, 2s, 4s...
	jitter := 0.75 + rand.Float64()*0.5 // ±25%
	return time.Duration(float64(d) * jitter)
}

func retryAfterOr(header string, fallback time.Duration) time.Duration {
	if header == "" {
		return fallback
	}
	if secs, err := strconv.Atoi(header); err == nil {
		return time.Duration(secs) * time.Second
	}
	if when, err := http.ParseTime(header); err == nil {
		if d := time.Until(when); d > 0 {
			return d
		}
	}
	return fallback
}

func sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}
