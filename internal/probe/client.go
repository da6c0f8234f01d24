package probe

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// maxResponseBodySize bounds fetched bodies. Vendored charting bundles run
// to several megabytes and hash probes need the whole body, so the limit
// is larger than a typical health-check client would use.
const maxResponseBodySize = 8 << 20 // 8MB

// connection pooling limits to prevent resource exhaustion when checking many targets
const (
	defaultMaxIdleConns        = 100
	defaultMaxIdleConnsPerHost = 10
	defaultMaxConnsPerHost     = 10
	defaultIdleConnTimeout     = 60 * time.Second // conservative: matches common CDN defaults
)

// Response holds the result of an HTTP request made by [Client].
//
// Response captures all relevant information from an HTTP request including
// the body (limited to 8MB), status code, latency, and any error that occurred.
type Response struct {
	// Body contains the HTTP response body, limited to 8MB.
	Body []byte

	// StatusCode is the HTTP status code (e.g., 200, 404, 500).
	// Zero if the request failed before receiving a response.
	StatusCode int

	// Latency is the total time taken for the request.
	Latency time.Duration

	// Error contains any error that occurred during the request.
	// nil indicates the request completed (though status may indicate an error).
	Error error
}

// Client is an HTTP client wrapper for fetching deployed-site targets.
//
// Client uses per-request timeouts via context rather than a global
// timeout, allowing different targets to have different timeout
// configurations. An optional token-bucket limiter caps the outbound
// request rate across all workers so a verification pass never hammers
// the hosting provider.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a new checking [Client].
//
// requestRate caps outbound requests per second across all concurrent
// checks; zero or negative disables the limit. The burst is sized to the
// rate so a full immediate pass smooths out rather than stalling.
//
// The client is configured with connection pooling limits to prevent
// resource exhaustion when checking many targets. Timeouts are applied
// per-request via the context parameter in [Client.Fetch], not as a global
// client timeout.
func NewClient(requestRate float64) *Client {
	var limiter *rate.Limiter
	if requestRate > 0 {
		burst := int(requestRate)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(requestRate), burst)
	}
	return &Client{
		httpClient: &http.Client{
			// no default timeout - we use per-request timeouts via context
			Transport: &http.Transport{
				MaxIdleConns:        defaultMaxIdleConns,
				MaxIdleConnsPerHost: defaultMaxIdleConnsPerHost,
				MaxConnsPerHost:     defaultMaxConnsPerHost,
				IdleConnTimeout:     defaultIdleConnTimeout,
				DisableKeepAlives:   false, // explicitly enable connection reuse
			},
		},
		limiter: limiter,
	}
}

// Fetch performs an HTTP request and returns a structured [Response].
//
// When a rate limit is configured, Fetch first waits for a token; the wait
// respects ctx but not the per-request timeout, so a briefly throttled
// check is delayed rather than failed. If method is empty, GET is used.
// Response bodies are limited to 8MB.
//
// Fetch always returns a Response; errors are captured in the Error field
// rather than returned separately. This simplifies handling in the scheduler.
func (c *Client) Fetch(ctx context.Context, method, url string, headers map[string]string, timeout time.Duration) Response {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return Response{Error: fmt.Errorf("rate limit wait: %w", err)}
		}
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()

	// default to GET if method is empty
	if method == "" {
		method = http.MethodGet
	}

	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return Response{
			Latency: time.Since(start),
			Error:   fmt.Errorf("failed to create request: %w", err),
		}
	}

	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Response{
			Latency: time.Since(start),
			Error:   fmt.Errorf("request failed: %w", err),
		}
	}
	defer func() { _ = resp.Body.Close() }()

	// read body with size limit
	limitedReader := io.LimitReader(resp.Body, maxResponseBodySize)
	body, err := io.ReadAll(limitedReader)
	if err != nil {
		return Response{
			StatusCode: resp.StatusCode,
			Latency:    time.Since(start),
			Error:      fmt.Errorf("failed to read response body: %w", err),
		}
	}

	return Response{
		Body:       body,
		StatusCode: resp.StatusCode,
		Latency:    time.Since(start),
		Error:      nil,
	}
}

// Close closes all idle connections in the client's connection pool.
//
// This should be called when the client is no longer needed to release
// resources immediately rather than waiting for the idle connection timeout.
// Safe to call multiple times. After Close, the client remains usable but
// new connections will be established as needed.
func (c *Client) Close() {
	if c == nil || c.httpClient == nil {
		return
	}
	if transport, ok := c.httpClient.Transport.(*http.Transport); ok {
		transport.CloseIdleConnections()
	}
}
