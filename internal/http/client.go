// Package http provides the concrete Transport implementation: retryable
// HTTP with bearer authorization, logging hooks, and optional GET response
// caching with ETag revalidation.
package http

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/fhirworks-io/fhir/internal/auth"
	"github.com/fhirworks-io/fhir/internal/constants"
	"github.com/fhirworks-io/fhir/pkg/fhir"
	"github.com/hashicorp/go-retryablehttp"
)

// Client is an HTTP transport for a FHIR-style server. It implements
// fhir.Transport.
type Client struct {
	baseURL       string
	httpClient    *retryablehttp.Client
	tokenManager  auth.TokenManager
	logger        fhir.Logger
	debug         bool
	userAgent     string
	responseCache fhir.Cache
	cacheTTL      time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger for request/response logging.
func WithLogger(logger fhir.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithDebug enables verbose request/response logging.
func WithDebug(debug bool) Option {
	return func(c *Client) {
		c.debug = debug
	}
}

// WithUserAgent overrides the default User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// WithRetryConfig tunes retry behavior for transient failures.
func WithRetryConfig(retryMax int, retryWaitMin, retryWaitMax time.Duration) Option {
	return func(c *Client) {
		c.httpClient.RetryMax = retryMax
		c.httpClient.RetryWaitMin = retryWaitMin
		c.httpClient.RetryWaitMax = retryWaitMax
	}
}

// WithResponseCache caches successful GET responses in the given backend
// for ttl, revalidating stale entries with If-None-Match when the server
// supplied an ETag.
func WithResponseCache(cache fhir.Cache, ttl time.Duration) Option {
	return func(c *Client) {
		c.responseCache = cache
		c.cacheTTL = ttl
	}
}

// NewClient creates a transport for the given base URL. tokenManager may be
// nil for servers that require no authorization.
func NewClient(baseURL string, tokenManager auth.TokenManager, opts ...Option) *Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = constants.DefaultRetryMax
	retryClient.RetryWaitMin = constants.DefaultRetryWaitMin
	retryClient.RetryWaitMax = constants.DefaultRetryWaitMax
	retryClient.HTTPClient.Timeout = constants.DefaultHTTPTimeout
	retryClient.Logger = nil

	client := &Client{
		baseURL:      baseURL,
		httpClient:   retryClient,
		tokenManager: tokenManager,
		userAgent:    "fhir-go-client/1.0",
		cacheTTL:     constants.DefaultCacheTTL,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// Do implements fhir.Transport.
func (c *Client) Do(ctx context.Context, req *fhir.Request) (*fhir.Response, error) {
	requestURL := c.baseURL + "/" + req.Path
	if len(req.Query) > 0 {
		requestURL += "?" + req.Query.Encode()
	}

	var cached *fhir.CacheEntry
	if c.cacheable(req) {
		entry, err := c.responseCache.Get(ctx, cacheKey(req.Method, requestURL))
		if err == nil {
			if entry.ETag == "" {
				c.logDebug("response cache hit", req)

				return &fhir.Response{StatusCode: http.StatusOK, Body: entry.Data}, nil
			}

			// Entry carries an ETag: revalidate instead of serving blindly.
			cached = entry
		}
	}

	httpReq, err := c.buildRequest(ctx, req, requestURL, cached)
	if err != nil {
		return nil, err
	}

	c.logDebug("API Request", req)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}

	defer func() {
		closeErr := httpResp.Body.Close()
		if closeErr != nil && c.logger != nil {
			c.logger.Warn("failed to close response body", map[string]interface{}{"error": closeErr.Error()})
		}
	}()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if httpResp.StatusCode == http.StatusNotModified && cached != nil {
		c.logDebug("response revalidated", req)

		return &fhir.Response{StatusCode: http.StatusOK, Headers: httpResp.Header, Body: cached.Data}, nil
	}

	resp := &fhir.Response{
		StatusCode: httpResp.StatusCode,
		Headers:    httpResp.Header,
		Body:       body,
	}

	err = c.checkStatus(resp)
	if err != nil {
		return nil, err
	}

	if c.cacheable(req) {
		_ = c.responseCache.Set(ctx, cacheKey(req.Method, requestURL), &fhir.CacheEntry{
			Data:      body,
			ExpiresAt: time.Now().Add(c.cacheTTL),
			ETag:      httpResp.Header.Get("ETag"),
		})
	}

	return resp, nil
}

// buildRequest assembles the outgoing HTTP request with auth and
// conditional headers.
func (c *Client) buildRequest(ctx context.Context, req *fhir.Request, requestURL string, cached *fhir.CacheEntry) (*retryablehttp.Request, error) {
	var bodyReader io.Reader
	if len(req.Body) > 0 {
		bodyReader = bytes.NewReader(req.Body)
	}

	httpReq, err := retryablehttp.NewRequestWithContext(ctx, req.Method, requestURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", c.userAgent)

	if len(req.Body) > 0 {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	if cached != nil && cached.ETag != "" {
		httpReq.Header.Set("If-None-Match", cached.ETag)
	}

	if c.tokenManager != nil {
		token, err := c.tokenManager.GetToken(ctx)
		if err != nil {
			return nil, fmt.Errorf("getting token: %w", err)
		}

		if token != "" {
			httpReq.Header.Set("Authorization", "Bearer "+token)
		}
	}

	return httpReq, nil
}

// checkStatus maps server failure statuses to the typed errors of the fhir
// package.
func (c *Client) checkStatus(resp *fhir.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	if resp.StatusCode == http.StatusNotFound {
		return &fhir.NotFoundError{Body: resp.Body}
	}

	return &fhir.OperationOutcomeError{StatusCode: resp.StatusCode, Body: resp.Body}
}

// cacheable reports whether a request participates in response caching.
func (c *Client) cacheable(req *fhir.Request) bool {
	return c.responseCache != nil && req.Method == http.MethodGet
}

// logDebug emits a debug log line when debug logging is enabled.
func (c *Client) logDebug(msg string, req *fhir.Request) {
	if !c.debug || c.logger == nil {
		return
	}

	c.logger.Debug(msg, map[string]interface{}{
		"method": req.Method,
		"path":   req.Path,
	})
}

// cacheKey builds the response cache key for a request.
func cacheKey(method, requestURL string) string {
	return method + " " + requestURL
}
