package fhir

import (
	"context"
	"net/http"
	"net/url"
)

// Request represents a single protocol request issued by the client core.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   []byte
}

// Response represents the server's reply to a Request.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// Transport performs a Request against the server. Implementations own
// connection pooling, retries, TLS, and authorization headers, and must map
// server failures to the typed errors of this package: a not-found status
// becomes *NotFoundError, any other non-2xx status becomes
// *OperationOutcomeError with the raw body attached. Transport-level
// failures (connection, timeout, context cancellation) are passed through.
type Transport interface {
	Do(ctx context.Context, req *Request) (*Response, error)
}

// Logger is the logging interface consumed by the client and transport.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}
