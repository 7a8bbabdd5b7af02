package fhir_test

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"testing"

	"github.com/fhirworks-io/fhir/pkg/fhir"
	"github.com/stretchr/testify/require"
)

// fakeTransport records every request and answers with a configurable
// handler, so the object model can be tested without a server.
type fakeTransport struct {
	mu       sync.Mutex
	requests []*fhir.Request
	handler  func(req *fhir.Request) (*fhir.Response, error)
}

func (f *fakeTransport) Do(_ context.Context, req *fhir.Request) (*fhir.Response, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	if f.handler == nil {
		return jsonResponse(http.StatusOK, map[string]interface{}{}), nil
	}

	return f.handler(req)
}

func (f *fakeTransport) requestCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.requests)
}

func (f *fakeTransport) lastRequest() *fhir.Request {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.requests) == 0 {
		return nil
	}

	return f.requests[len(f.requests)-1]
}

// newTestClient creates a client backed by a fakeTransport.
func newTestClient(t *testing.T, handler func(req *fhir.Request) (*fhir.Response, error), opts ...fhir.ClientOption) (*fhir.Client, *fakeTransport) {
	t.Helper()

	transport := &fakeTransport{handler: handler}

	client, err := fhir.NewClient(transport, opts...)
	require.NoError(t, err)

	return client, transport
}

// jsonResponse encodes v as the response body.
func jsonResponse(statusCode int, v interface{}) *fhir.Response {
	body, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}

	return &fhir.Response{StatusCode: statusCode, Body: body}
}

// bundle wraps resource documents in a searchset Bundle envelope.
func bundle(resources ...map[string]interface{}) map[string]interface{} {
	entries := make([]interface{}, 0, len(resources))
	for _, resource := range resources {
		entries = append(entries, map[string]interface{}{"resource": resource})
	}

	return map[string]interface{}{
		"resourceType": "Bundle",
		"type":         "searchset",
		"entry":        entries,
	}
}

// patient builds a minimal Patient document.
func patient(id string) map[string]interface{} {
	return map[string]interface{}{
		"resourceType": "Patient",
		"id":           id,
	}
}
