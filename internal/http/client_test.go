package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fhirworks-io/fhir/internal/auth"
	"github.com/fhirworks-io/fhir/pkg/fhir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Do(t *testing.T) {
	t.Parallel()

	var gotRequest *http.Request

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotRequest = r.Clone(r.Context())
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"resourceType": "Patient", "id": "p1"})
	}))
	defer server.Close()

	client := NewClient(server.URL, auth.NewStaticTokenManager("test-token"))

	resp, err := client.Do(context.Background(), &fhir.Request{
		Method: http.MethodGet,
		Path:   "Patient/p1",
		Query:  url.Values{"_format": {"json"}},
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(resp.Body), `"id":"p1"`)

	require.NotNil(t, gotRequest)
	assert.Equal(t, "/Patient/p1", gotRequest.URL.Path)
	assert.Equal(t, "json", gotRequest.URL.Query().Get("_format"))
	assert.Equal(t, "Bearer test-token", gotRequest.Header.Get("Authorization"))
	assert.Equal(t, "application/json", gotRequest.Header.Get("Accept"))
	assert.Equal(t, "fhir-go-client/1.0", gotRequest.Header.Get("User-Agent"))
}

func TestClient_Do_NoTokenManager(t *testing.T) {
	t.Parallel()

	var authorization string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authorization = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(server.URL, nil)

	_, err := client.Do(context.Background(), &fhir.Request{Method: http.MethodGet, Path: "Patient"})
	require.NoError(t, err)
	assert.Empty(t, authorization)
}

func TestClient_Do_PostBody(t *testing.T) {
	t.Parallel()

	var (
		gotBody        []byte
		gotContentType string
	)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		gotContentType = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"resourceType":"Patient","id":"p1"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, nil)

	resp, err := client.Do(context.Background(), &fhir.Request{
		Method: http.MethodPost,
		Path:   "Patient",
		Body:   []byte(`{"resourceType":"Patient"}`),
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "application/json", gotContentType)
	assert.JSONEq(t, `{"resourceType":"Patient"}`, string(gotBody))
}

func TestClient_Do_ErrorMapping(t *testing.T) {
	t.Parallel()

	t.Run("not found", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"resourceType":"OperationOutcome"}`))
		}))
		defer server.Close()

		client := NewClient(server.URL, nil)

		resp, err := client.Do(context.Background(), &fhir.Request{Method: http.MethodGet, Path: "Patient/missing"})
		require.Error(t, err)
		assert.Nil(t, resp)
		assert.True(t, fhir.IsNotFound(err))
	})

	t.Run("operation outcome", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"resourceType":"OperationOutcome","issue":[]}`))
		}))
		defer server.Close()

		client := NewClient(server.URL, nil)

		_, err := client.Do(context.Background(), &fhir.Request{Method: http.MethodPost, Path: "Patient"})
		require.Error(t, err)
		assert.True(t, fhir.IsOperationOutcome(err))

		outcome := &fhir.OperationOutcomeError{}
		require.ErrorAs(t, err, &outcome)
		assert.Equal(t, http.StatusUnprocessableEntity, outcome.StatusCode)
	})
}

func TestClient_Do_ResponseCache(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`{"resourceType":"Patient","id":"p1"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, WithResponseCache(fhir.NewMemoryCache(10), time.Minute))

	req := &fhir.Request{Method: http.MethodGet, Path: "Patient/p1"}

	first, err := client.Do(context.Background(), req)
	require.NoError(t, err)

	second, err := client.Do(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, int32(1), hits.Load())
	assert.Equal(t, first.Body, second.Body)
}

func TestClient_Do_ResponseCache_SkipsWrites(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, WithResponseCache(fhir.NewMemoryCache(10), time.Minute))

	req := &fhir.Request{Method: http.MethodPost, Path: "Patient", Body: []byte(`{}`)}

	_, err := client.Do(context.Background(), req)
	require.NoError(t, err)

	_, err = client.Do(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, int32(2), hits.Load())
}

func TestClient_Do_ETagRevalidation(t *testing.T) {
	t.Parallel()

	var (
		hits        atomic.Int32
		ifNoneMatch string
	)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)

		ifNoneMatch = r.Header.Get("If-None-Match")
		if ifNoneMatch == `"v1"` {
			w.WriteHeader(http.StatusNotModified)

			return
		}

		w.Header().Set("ETag", `"v1"`)
		_, _ = w.Write([]byte(`{"resourceType":"Patient","id":"p1"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, nil, WithResponseCache(fhir.NewMemoryCache(10), time.Minute))

	req := &fhir.Request{Method: http.MethodGet, Path: "Patient/p1"}

	first, err := client.Do(context.Background(), req)
	require.NoError(t, err)

	// The entry carries an ETag, so the second call revalidates instead of
	// serving blindly.
	second, err := client.Do(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, int32(2), hits.Load())
	assert.Equal(t, `"v1"`, ifNoneMatch)
	assert.Equal(t, http.StatusOK, second.StatusCode)
	assert.Equal(t, first.Body, second.Body)
}

func TestClient_Options(t *testing.T) {
	t.Parallel()

	client := NewClient("https://fhir.example.com", nil,
		WithUserAgent("custom-agent/2.0"),
		WithRetryConfig(5, 2*time.Second, 20*time.Second),
		WithDebug(true),
	)

	assert.Equal(t, "custom-agent/2.0", client.userAgent)
	assert.Equal(t, 5, client.httpClient.RetryMax)
	assert.Equal(t, 2*time.Second, client.httpClient.RetryWaitMin)
	assert.True(t, client.debug)
}
