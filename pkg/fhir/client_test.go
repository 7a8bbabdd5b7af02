package fhir_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/fhirworks-io/fhir/pkg/fhir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient(t *testing.T) {
	t.Parallel()

	t.Run("transport is required", func(t *testing.T) {
		t.Parallel()

		client, err := fhir.NewClient(nil)
		require.ErrorIs(t, err, fhir.ErrTransportRequired)
		assert.Nil(t, client)
	})

	t.Run("creates a client", func(t *testing.T) {
		t.Parallel()

		client, err := fhir.NewClient(&fakeTransport{})
		require.NoError(t, err)
		assert.NotNil(t, client)
	})
}

func TestClient_Resource(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t, nil)

	t.Run("resource type is required", func(t *testing.T) {
		t.Parallel()

		_, err := client.Resource("", nil)
		require.ErrorIs(t, err, fhir.ErrResourceTypeRequired)
	})

	t.Run("reference shaped sub-documents become references", func(t *testing.T) {
		t.Parallel()

		resource, err := client.Resource("Observation", fhir.Params{
			"subject": map[string]interface{}{
				"reference": "Patient/p1",
				"display":   "John Smith",
			},
		})
		require.NoError(t, err)

		subject, err := resource.Get("subject")
		require.NoError(t, err)

		ref, ok := subject.(*fhir.Reference)
		require.True(t, ok)
		assert.Equal(t, "Patient/p1", ref.Reference())
	})

	t.Run("references nested in lists are converted", func(t *testing.T) {
		t.Parallel()

		resource, err := client.Resource("CareTeam", fhir.Params{
			"participant": []interface{}{
				map[string]interface{}{
					"member": map[string]interface{}{"reference": "Practitioner/d1"},
				},
			},
		})
		require.NoError(t, err)

		member, err := resource.GetByPath("participant.0.member", nil)
		require.NoError(t, err)

		ref, ok := member.(*fhir.Reference)
		require.True(t, ok)
		assert.Equal(t, "Practitioner/d1", ref.Reference())
	})

	t.Run("non-reference maps stay plain maps", func(t *testing.T) {
		t.Parallel()

		resource, err := client.Resource("Observation", fhir.Params{
			"code": map[string]interface{}{
				"reference": "not a pointer",
				"coding":    []interface{}{},
			},
		})
		require.NoError(t, err)

		code, err := resource.Get("code")
		require.NoError(t, err)
		assert.IsType(t, map[string]interface{}{}, code)
	})

	t.Run("existing entities pass through untouched", func(t *testing.T) {
		t.Parallel()

		subject, err := client.Reference("", "", "Patient/p1", nil)
		require.NoError(t, err)

		resource, err := client.Resource("Observation", fhir.Params{"subject": subject})
		require.NoError(t, err)

		value, err := resource.Get("subject")
		require.NoError(t, err)
		assert.Same(t, subject, value)
	})
}

func TestClient_WithReferencePredicate(t *testing.T) {
	t.Parallel()

	// A looser predicate: any map carrying a reference string counts as a
	// pointer document, extra keys and all.
	client, _ := newTestClient(t, nil, fhir.WithReferencePredicate(func(value map[string]interface{}) bool {
		_, ok := value["reference"].(string)

		return ok
	}))

	resource, err := client.Resource("Observation", fhir.Params{
		"subject": map[string]interface{}{
			"reference": "Patient/p1",
			"type":      "Patient",
		},
	})
	require.NoError(t, err)

	subject, err := resource.Get("subject")
	require.NoError(t, err)
	assert.IsType(t, &fhir.Reference{}, subject)
}

func TestClient_ClearCache(t *testing.T) {
	t.Parallel()

	newCachedClient := func(t *testing.T) (*fhir.Client, *fakeTransport) {
		t.Helper()

		client, transport := newTestClient(t, func(req *fhir.Request) (*fhir.Response, error) {
			resourceType := req.Path[:len(req.Path)-3]

			return jsonResponse(http.StatusOK, map[string]interface{}{
				"resourceType": resourceType,
				"id":           req.Path[len(req.Path)-2:],
			}), nil
		}, fhir.WithResourceCaching())

		_, err := client.Resources("Patient").Get(context.Background(), "p1")
		require.NoError(t, err)

		_, err = client.Resources("Practitioner").Get(context.Background(), "d1")
		require.NoError(t, err)

		return client, transport
	}

	resolve := func(t *testing.T, client *fhir.Client, resourceType, id string) {
		t.Helper()

		ref, err := client.Reference(resourceType, id, "", nil)
		require.NoError(t, err)

		_, err = ref.ToResource(context.Background())
		require.NoError(t, err)
	}

	t.Run("clearing one type leaves the others cached", func(t *testing.T) {
		t.Parallel()

		client, transport := newCachedClient(t)
		require.Equal(t, 2, transport.requestCount())

		client.ClearCache("Patient")

		resolve(t, client, "Patient", "p1")
		assert.Equal(t, 3, transport.requestCount())

		resolve(t, client, "Practitioner", "d1")
		assert.Equal(t, 3, transport.requestCount())
	})

	t.Run("clearing without arguments drops everything", func(t *testing.T) {
		t.Parallel()

		client, transport := newCachedClient(t)
		require.Equal(t, 2, transport.requestCount())

		client.ClearCache()

		resolve(t, client, "Patient", "p1")
		resolve(t, client, "Practitioner", "d1")
		assert.Equal(t, 4, transport.requestCount())
	})
}

func TestClient_FormatInjection(t *testing.T) {
	t.Parallel()

	client, transport := newTestClient(t, func(req *fhir.Request) (*fhir.Response, error) {
		return jsonResponse(http.StatusOK, bundle()), nil
	})

	_, err := client.Resources("Patient").Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "json", transport.lastRequest().Query.Get("_format"))
}
