package fhir

import (
	"context"
	"encoding/json"
	"fmt"
)

// ReferencePredicate recognizes reference-shaped sub-documents during
// resource construction. The concrete protocol binding supplies it; the
// default matches the FHIR shape of a pointer document.
type ReferencePredicate func(value map[string]interface{}) bool

// DefaultReferencePredicate matches documents carrying a string "reference"
// field and nothing beyond pointer metadata, i.e. {reference, display}.
func DefaultReferencePredicate(value map[string]interface{}) bool {
	_, hasReference := value["reference"].(string)
	if !hasReference {
		return false
	}

	for key := range value {
		if key != "reference" && key != "display" {
			return false
		}
	}

	return true
}

// Client is the façade of the data-access layer: it owns the resource
// cache, issues requests through its Transport, and is the factory for
// Resource, Reference, and SearchSet instances. It is stateless across
// requests except for the cache and safe for concurrent use.
type Client struct {
	transport    Transport
	schema       Schema
	cacheEnabled bool
	cache        *resourceCache
	isReference  ReferencePredicate
	logger       Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithSchema enables schema-gated field access using the given allowed-key
// mapping.
func WithSchema(schema Schema) ClientOption {
	return func(c *Client) {
		c.schema = schema
	}
}

// WithResourceCaching enables the per-client resource cache. Caching is
// opt-in: without it no materialized resource is ever retained.
func WithResourceCaching() ClientOption {
	return func(c *Client) {
		c.cacheEnabled = true
	}
}

// WithReferencePredicate overrides the reference-shape predicate used
// during resource construction.
func WithReferencePredicate(predicate ReferencePredicate) ClientOption {
	return func(c *Client) {
		c.isReference = predicate
	}
}

// WithLogger sets the logger used for client-level debug logging.
func WithLogger(logger Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a Client issuing requests through the given Transport.
func NewClient(transport Transport, opts ...ClientOption) (*Client, error) {
	if transport == nil {
		return nil, ErrTransportRequired
	}

	client := &Client{
		transport:   transport,
		cache:       newResourceCache(),
		isReference: DefaultReferencePredicate,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

// Resource constructs a new resource of the given type from the given
// fields. Reference-shaped sub-documents are recursively converted into
// Reference instances and the fields pass the schema gate.
func (c *Client) Resource(resourceType string, fields Params) (*Resource, error) {
	if resourceType == "" {
		return nil, ErrResourceTypeRequired
	}

	return newResource(c, resourceType, fields)
}

// Resources returns an empty SearchSet for the given resource type.
func (c *Client) Resources(resourceType string) *SearchSet {
	return newSearchSet(c, resourceType)
}

// Reference constructs a reference either from an explicit reference
// string or from a resource type and id; extra fields (such as a display
// text) are merged in.
func (c *Client) Reference(resourceType, id, reference string, fields Params) (*Reference, error) {
	if reference == "" {
		if resourceType == "" || id == "" {
			return nil, ErrReferenceRequired
		}

		reference = formatReference(resourceType, id)
	}

	return newReference(c, reference, fields)
}

// ClearCache drops cached resources for the given resource types, or the
// whole cache when no types are given.
func (c *Client) ClearCache(resourceTypes ...string) {
	if !c.cacheEnabled {
		return
	}

	c.cache.clear(resourceTypes...)
}

// materialize converts a raw server document into a Resource and, unless
// skipped, registers it in the cache.
func (c *Client) materialize(data map[string]interface{}, skipCaching bool) (*Resource, error) {
	resourceType, _ := data["resourceType"].(string)

	resource, err := newResource(c, resourceType, data)
	if err != nil {
		return nil, fmt.Errorf("materializing %s: %w", resourceType, err)
	}

	if !skipCaching {
		c.cacheAdd(resource)
	}

	return resource, nil
}

// referenceConvert is the convertValues hook applied at resource
// construction: already-normalized entities stop the walk, and any
// sub-document matching the reference predicate becomes a Reference.
func (c *Client) referenceConvert(value interface{}) (interface{}, bool, error) {
	switch typed := value.(type) {
	case *Resource, *Reference:
		return typed, true, nil
	case map[string]interface{}:
		if !c.isReference(typed) {
			return nil, false, nil
		}

		reference, _ := typed["reference"].(string)

		converted, err := newReference(c, reference, typed)
		if err != nil {
			return nil, false, err
		}

		return converted, true, nil
	default:
		return nil, false, nil
	}
}

// cacheAdd registers a resource under its type and id. Resources without
// an id have no identity to cache under.
func (c *Client) cacheAdd(resource *Resource) {
	if !c.cacheEnabled || resource.ID() == "" {
		return
	}

	c.cache.add(resource)
}

// cacheRemove evicts a cache entry.
func (c *Client) cacheRemove(resourceType, id string) {
	if !c.cacheEnabled {
		return
	}

	c.cache.remove(resourceType, id)
}

// cacheGet looks up a cached resource, returning nil on a miss or when
// caching is disabled.
func (c *Client) cacheGet(resourceType, id string) *Resource {
	if !c.cacheEnabled {
		return nil
	}

	return c.cache.get(resourceType, id)
}

// do issues one request through the transport. _format=json is always
// injected into the parameters; a JSON body is marshalled when present and
// the response body is parsed when non-empty.
func (c *Client) do(ctx context.Context, method, path string, params SearchParams, body map[string]interface{}) (map[string]interface{}, error) {
	query := params.Clone()
	query.Set("_format", "json")

	var (
		encoded []byte
		err     error
	)

	if body != nil {
		encoded, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
	}

	if c.logger != nil {
		c.logger.Debug("API Request", map[string]interface{}{
			"method": method,
			"path":   path,
		})
	}

	resp, err := c.transport.Do(ctx, &Request{
		Method: method,
		Path:   path,
		Query:  query.Values(),
		Body:   encoded,
	})
	if err != nil {
		return nil, err
	}

	if len(resp.Body) == 0 {
		return nil, nil
	}

	var data map[string]interface{}

	err = json.Unmarshal(resp.Body, &data)
	if err != nil {
		return nil, fmt.Errorf("parsing response body: %w", err)
	}

	return data, nil
}
