package fhir

import (
	"context"
	"fmt"
	"net/http"
)

// Resource is a materialized entity with identity and persistence
// operations. The resource type is fixed at construction; the id is
// assigned by the server on the first save.
type Resource struct {
	Entity

	resourceType string
}

// newResource builds a Resource owned by client. Every field value is
// recursively walked and any sub-document matching the client's reference
// predicate is replaced by a constructed *Reference. Entities already part
// of the model are left as-is.
func newResource(client *Client, resourceType string, fields map[string]interface{}) (*Resource, error) {
	if resourceType == "" {
		return nil, ErrResourceTypeRequired
	}

	merged := copyFields(fields)
	merged["resourceType"] = resourceType

	converted, err := convertValues(merged, client.referenceConvert)
	if err != nil {
		return nil, err
	}

	normalized, ok := converted.(map[string]interface{})
	if !ok {
		return nil, errUnexpectedShape
	}

	resource := &Resource{
		Entity: Entity{
			client:  client,
			fields:  normalized,
			allowed: client.allowedResourceKeys(resourceType),
		},
		resourceType: resourceType,
	}

	err = resource.validateKeys(resource.Keys())
	if err != nil {
		return nil, err
	}

	return resource, nil
}

// Set stores value under key. The resourceType field is immutable after
// construction.
func (r *Resource) Set(key string, value interface{}) error {
	if key == "resourceType" {
		return ErrResourceTypeImmutable
	}

	return r.Entity.Set(key, value)
}

// ID returns the resource id, or an empty string while unsaved.
func (r *Resource) ID() string {
	id, _ := r.fields["id"].(string)

	return id
}

// ResourceType returns the immutable resource type.
func (r *Resource) ResourceType() string {
	return r.resourceType
}

// Reference returns the derived reference string "{resourceType}/{id}", or
// an empty string while the resource has no id.
func (r *Resource) Reference() string {
	if r.ID() == "" {
		return ""
	}

	return formatReference(r.resourceType, r.ID())
}

// Equal reports whether both resources produce the same non-empty
// reference string. Unsaved resources have no defined identity and are
// never equal.
func (r *Resource) Equal(other *Resource) bool {
	if other == nil || r.Reference() == "" {
		return false
	}

	return r.Reference() == other.Reference()
}

// Save persists the resource: a create when it has no id, a full replace
// otherwise. On success the id and meta fields are overwritten from the
// server response and the resource is registered in the client's cache.
func (r *Resource) Save(ctx context.Context) error {
	method := http.MethodPost
	if r.ID() != "" {
		method = http.MethodPut
	}

	body, err := r.Serialize()
	if err != nil {
		return fmt.Errorf("serializing %s: %w", r.resourceType, err)
	}

	data, err := r.client.do(ctx, method, r.path(), nil, body)
	if err != nil {
		return fmt.Errorf("saving %s: %w", r.resourceType, err)
	}

	meta, ok := data["meta"]
	if !ok {
		meta = map[string]interface{}{}
	}

	r.fields["meta"] = meta
	r.fields["id"], _ = data["id"].(string)

	r.client.cacheAdd(r)

	return nil
}

// Delete removes the resource on the server. The cache entry is evicted
// before the call is issued, so a concurrent lookup never returns a
// resource whose deletion is in flight from this client's perspective.
// Deleting an unsaved resource is a precondition violation.
func (r *Resource) Delete(ctx context.Context) error {
	if r.ID() == "" {
		return ErrDeleteWithoutID
	}

	r.client.cacheRemove(r.resourceType, r.ID())

	_, err := r.client.do(ctx, http.MethodDelete, r.path(), nil, nil)
	if err != nil {
		return fmt.Errorf("deleting %s: %w", r.path(), err)
	}

	return nil
}

// ToReference derives a Reference pointing at this resource, merging any
// extra fields (for example a display text) into it. A reference to an
// unsaved resource is meaningless and fails.
func (r *Resource) ToReference(fields Params) (*Reference, error) {
	if r.Reference() == "" {
		return nil, ErrUnsavedResource
	}

	return r.client.Reference("", "", r.Reference(), fields)
}

// String implements fmt.Stringer.
func (r *Resource) String() string {
	return fmt.Sprintf("<Resource %s>", r.path())
}

// path returns the request path for this resource: "{type}/{id}" when the
// id is known, the bare type otherwise.
func (r *Resource) path() string {
	if r.ID() != "" {
		return formatReference(r.resourceType, r.ID())
	}

	return r.resourceType
}
