package fhir

import (
	"context"
	"fmt"
	"strings"
)

// Reference is a pointer entity: either a local pointer ("Type/id",
// resolvable against the owning client) or an external pointer (an opaque
// reference string, not resolvable).
type Reference struct {
	Entity
}

// newReference builds a Reference owned by client from a reference string
// plus optional extra fields such as a display text.
func newReference(client *Client, reference string, fields map[string]interface{}) (*Reference, error) {
	if reference == "" {
		return nil, ErrReferenceRequired
	}

	merged := copyFields(fields)
	merged["reference"] = reference

	ref := &Reference{
		Entity: Entity{
			client:  client,
			fields:  merged,
			allowed: client.allowedReferenceKeys(),
		},
	}

	err := ref.validateKeys(ref.Keys())
	if err != nil {
		return nil, err
	}

	return ref, nil
}

// Reference returns the raw reference string.
func (ref *Reference) Reference() string {
	reference, _ := ref.fields["reference"].(string)

	return reference
}

// IsLocal reports whether the reference points at a resource on the owning
// client's server, i.e. has the exact shape "{resourceType}/{id}".
func (ref *Reference) IsLocal() bool {
	parts := strings.Split(ref.Reference(), "/")

	return len(parts) == 2 && parts[0] != "" && parts[1] != ""
}

// ID returns the referenced resource id for local references, or an empty
// string for external ones.
func (ref *Reference) ID() string {
	if !ref.IsLocal() {
		return ""
	}

	return strings.Split(ref.Reference(), "/")[1]
}

// ResourceType returns the referenced resource type for local references,
// or an empty string for external ones.
func (ref *Reference) ResourceType() string {
	if !ref.IsLocal() {
		return ""
	}

	return strings.Split(ref.Reference(), "/")[0]
}

// ResolveOption adjusts reference resolution.
type ResolveOption func(*resolveOptions)

type resolveOptions struct {
	noCache bool
}

// WithoutCache forces a network fetch even when the referenced resource is
// already cached.
func WithoutCache() ResolveOption {
	return func(o *resolveOptions) {
		o.noCache = true
	}
}

// ToResource resolves the reference to a Resource. External references
// cannot be resolved. A cache hit returns the cached instance itself;
// otherwise the resource is fetched by id through the owning client and
// cached on the way in.
func (ref *Reference) ToResource(ctx context.Context, opts ...ResolveOption) (*Resource, error) {
	if !ref.IsLocal() {
		return nil, fmt.Errorf("%w: %s", ErrExternalReference, ref.Reference())
	}

	var options resolveOptions
	for _, opt := range opts {
		opt(&options)
	}

	cached := ref.client.cacheGet(ref.ResourceType(), ref.ID())
	if cached != nil && !options.noCache {
		return cached, nil
	}

	return ref.client.Resources(ref.ResourceType()).Get(ctx, ref.ID())
}

// ToReference derives a fresh Reference with the same reference string,
// merging any extra fields into it.
func (ref *Reference) ToReference(fields Params) (*Reference, error) {
	return ref.client.Reference("", "", ref.Reference(), fields)
}

// String implements fmt.Stringer.
func (ref *Reference) String() string {
	return fmt.Sprintf("<Reference %s>", ref.Reference())
}
