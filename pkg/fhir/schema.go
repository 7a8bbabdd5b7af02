package fhir

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Schema maps a resource type name to the set of its allowed top-level
// field names. A client carrying a schema rejects field access outside the
// allowed set; a nil schema disables the gate entirely.
type Schema map[string][]string

// identityKeys are always permitted on a resource regardless of schema.
var identityKeys = []string{"resourceType", "id", "meta", "extension"}

// referenceKeys are the allowed top-level fields of a reference document.
var referenceKeys = []string{"reference", "display"}

// LoadSchema reads a schema from a YAML or JSON file shaped as a mapping
// from resource type to field list.
func LoadSchema(path string) (Schema, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- schema path is operator supplied
	if err != nil {
		return nil, fmt.Errorf("reading schema file: %w", err)
	}

	var schema Schema

	err = yaml.Unmarshal(data, &schema)
	if err != nil {
		return nil, fmt.Errorf("parsing schema file %s: %w", path, err)
	}

	return schema, nil
}

// allowedResourceKeys computes the permitted key set for a resource of the
// given type: the schema-declared fields unioned with the identity keys.
// Returns nil (gate disabled) when the client has no schema.
func (c *Client) allowedResourceKeys(resourceType string) map[string]struct{} {
	if c.schema == nil {
		return nil
	}

	allowed := make(map[string]struct{}, len(c.schema[resourceType])+len(identityKeys))
	for _, key := range c.schema[resourceType] {
		allowed[key] = struct{}{}
	}

	for _, key := range identityKeys {
		allowed[key] = struct{}{}
	}

	return allowed
}

// allowedReferenceKeys computes the permitted key set for a reference
// document, or nil when the client has no schema.
func (c *Client) allowedReferenceKeys() map[string]struct{} {
	if c.schema == nil {
		return nil
	}

	allowed := make(map[string]struct{}, len(referenceKeys))
	for _, key := range referenceKeys {
		allowed[key] = struct{}{}
	}

	return allowed
}
