package fhir

import (
	"sort"
)

// Entity is the schema-aware structured document base shared by Resource
// and Reference. Field access passes through a schema gate: when the owning
// client carries a schema, every top-level key must be a member of the
// entity's allowed-key set, computed once at construction. Without a schema
// the gate is a no-op.
type Entity struct {
	client  *Client
	fields  map[string]interface{}
	allowed map[string]struct{}
}

// Get returns the value stored under key, or nil when absent.
func (e *Entity) Get(key string) (interface{}, error) {
	err := e.validateKey(key)
	if err != nil {
		return nil, err
	}

	return e.fields[key], nil
}

// Set stores value under key.
func (e *Entity) Set(key string, value interface{}) error {
	err := e.validateKey(key)
	if err != nil {
		return err
	}

	e.fields[key] = value

	return nil
}

// SetDefault stores defaultValue under key unless the key is already
// present, and returns the resulting value.
func (e *Entity) SetDefault(key string, defaultValue interface{}) (interface{}, error) {
	err := e.validateKey(key)
	if err != nil {
		return nil, err
	}

	existing, ok := e.fields[key]
	if ok {
		return existing, nil
	}

	e.fields[key] = defaultValue

	return defaultValue, nil
}

// GetByPath resolves a dotted path like "name.0.given" against the nested
// document, returning defaultValue when any segment cannot be resolved.
// Only the first segment is subject to the schema gate.
func (e *Entity) GetByPath(path string, defaultValue interface{}) (interface{}, error) {
	keys := parsePath(path)

	err := e.validateKey(keys[0])
	if err != nil {
		return nil, err
	}

	return getByPath(e.fields, keys, defaultValue), nil
}

// Keys returns the entity's top-level field names in sorted order.
func (e *Entity) Keys() []string {
	keys := make([]string, 0, len(e.fields))
	for key := range e.fields {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	return keys
}

// Serialize returns the entity as a plain nested document. Every nested
// Resource is replaced by its derived reference's serialized form and every
// nested Reference by its own serialized form, so relations are written as
// pointers rather than inlined resource graphs.
func (e *Entity) Serialize() (map[string]interface{}, error) {
	converted, err := convertValues(copyFields(e.fields), serializeValue)
	if err != nil {
		return nil, err
	}

	result, ok := converted.(map[string]interface{})
	if !ok {
		// convertValues preserves the container shape, so this is unreachable
		// for a map input.
		return nil, errUnexpectedShape
	}

	return result, nil
}

// serializeValue is the convertValues hook used by Serialize.
func serializeValue(item interface{}) (interface{}, bool, error) {
	switch typed := item.(type) {
	case *Resource:
		reference, err := typed.ToReference(nil)
		if err != nil {
			return nil, false, err
		}

		serialized, err := reference.Serialize()
		if err != nil {
			return nil, false, err
		}

		return serialized, true, nil
	case *Reference:
		serialized, err := typed.Serialize()
		if err != nil {
			return nil, false, err
		}

		return serialized, true, nil
	default:
		return nil, false, nil
	}
}

// validateKeys applies the schema gate to a set of keys.
func (e *Entity) validateKeys(keys []string) error {
	if e.allowed == nil {
		return nil
	}

	for _, key := range keys {
		_, ok := e.allowed[key]
		if !ok {
			return &InvalidFieldError{Key: key, Allowed: sortedKeys(e.allowed)}
		}
	}

	return nil
}

// validateKey applies the schema gate to a single key.
func (e *Entity) validateKey(key string) error {
	return e.validateKeys([]string{key})
}

// copyFields makes a shallow copy of a field map so callers never observe
// mutation of the original.
func copyFields(fields map[string]interface{}) map[string]interface{} {
	copied := make(map[string]interface{}, len(fields))
	for key, value := range fields {
		copied[key] = value
	}

	return copied
}
