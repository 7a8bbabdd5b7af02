package fhir

import (
	"fmt"
	"strconv"
	"strings"
)

// convertFunc transforms a single value during a recursive walk. It returns
// the replacement value and true when the value was handled and recursion
// should stop at this node.
type convertFunc func(value interface{}) (interface{}, bool, error)

// convertValues walks an arbitrarily nested structure of maps and slices,
// applying fn to every node. Handled nodes are replaced as-is; unhandled
// maps and slices are rebuilt with converted children so the input is never
// mutated.
func convertValues(value interface{}, fn convertFunc) (interface{}, error) {
	converted, done, err := fn(value)
	if err != nil {
		return nil, err
	}

	if done {
		return converted, nil
	}

	switch typed := value.(type) {
	case map[string]interface{}:
		result := make(map[string]interface{}, len(typed))

		for key, item := range typed {
			child, err := convertValues(item, fn)
			if err != nil {
				return nil, err
			}

			result[key] = child
		}

		return result, nil
	case []interface{}:
		result := make([]interface{}, 0, len(typed))

		for _, item := range typed {
			child, err := convertValues(item, fn)
			if err != nil {
				return nil, err
			}

			result = append(result, child)
		}

		return result, nil
	default:
		return value, nil
	}
}

// parsePath splits a dotted path like "name.0.given" into segments.
func parsePath(path string) []string {
	return strings.Split(path, ".")
}

// getByPath walks maps, slices, and nested entities along the parsed path
// segments. Numeric segments index into slices. The default is returned as
// soon as a segment cannot be resolved.
func getByPath(value interface{}, keys []string, defaultValue interface{}) interface{} {
	current := value

	for i := 0; i < len(keys); {
		key := keys[i]

		switch typed := current.(type) {
		case *Resource:
			current = typed.fields

			continue
		case *Reference:
			current = typed.fields

			continue
		case map[string]interface{}:
			next, ok := typed[key]
			if !ok {
				return defaultValue
			}

			current = next
			i++
		case []interface{}:
			index, err := strconv.Atoi(key)
			if err != nil || index < 0 || index >= len(typed) {
				return defaultValue
			}

			current = typed[index]
			i++
		default:
			return defaultValue
		}
	}

	if current == nil {
		return defaultValue
	}

	return current
}

// formatReference renders the canonical local reference string.
func formatReference(resourceType, id string) string {
	return fmt.Sprintf("%s/%s", resourceType, id)
}
