package fhir

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
)

// Params carries caller-supplied search parameter values. Values may be
// scalars (string, int, float, bool) or slices of scalars; scalars are
// coerced to one-element lists when merged into a SearchParams multimap.
type Params map[string]interface{}

// SearchParams is the accumulated multi-valued parameter mapping of a
// SearchSet: key to ordered value list.
type SearchParams map[string][]string

// Clone returns a deep copy. Refinement operations always work on a copy so
// prior SearchSet instances are never mutated.
func (p SearchParams) Clone() SearchParams {
	cloned := make(SearchParams, len(p))
	for key, values := range p {
		cloned[key] = append([]string(nil), values...)
	}

	return cloned
}

// Set replaces the value list for key.
func (p SearchParams) Set(key string, value interface{}) {
	p[key] = stringifyValues(value)
}

// Add appends the value(s) to the existing list for key.
func (p SearchParams) Add(key string, value interface{}) {
	p[key] = append(p[key], stringifyValues(value)...)
}

// Values converts the multimap into url.Values.
func (p SearchParams) Values() url.Values {
	values := make(url.Values, len(p))
	for key, list := range p {
		values[key] = append([]string(nil), list...)
	}

	return values
}

// Encode renders the parameters as a query string with deterministic
// (sorted) key order.
func (p SearchParams) Encode() string {
	return p.Values().Encode()
}

// stringifyValues coerces a scalar or slice value into a string list.
func stringifyValues(value interface{}) []string {
	switch typed := value.(type) {
	case []string:
		return append([]string(nil), typed...)
	case []interface{}:
		list := make([]string, 0, len(typed))
		for _, item := range typed {
			list = append(list, stringifyValue(item))
		}

		return list
	default:
		return []string{stringifyValue(value)}
	}
}

// stringifyValue renders a single scalar parameter value.
func stringifyValue(value interface{}) string {
	switch typed := value.(type) {
	case string:
		return typed
	case bool:
		return strconv.FormatBool(typed)
	case int:
		return strconv.Itoa(typed)
	case int64:
		return strconv.FormatInt(typed, 10)
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	case fmt.Stringer:
		return typed.String()
	default:
		return fmt.Sprint(typed)
	}
}

// sortedKeys returns the keys of a string set in sorted order, used for
// stable error messages and element lists.
func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	return keys
}
