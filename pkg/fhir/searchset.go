package fhir

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// SearchSet is an immutable accumulator of search parameters for one
// resource type. Every refinement returns a new SearchSet backed by a deep
// copy of the parameters; no network state is held and requests happen only
// on the terminal operations (Fetch, FetchAll, Get, First, Count).
type SearchSet struct {
	client       *Client
	resourceType string
	params       SearchParams
}

// newSearchSet builds an empty SearchSet for resourceType.
func newSearchSet(client *Client, resourceType string) *SearchSet {
	return &SearchSet{
		client:       client,
		resourceType: resourceType,
		params:       SearchParams{},
	}
}

// Clone deep-copies the current parameters and merges the incoming ones:
// with override each key's value list is replaced, otherwise the values are
// appended. All other refinements are built on this primitive.
func (s *SearchSet) Clone(override bool, params Params) *SearchSet {
	cloned := s.params.Clone()

	for key, value := range params {
		if override {
			cloned.Set(key, value)
		} else {
			cloned.Add(key, value)
		}
	}

	return &SearchSet{
		client:       s.client,
		resourceType: s.resourceType,
		params:       cloned,
	}
}

// Search appends filter parameters.
func (s *SearchSet) Search(params Params) *SearchSet {
	return s.Clone(false, params)
}

// Limit sets the page size (_count).
func (s *SearchSet) Limit(limit int) *SearchSet {
	return s.Clone(true, Params{"_count": limit})
}

// Page sets the page number.
func (s *SearchSet) Page(page int) *SearchSet {
	return s.Clone(true, Params{"page": page})
}

// Sort sets the sort keys (_sort).
func (s *SearchSet) Sort(keys ...string) *SearchSet {
	return s.Clone(true, Params{"_sort": strings.Join(keys, ",")})
}

// Elements restricts the returned fields (_elements). The identity fields
// id and resourceType are always requested so results stay addressable.
func (s *SearchSet) Elements(attrs ...string) *SearchSet {
	return s.Clone(true, Params{"_elements": strings.Join(elementSet(attrs, "id", "resourceType"), ",")})
}

// ExcludeElements excludes the given fields (_elements with a "-" prefix).
// No identity fields are forced into an exclusion list.
func (s *SearchSet) ExcludeElements(attrs ...string) *SearchSet {
	return s.Clone(true, Params{"_elements": "-" + strings.Join(elementSet(attrs), ",")})
}

// IncludeOption adjusts an Include refinement.
type IncludeOption func(*includeOptions)

type includeOptions struct {
	target    string
	recursive bool
}

// WithTarget restricts an include to a target resource type.
func WithTarget(resourceType string) IncludeOption {
	return func(o *includeOptions) {
		o.target = resourceType
	}
}

// Recursive makes the include recursive (_include:recursive).
func Recursive() IncludeOption {
	return func(o *includeOptions) {
		o.recursive = true
	}
}

// Include adds an _include parameter pulling referenced resources of the
// given type/attribute into the result bundle.
func (s *SearchSet) Include(resourceType, attr string, opts ...IncludeOption) *SearchSet {
	var options includeOptions
	for _, opt := range opts {
		opt(&options)
	}

	key := "_include"
	if options.recursive {
		key += ":recursive"
	}

	value := resourceType + ":" + attr
	if options.target != "" {
		value += ":" + options.target
	}

	return s.Clone(false, Params{key: value})
}

// Has adds reverse-chained _has parameters. typeAttrPairs alternates
// resource types and attributes and must have an even length; each params
// entry becomes one chained "_has:type:attr:...:key=value" parameter.
func (s *SearchSet) Has(typeAttrPairs []string, params Params) (*SearchSet, error) {
	if len(typeAttrPairs)%2 != 0 {
		return nil, ErrEvenArgumentCount
	}

	segments := make([]string, 0, len(typeAttrPairs)/2)
	for i := 0; i < len(typeAttrPairs); i += 2 {
		segments = append(segments, "_has:"+typeAttrPairs[i]+":"+typeAttrPairs[i+1])
	}

	keyPart := strings.Join(segments, ":")

	result := s
	for key, value := range params {
		result = result.Clone(false, Params{keyPart + ":" + key: value})
	}

	return result, nil
}

// Revinclude is deliberately unsupported: reverse-included resources are
// not resolvable against the local object graph, so the operation fails
// explicitly instead of pretending to work.
func (s *SearchSet) Revinclude(resourceType, attr string) (*SearchSet, error) {
	return nil, ErrRevincludeNotSupported
}

// SearchOption adjusts a terminal fetch operation.
type SearchOption func(*searchOptions)

type searchOptions struct {
	skipCaching bool
}

// SkipCaching keeps fetched resources out of the client's resource cache.
func SkipCaching() SearchOption {
	return func(o *searchOptions) {
		o.skipCaching = true
	}
}

// Fetch issues a search request with the accumulated parameters and
// materializes the resulting Bundle. Entries whose resource type differs
// from the SearchSet's declared type (for example included resources) are
// filtered out.
func (s *SearchSet) Fetch(ctx context.Context, opts ...SearchOption) ([]*Resource, error) {
	var options searchOptions
	for _, opt := range opts {
		opt(&options)
	}

	data, err := s.client.do(ctx, http.MethodGet, s.resourceType, s.params, nil)
	if err != nil {
		return nil, fmt.Errorf("fetching %s search results: %w", s.resourceType, err)
	}

	bundleType, _ := data["resourceType"].(string)
	if bundleType != "Bundle" {
		return nil, &InvalidResponseError{Expected: "Bundle", Actual: bundleType}
	}

	entries, _ := data["entry"].([]interface{})
	resources := make([]*Resource, 0, len(entries))

	for _, entry := range entries {
		entryMap, ok := entry.(map[string]interface{})
		if !ok {
			return nil, &InvalidResponseError{Expected: "Bundle entry object", Actual: fmt.Sprintf("%T", entry)}
		}

		resourceData, ok := entryMap["resource"].(map[string]interface{})
		if !ok {
			return nil, &InvalidResponseError{Expected: "Bundle entry resource", Actual: fmt.Sprintf("%T", entryMap["resource"])}
		}

		resource, err := s.client.materialize(resourceData, options.skipCaching)
		if err != nil {
			return nil, err
		}

		if resource.ResourceType() == s.resourceType {
			resources = append(resources, resource)
		}
	}

	return resources, nil
}

// FetchAll walks pages 1, 2, 3, ... accumulating results until the first
// empty page. Progress is governed by the server's page size (or a caller
// supplied _count); pages are requested strictly sequentially.
func (s *SearchSet) FetchAll(ctx context.Context, opts ...SearchOption) ([]*Resource, error) {
	var resources []*Resource

	for page := 1; ; page++ {
		pageResources, err := s.Page(page).Fetch(ctx, opts...)
		if err != nil {
			return nil, err
		}

		if len(pageResources) == 0 {
			return resources, nil
		}

		resources = append(resources, pageResources...)
	}
}

// Get fetches a single resource by id through the direct "{type}/{id}"
// path, bypassing the Bundle envelope. A response whose resourceType does
// not match the SearchSet's declared type fails.
func (s *SearchSet) Get(ctx context.Context, id string, opts ...SearchOption) (*Resource, error) {
	var options searchOptions
	for _, opt := range opts {
		opt(&options)
	}

	data, err := s.client.do(ctx, http.MethodGet, formatReference(s.resourceType, id), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("getting %s/%s: %w", s.resourceType, id, err)
	}

	actualType, _ := data["resourceType"].(string)
	if actualType != s.resourceType {
		return nil, &InvalidResponseError{Expected: s.resourceType, Actual: actualType}
	}

	return s.client.materialize(data, options.skipCaching)
}

// First fetches at most one resource and returns it, or nil when the
// search matches nothing. Absence is not an error.
func (s *SearchSet) First(ctx context.Context) (*Resource, error) {
	resources, err := s.Limit(1).Fetch(ctx)
	if err != nil {
		return nil, err
	}

	if len(resources) == 0 {
		return nil, nil
	}

	return resources[0], nil
}

// Count asks the server for the total number of matches without
// materializing any resources or touching the cache.
func (s *SearchSet) Count(ctx context.Context) (int, error) {
	params := s.params.Clone()
	params.Set("_count", 1)
	params.Set("_totalMethod", "count")

	data, err := s.client.do(ctx, http.MethodGet, s.resourceType, params, nil)
	if err != nil {
		return 0, fmt.Errorf("counting %s: %w", s.resourceType, err)
	}

	total, ok := data["total"].(float64)
	if !ok {
		return 0, &InvalidResponseError{Expected: "Bundle with a numeric total", Actual: fmt.Sprintf("%T", data["total"])}
	}

	return int(total), nil
}

// Params returns a deep copy of the accumulated parameters.
func (s *SearchSet) Params() SearchParams {
	return s.params.Clone()
}

// ResourceType returns the resource type this SearchSet queries.
func (s *SearchSet) ResourceType() string {
	return s.resourceType
}

// String implements fmt.Stringer.
func (s *SearchSet) String() string {
	return fmt.Sprintf("<SearchSet %s?%s>", s.resourceType, s.params.Encode())
}

// elementSet unions the requested attributes with any forced ones and
// returns them deduplicated in sorted order.
func elementSet(attrs []string, forced ...string) []string {
	set := make(map[string]struct{}, len(attrs)+len(forced))
	for _, attr := range attrs {
		set[attr] = struct{}{}
	}

	for _, attr := range forced {
		set[attr] = struct{}{}
	}

	return sortedKeys(set)
}
