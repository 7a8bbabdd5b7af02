package fhir

import (
	"sync"
)

// resourceCache is the per-client store mapping (resourceType, id) to the
// materialized Resource. It is a pure lookup accelerator: unbounded, no
// eviction policy, cleared explicitly or never. A hit returns the cached
// instance itself, not a copy.
type resourceCache struct {
	mu        sync.RWMutex
	resources map[string]map[string]*Resource
}

func newResourceCache() *resourceCache {
	return &resourceCache{
		resources: make(map[string]map[string]*Resource),
	}
}

func (c *resourceCache) add(resource *Resource) {
	c.mu.Lock()
	defer c.mu.Unlock()

	byID, ok := c.resources[resource.ResourceType()]
	if !ok {
		byID = make(map[string]*Resource)
		c.resources[resource.ResourceType()] = byID
	}

	byID[resource.ID()] = resource
}

func (c *resourceCache) remove(resourceType, id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.resources[resourceType], id)
}

func (c *resourceCache) get(resourceType, id string) *Resource {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.resources[resourceType][id]
}

// clear drops the entries for the given resource types, or everything when
// none are given.
func (c *resourceCache) clear(resourceTypes ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(resourceTypes) == 0 {
		c.resources = make(map[string]map[string]*Resource)

		return
	}

	for _, resourceType := range resourceTypes {
		delete(c.resources, resourceType)
	}
}
