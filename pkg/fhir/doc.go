// Package fhir provides a client-side data-access layer for FHIR-style
// REST servers: resources are typed key/value documents identified by
// (resourceType, id), retrievable, searchable, and mutable through a
// JSON-over-HTTP API that returns paginated Bundle envelopes.
//
// # Overview
//
// The package defines the in-memory object model and query-construction
// engine that sits between raw HTTP calls and application code: an
// immutable chainable search builder (SearchSet), a resource/reference
// object model distinguishing materialized resources from pointers to
// resources (Resource, Reference, Entity), and a per-client resource cache
// that resolves references without re-fetching. A ready-to-use client is
// constructed by the fhirclient package, which wires configuration,
// transport, and authorization.
//
// Getting a client
//
//	import (
//	  "context"
//	  "log"
//
//	  "github.com/fhirworks-io/fhir/pkg/fhir"
//	  "github.com/fhirworks-io/fhir/pkg/fhirclient"
//	)
//
//	func example() {
//	  ctx := context.Background()
//	  cli, err := fhirclient.NewWithToken("https://fhir.example.com/r4", "token")
//	  if err != nil { log.Fatal(err) }
//
//	  patients, err := cli.Resources("Patient").
//	    Search(fhir.Params{"name": "John"}).
//	    Sort("-_lastUpdated").
//	    Limit(10).
//	    Fetch(ctx)
//	  if err != nil { log.Fatal(err) }
//	  _ = patients
//	}
//
// # Queries
//
// Every SearchSet refinement (Search, Limit, Page, Sort, Elements,
// Include, Has) returns a new SearchSet backed by a deep copy of the
// parameters; terminal operations (Fetch, FetchAll, Get, First, Count)
// issue the request. Fetched Bundle entries are materialized into
// Resource values, reference-shaped sub-documents become Reference
// values, and resources are registered in the client's cache when caching
// is enabled.
//
// # Errors
//
// Server and usage failures are represented by typed errors
// (NotFoundError, OperationOutcomeError, InvalidResponseError,
// InvalidFieldError) and sentinel errors; helpers such as IsNotFound and
// IsInvalidResponse make it easy to branch on common cases. No failure is
// retried or degraded silently at this layer.
//
// # Caching
//
// Two caches exist with different jobs: the identity-preserving resource
// cache (a pure lookup accelerator for reference resolution) and an
// optional transport-level response cache with pluggable backends
// (in-memory, NATS JetStream KV) configured through CacheConfig.
package fhir
