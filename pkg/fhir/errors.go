package fhir

import (
	"errors"
	"fmt"
	"strings"
)

// Static errors for err113 compliance.
var (
	ErrResourceTypeRequired   = errors.New("resource type is required")
	ErrResourceTypeImmutable  = errors.New("resourceType cannot be changed after construction; build a new resource via Client.Resource")
	ErrReferenceRequired      = errors.New("either a reference string or a resource type and id are required")
	ErrEvenArgumentCount      = errors.New("Has requires an even number of type/attribute arguments, for example: Has([]string{\"Observation\", \"patient\"}, fhir.Params{\"user\": \"id\"})")
	ErrRevincludeNotSupported = errors.New("revinclude is not supported: reverse-included resources cannot be resolved against the local object graph")
	ErrExternalReference      = errors.New("cannot resolve an external reference to a resource")
	ErrUnsavedResource        = errors.New("cannot build a reference to an unsaved resource without an id")
	ErrDeleteWithoutID        = errors.New("cannot delete a resource without an id")
	ErrTransportRequired      = errors.New("transport is required")

	errUnexpectedShape = errors.New("serialized document has an unexpected shape")
)

// NotFoundError indicates the server reported a not-found status for a
// requested resource.
type NotFoundError struct {
	Body []byte
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	if len(e.Body) == 0 {
		return "resource not found"
	}

	return fmt.Sprintf("resource not found: %s", e.Body)
}

// OperationOutcomeError carries the raw response body of any non-2xx,
// non-404 server response for diagnostics.
type OperationOutcomeError struct {
	StatusCode int
	Body       []byte
}

// Error implements the error interface.
func (e *OperationOutcomeError) Error() string {
	return fmt.Sprintf("operation outcome (status %d): %s", e.StatusCode, e.Body)
}

// InvalidResponseError indicates a response document whose declared type
// does not match what the caller expected.
type InvalidResponseError struct {
	Expected string
	Actual   string
}

// Error implements the error interface.
func (e *InvalidResponseError) Error() string {
	return fmt.Sprintf("expected to receive %s but %s received", e.Expected, e.Actual)
}

// InvalidFieldError indicates a schema violation on entity field access. It
// names the offending key and the permitted set.
type InvalidFieldError struct {
	Key     string
	Allowed []string
}

// Error implements the error interface.
func (e *InvalidFieldError) Error() string {
	return fmt.Sprintf("invalid field %q, possible fields are: %s", e.Key, strings.Join(e.Allowed, ", "))
}

// IsNotFound checks if the error is a server not-found error.
func IsNotFound(err error) bool {
	notFound := &NotFoundError{}

	return errors.As(err, &notFound)
}

// IsOperationOutcome checks if the error carries a server operation outcome.
func IsOperationOutcome(err error) bool {
	outcome := &OperationOutcomeError{}

	return errors.As(err, &outcome)
}

// IsInvalidResponse checks if the error is a response-shape mismatch.
func IsInvalidResponse(err error) bool {
	invalid := &InvalidResponseError{}

	return errors.As(err, &invalid)
}

// IsInvalidField checks if the error is a schema violation on field access.
func IsInvalidField(err error) bool {
	invalid := &InvalidFieldError{}

	return errors.As(err, &invalid)
}
