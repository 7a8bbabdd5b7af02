package fhir_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/fhirworks-io/fhir/pkg/fhir"
	"github.com/stretchr/testify/assert"
)

func TestErrorPredicates(t *testing.T) {
	t.Parallel()

	notFound := &fhir.NotFoundError{Body: []byte(`{}`)}
	outcome := &fhir.OperationOutcomeError{StatusCode: 422, Body: []byte(`{}`)}
	invalidResponse := &fhir.InvalidResponseError{Expected: "Bundle", Actual: "Patient"}
	invalidField := &fhir.InvalidFieldError{Key: "custom", Allowed: []string{"id", "name"}}

	tests := []struct {
		name      string
		err       error
		predicate func(error) bool
	}{
		{name: "not found", err: notFound, predicate: fhir.IsNotFound},
		{name: "operation outcome", err: outcome, predicate: fhir.IsOperationOutcome},
		{name: "invalid response", err: invalidResponse, predicate: fhir.IsInvalidResponse},
		{name: "invalid field", err: invalidField, predicate: fhir.IsInvalidField},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.True(t, tt.predicate(tt.err))
			assert.True(t, tt.predicate(fmt.Errorf("wrapped: %w", tt.err)))
			assert.False(t, tt.predicate(errors.New("other")))
		})
	}
}

func TestErrorMessages(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "resource not found", (&fhir.NotFoundError{}).Error())
	assert.Equal(t, `resource not found: {"id":"x"}`, (&fhir.NotFoundError{Body: []byte(`{"id":"x"}`)}).Error())
	assert.Equal(t,
		"expected to receive Bundle but Patient received",
		(&fhir.InvalidResponseError{Expected: "Bundle", Actual: "Patient"}).Error(),
	)
	assert.Equal(t,
		`invalid field "custom", possible fields are: id, name`,
		(&fhir.InvalidFieldError{Key: "custom", Allowed: []string{"id", "name"}}).Error(),
	)
	assert.Contains(t,
		(&fhir.OperationOutcomeError{StatusCode: 422, Body: []byte(`{"issue":[]}`)}).Error(),
		"status 422",
	)
}
