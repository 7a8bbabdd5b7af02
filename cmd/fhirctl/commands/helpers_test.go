package commands

import (
	"testing"

	"github.com/fhirworks-io/fhir/pkg/fhir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSearchParams(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		pairs    []string
		expected fhir.Params
		wantErr  bool
	}{
		{name: "empty", pairs: nil, expected: fhir.Params{}},
		{
			name:     "single pair",
			pairs:    []string{"name=John"},
			expected: fhir.Params{"name": "John"},
		},
		{
			name:     "value containing an equals sign",
			pairs:    []string{"date=ge2023-01-01"},
			expected: fhir.Params{"date": "ge2023-01-01"},
		},
		{
			name:     "repeated key accumulates",
			pairs:    []string{"status=active", "status=draft", "status=retired"},
			expected: fhir.Params{"status": []string{"active", "draft", "retired"}},
		},
		{
			name:     "empty value is allowed",
			pairs:    []string{"name="},
			expected: fhir.Params{"name": ""},
		},
		{name: "missing separator", pairs: []string{"name"}, wantErr: true},
		{name: "empty key", pairs: []string{"=value"}, wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			params, err := parseSearchParams(tt.pairs)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidParamFormat)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expected, params)
		})
	}
}

func TestFormatTableValue(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "plain", formatTableValue("plain"))
	assert.Equal(t, "", formatTableValue(nil))
	assert.Equal(t, `["a","b"]`, formatTableValue([]interface{}{"a", "b"}))
	assert.Equal(t, `{"family":"Smith"}`, formatTableValue(map[string]interface{}{"family": "Smith"}))
}
