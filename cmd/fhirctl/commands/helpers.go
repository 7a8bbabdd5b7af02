package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fhirworks-io/fhir/internal/constants"
	"github.com/fhirworks-io/fhir/pkg/fhir"
	"github.com/fhirworks-io/fhir/pkg/fhirclient"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Output formats.
const (
	OutputFormatJSON = "json"
	OutputFormatYAML = "yaml"
)

// Common static errors used throughout the commands package.
var (
	ErrServerRequired       = errors.New("server endpoint is required (use --server, FHIRCTL_SERVER, or 'fhirctl login')")
	ErrResourceTypeRequired = errors.New("resource type is required")
	ErrInvalidParamFormat   = errors.New("invalid parameter format, expected key=value")
	ErrUsernameRequired     = errors.New("username is required")
	ErrBodyRequired         = errors.New("resource body is required (use --file or pipe JSON to stdin)")
)

// newClient builds a FHIR client from the active configuration.
func newClient() (*fhir.Client, error) {
	server := viper.GetString("server")
	if server == "" {
		return nil, ErrServerRequired
	}

	config := &fhirclient.Config{
		Endpoint:            server,
		AccessToken:         viper.GetString("token"),
		ClientID:            viper.GetString("client-id"),
		ClientSecret:        viper.GetString("client-secret"),
		TokenURL:            viper.GetString("token-url"),
		EnableResourceCache: true,
	}

	if schemaPath := viper.GetString("schema"); schemaPath != "" {
		schema, err := fhir.LoadSchema(schemaPath)
		if err != nil {
			return nil, fmt.Errorf("loading schema: %w", err)
		}

		config.Schema = schema
	}

	if viper.GetBool("cache") {
		config.ResponseCache = fhir.DefaultCacheConfig()
		config.ResponseCacheTTL = constants.DefaultCacheTTL
	}

	client, err := fhirclient.New(config)
	if err != nil {
		return nil, fmt.Errorf("creating client: %w", err)
	}

	return client, nil
}

// parseSearchParams converts repeated key=value arguments into search
// parameters. Repeated keys accumulate.
func parseSearchParams(pairs []string) (fhir.Params, error) {
	params := fhir.Params{}

	for _, pair := range pairs {
		key, value, found := strings.Cut(pair, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidParamFormat, pair)
		}

		existing, ok := params[key]
		if !ok {
			params[key] = value

			continue
		}

		switch typed := existing.(type) {
		case []string:
			params[key] = append(typed, value)
		case string:
			params[key] = []string{typed, value}
		}
	}

	return params, nil
}

// renderResources writes a resource list in the configured output format.
func renderResources(resources []*fhir.Resource) error {
	output := viper.GetString("output")

	switch output {
	case OutputFormatJSON, OutputFormatYAML:
		documents := make([]map[string]interface{}, 0, len(resources))

		for _, resource := range resources {
			serialized, err := resource.Serialize()
			if err != nil {
				return fmt.Errorf("serializing %s: %w", resource.ResourceType(), err)
			}

			documents = append(documents, serialized)
		}

		return renderStructured(output, documents)
	default:
		table := tablewriter.NewWriter(os.Stdout)
		table.Header("Resource Type", "ID", "Last Updated")

		for _, resource := range resources {
			lastUpdated, err := resource.GetByPath("meta.lastUpdated", "")
			if err != nil {
				lastUpdated = ""
			}

			_ = table.Append(resource.ResourceType(), resource.ID(), fmt.Sprintf("%v", lastUpdated))
		}

		err := table.Render()
		if err != nil {
			return fmt.Errorf("failed to render table: %w", err)
		}

		return nil
	}
}

// renderResource writes a single resource in the configured output format.
func renderResource(resource *fhir.Resource) error {
	output := viper.GetString("output")

	serialized, err := resource.Serialize()
	if err != nil {
		return fmt.Errorf("serializing %s: %w", resource.ResourceType(), err)
	}

	switch output {
	case OutputFormatJSON, OutputFormatYAML:
		return renderStructured(output, serialized)
	default:
		table := tablewriter.NewWriter(os.Stdout)
		table.Header("Field", "Value")

		for _, key := range resource.Keys() {
			value, err := resource.Get(key)
			if err != nil {
				continue
			}

			_ = table.Append(key, formatTableValue(value))
		}

		err := table.Render()
		if err != nil {
			return fmt.Errorf("failed to render table: %w", err)
		}

		return nil
	}
}

// renderStructured encodes v to stdout as JSON or YAML.
func renderStructured(output string, v interface{}) error {
	if output == OutputFormatYAML {
		encoder := yaml.NewEncoder(os.Stdout)

		err := encoder.Encode(v)
		if err != nil {
			return fmt.Errorf("encoding yaml: %w", err)
		}

		return encoder.Close()
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", strings.Repeat(" ", constants.JSONIndentSize))

	err := encoder.Encode(v)
	if err != nil {
		return fmt.Errorf("encoding json: %w", err)
	}

	return nil
}

// formatTableValue flattens a field value to a single table cell.
func formatTableValue(value interface{}) string {
	switch typed := value.(type) {
	case string:
		return typed
	case nil:
		return ""
	case *fhir.Reference:
		return typed.Reference()
	default:
		encoded, err := json.Marshal(typed)
		if err != nil {
			return fmt.Sprintf("%v", typed)
		}

		return string(encoded)
	}
}

// saveConfig persists the active viper configuration, creating the default
// config file when none is in use yet.
func saveConfig() error {
	if viper.ConfigFileUsed() != "" {
		err := viper.WriteConfig()
		if err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		return nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("finding home directory: %w", err)
	}

	configDir := filepath.Join(home, ".fhirctl")

	err = os.MkdirAll(configDir, constants.ConfigDirPerm)
	if err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "config.yml")

	err = viper.WriteConfigAs(path)
	if err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return os.Chmod(path, constants.ConfigFilePerm)
}
