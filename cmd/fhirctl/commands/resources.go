package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fhirworks-io/fhir/pkg/fhir"
	"github.com/spf13/cobra"
)

// NewGetCommand creates the get command.
func NewGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get <resource-type> <id>",
		Short: "Fetch a single resource",
		Long:  "Fetch one resource by its type and id",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}

			resource, err := client.Resources(args[0]).Get(cmd.Context(), args[1])
			if err != nil {
				if fhir.IsNotFound(err) {
					return fmt.Errorf("%s/%s: %w", args[0], args[1], err)
				}

				return fmt.Errorf("getting %s/%s: %w", args[0], args[1], err)
			}

			return renderResource(resource)
		},
	}
}

// NewCreateCommand creates the create command.
func NewCreateCommand() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "create <resource-type>",
		Short: "Create or update a resource",
		Long:  "Save a resource from a JSON document: a create when the document has no id, a full replace otherwise",
		Example: `  fhirctl create Patient --file patient.json
  cat patient.json | fhirctl create Patient`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := readBody(file)
			if err != nil {
				return err
			}

			var fields map[string]interface{}

			err = json.Unmarshal(body, &fields)
			if err != nil {
				return fmt.Errorf("parsing resource body: %w", err)
			}

			// The path names the type; a conflicting resourceType in the
			// body would silently win otherwise.
			delete(fields, "resourceType")

			client, err := newClient()
			if err != nil {
				return err
			}

			resource, err := client.Resource(args[0], fields)
			if err != nil {
				return fmt.Errorf("building %s: %w", args[0], err)
			}

			err = resource.Save(cmd.Context())
			if err != nil {
				return fmt.Errorf("saving %s: %w", args[0], err)
			}

			fmt.Printf("Saved %s/%s\n", resource.ResourceType(), resource.ID())

			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "path to a JSON resource document (defaults to stdin)")

	return cmd
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <resource-type> <id>",
		Short: "Delete a resource",
		Long:  "Delete one resource by its type and id",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}

			resource, err := client.Resource(args[0], fhir.Params{"id": args[1]})
			if err != nil {
				return fmt.Errorf("building %s: %w", args[0], err)
			}

			err = resource.Delete(cmd.Context())
			if err != nil {
				return fmt.Errorf("deleting %s/%s: %w", args[0], args[1], err)
			}

			fmt.Printf("Deleted %s/%s\n", args[0], args[1])

			return nil
		},
	}
}

// readBody reads the resource document from a file or stdin.
func readBody(file string) ([]byte, error) {
	if file != "" {
		body, err := os.ReadFile(file) // #nosec G304 -- path is operator supplied
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", file, err)
		}

		return body, nil
	}

	stat, err := os.Stdin.Stat()
	if err != nil || (stat.Mode()&os.ModeCharDevice) != 0 {
		return nil, ErrBodyRequired
	}

	body, err := io.ReadAll(os.Stdin)
	if err != nil {
		return nil, fmt.Errorf("reading stdin: %w", err)
	}

	if len(body) == 0 {
		return nil, ErrBodyRequired
	}

	return body, nil
}
