package commands

import (
	"fmt"

	"github.com/fhirworks-io/fhir/pkg/fhir"
	"github.com/spf13/cobra"
)

// NewSearchCommand creates the search command.
func NewSearchCommand() *cobra.Command {
	var (
		params   []string
		sortKeys []string
		elements []string
		count    int
		page     int
		all      bool
	)

	cmd := &cobra.Command{
		Use:   "search <resource-type>",
		Short: "Search for resources",
		Long:  "Search for resources of a type, with optional filter parameters",
		Example: `  fhirctl search Patient --param name=John --param active=true
  fhirctl search Observation --param code=8480-6 --sort -_lastUpdated --count 20
  fhirctl search Patient --elements name,birthDate --all`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}

			searchParams, err := parseSearchParams(params)
			if err != nil {
				return err
			}

			searchSet := client.Resources(args[0]).Search(searchParams)

			if len(sortKeys) > 0 {
				searchSet = searchSet.Sort(sortKeys...)
			}

			if len(elements) > 0 {
				searchSet = searchSet.Elements(elements...)
			}

			if count > 0 {
				searchSet = searchSet.Limit(count)
			}

			if page > 0 {
				searchSet = searchSet.Page(page)
			}

			var resources []*fhir.Resource
			if all {
				resources, err = searchSet.FetchAll(cmd.Context())
			} else {
				resources, err = searchSet.Fetch(cmd.Context())
			}

			if err != nil {
				return fmt.Errorf("searching %s: %w", args[0], err)
			}

			return renderResources(resources)
		},
	}

	cmd.Flags().StringArrayVar(&params, "param", nil, "search parameter as key=value (repeatable)")
	cmd.Flags().StringSliceVar(&sortKeys, "sort", nil, "sort keys, prefix with - for descending")
	cmd.Flags().StringSliceVar(&elements, "elements", nil, "restrict returned fields")
	cmd.Flags().IntVar(&count, "count", 0, "page size")
	cmd.Flags().IntVar(&page, "page", 0, "page number")
	cmd.Flags().BoolVar(&all, "all", false, "fetch every page")

	return cmd
}

// NewCountCommand creates the count command.
func NewCountCommand() *cobra.Command {
	var params []string

	cmd := &cobra.Command{
		Use:   "count <resource-type>",
		Short: "Count matching resources",
		Long:  "Ask the server for the total number of resources matching the given parameters",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}

			searchParams, err := parseSearchParams(params)
			if err != nil {
				return err
			}

			total, err := client.Resources(args[0]).Search(searchParams).Count(cmd.Context())
			if err != nil {
				return fmt.Errorf("counting %s: %w", args[0], err)
			}

			fmt.Println(total)

			return nil
		},
	}

	cmd.Flags().StringArrayVar(&params, "param", nil, "search parameter as key=value (repeatable)")

	return cmd
}
