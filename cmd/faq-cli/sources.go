package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var sourcesJSON bool

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "Show how each FAQ source was loaded",
	Args:  cobra.NoArgs,
	RunE:  runSources,
}

func init() {
	sourcesCmd.Flags().BoolVar(&sourcesJSON, "json", false, "output source reports as JSON")
	rootCmd.AddCommand(sourcesCmd)
}

func runSources(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()
	out := cmd.OutOrStdout()

	reports := a.Store.Sources()
	if sourcesJSON {
		data, err := json.MarshalIndent(reports, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal sources: %w", err)
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	if len(reports) == 0 {
		fmt.Fprintln(out, "No FAQ sources configured.")
		return nil
	}
	for _, r := range reports {
		fmt.Fprintf(out, "  %-40s %-10s entries=%d", r.Path, r.Status, r.Entries)
		if r.Skipped > 0 {
			fmt.Fprintf(out, " skipped=%d", r.Skipped)
		}
		if r.Error != "" {
			fmt.Fprintf(out, " error=%s", r.Error)
		}
		fmt.Fprintln(out)
	}
	fmt.Fprintf(out, "Total entries: %d, semantic search: %t\n", a.Store.Len(), a.Resolver.SemanticAvailable())
	return nil
}
