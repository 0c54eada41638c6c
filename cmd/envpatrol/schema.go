package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/had-nu/envpatrol/internal/types"
)

func newSchemaCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON schema of a scan result",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			enc := json.NewEncoder(a.stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(types.ScanResult{}.Schema())
		},
	}
}
