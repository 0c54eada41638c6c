package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/had-nu/envpatrol/internal/history"
)

func newHistoryCmd(a *app) *cobra.Command {
	var (
		clearAll bool
		jsonOut bool
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List or clear saved scan results",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			store, err := history.Open(a.cfg.History.Path, a.cfg.HistoryOptions()...)
			if err != nil {
				return err
			}
			if clearAll {
				if err := store.Clear(); err != nil {
					return err
				}
				fmt.Fprintln(a.stderr, "History cleared.")
				return nil
			}

			records, err := store.List()
			if err != nil {
				return err
			}
			if jsonOut {
				enc := json.NewEncoder(a.stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(records)
			}
			return writeHistory(a, records)
		},
	}
	cmd.Flags().BoolVar(&clearAll, "clear", false, "delete all saved results")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "emit JSON")
	return cmd
}

func writeHistory(a *app, records []history.Record) error {
	if len(records) == 0 {
		fmt.Fprintln(a.stdout, "No saved scans.")
		return nil
	}
	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tSCORE\tFORMAT\tFINDINGS")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%d\n", r.Timestamp.Format(time.RFC3339), r.Score, r.Format, len(r.Findings))
	}
	return tw.Flush()
}
