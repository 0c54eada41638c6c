package main

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/had-nu/envpatrol"
)

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Args:  cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			var rev, ts string
			if info, ok := debug.ReadBuildInfo(); ok {
				for _, s := range info.Settings {
					switch s.Key {
					case "vcs.revision":
						rev = s.Value
					case "vcs.time":
						ts = s.Value
					}
				}
			}
			if rev != "" || ts != "" {
				fmt.Fprintf(a.stdout, "%s (commit %s, built %s)\n", envpatrol.Version, short(rev), ts)
				return
			}
			fmt.Fprintln(a.stdout, envpatrol.Version)
		},
	}
}

func short(s string) string {
	if len(s) > 7 {
		return s[:7]
	}
	return s
}
