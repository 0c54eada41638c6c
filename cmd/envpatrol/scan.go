package main

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/had-nu/envpatrol/internal/history"
	"github.com/had-nu/envpatrol/internal/reporter"
	"github.com/had-nu/envpatrol/internal/scanner"
	"github.com/had-nu/envpatrol/internal/types"
)

type scanFlags struct {
	dir    string
	format string
	failOn string
	save   bool
}

func newScanCmd(a *app) *cobra.Command {
	var f scanFlags
	cmd := &cobra.Command{
		Use:   "scan [FILE|-]",
		Short: "Scan a config file, stdin or a directory tree",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var arg string
			if len(args) > 0 {
				arg = args[0]
			}
			return a.runScan(cmd, f, arg)
		},
	}

	cmd.Flags().StringVar(&f.dir, "dir", "", "scan every matching config file under this directory")
	cmd.Flags().StringVarP(&f.format, "format", "f", reporter.FormatText, "report format ("+strings.Join(reporter.Formats, ", ")+")")
	cmd.Flags().StringVar(&f.failOn, "fail-on", "", "lowest severity that fails the run (overrides fail_on)")
	cmd.Flags().BoolVar(&f.save, "save", false, "record the result in the local history")
	return cmd
}

func (a *app) runScan(cmd *cobra.Command, f scanFlags, arg string) error {
	if !slices.Contains(reporter.Formats, f.format) {
		return fmt.Errorf("unknown format %q", f.format)
	}
	threshold, err := a.threshold(f.failOn)
	if err != nil {
		return err
	}
	if f.dir != "" && arg != "" {
		return errors.New("pass either FILE or --dir, not both")
	}
	if f.dir != "" && f.save {
		return errors.New("--save cannot be combined with --dir")
	}

	sc := scanner.New(a.cfg.ScannerOptions()...)

	var docs []reporter.Document
	if f.dir != "" {
		docs, err = a.scanDir(cmd, sc, f.dir)
		if err != nil {
			return err
		}
	} else {
		name, text, err := a.readInput(arg)
		if err != nil {
			return err
		}
		res := sc.Scan(cmd.Context(), text)
		if f.save {
			if err := a.save(res, text); err != nil {
				return err
			}
		}
		docs = append(docs, reporter.Document{Path: name, Result: res})
	}

	if err := reporter.Write(a.stdout, f.format, docs...); err != nil {
		return fmt.Errorf("report: %w", err)
	}

	for _, d := range docs {
		if reporter.ShouldFail(d.Result, threshold) {
			return errThreshold
		}
	}
	return nil
}

func (a *app) threshold(flag string) (types.Severity, error) {
	if flag == "" {
		return a.cfg.FailOnSeverity()
	}
	sev, ok := types.ParseSeverity(strings.ToLower(flag))
	if !ok {
		return "", fmt.Errorf("unknown severity %q for --fail-on", flag)
	}
	return sev, nil
}

func (a *app) scanDir(cmd *cobra.Command, sc *scanner.Scanner, dir string) ([]reporter.Document, error) {
	fs, err := scanner.NewFileScanner(sc, a.cfg.Include, int64(a.cfg.MaxInputBytes))
	if err != nil {
		return nil, err
	}

	fmt.Fprintf(a.stderr, "Scanning %s...\n", dir)
	start := time.Now()
	tree, err := fs.Scan(cmd.Context(), dir)
	if err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	fmt.Fprintf(a.stderr, "Scanned %d files in %v.\n", len(tree.Files), time.Since(start).Round(time.Millisecond))

	for _, se := range tree.Errors {
		fmt.Fprintf(a.stderr, "warning: %s\n", se)
	}

	docs := make([]reporter.Document, 0, len(tree.Files))
	for _, fr := range tree.Files {
		docs = append(docs, reporter.Document{Path: fr.Path, Result: fr.Result})
	}
	return docs, nil
}

func (a *app) save(res types.ScanResult, text string) error {
	if err := a.requireLicense(a.cfg.HistoryPaid, "history"); err != nil {
		return err
	}
	store, err := history.Open(a.cfg.History.Path, a.cfg.HistoryOptions()...)
	if err != nil {
		return err
	}
	if _, err := store.Save(res, text); err != nil {
		return fmt.Errorf("save history: %w", err)
	}
	fmt.Fprintf(a.stderr, "Saved to %s\n", store.Path())
	return nil
}
