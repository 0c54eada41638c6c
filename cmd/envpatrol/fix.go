package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/had-nu/envpatrol/internal/normalizer"
	"github.com/had-nu/envpatrol/internal/scanner"
)

type fixFlags struct {
	write      bool
	duplicates string
	missing    string
}

func newFixCmd(a *app) *cobra.Command {
	var f fixFlags
	cmd := &cobra.Command{
		Use:   "fix [FILE|-]",
		Short: "Rewrite a config file into canonical form",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var arg string
			if len(args) > 0 {
				arg = args[0]
			}
			return a.runFix(cmd, f, arg)
		},
	}

	cmd.Flags().BoolVarP(&f.write, "write", "w", false, "write the result back to FILE instead of stdout")
	cmd.Flags().StringVar(&f.duplicates, "duplicates", "", "duplicate keys: keep-first or keep-last (overrides normalize.duplicates)")
	cmd.Flags().StringVar(&f.missing, "missing", "", "lines without '=': drop or annotate (overrides normalize.missing_assign)")
	return cmd
}

func (a *app) runFix(cmd *cobra.Command, f fixFlags, arg string) error {
	if err := a.requireLicense(a.cfg.AutoFixPaid, "auto-fix"); err != nil {
		return err
	}
	if f.write && (arg == "" || arg == "-") {
		return errors.New("--write needs a FILE")
	}

	sc := scanner.New(a.cfg.ScannerOptions()...)
	opts := append(a.cfg.NormalizerOptions(), normalizer.WithScanner(sc))
	if f.duplicates != "" {
		p, err := normalizer.ParseDuplicatePolicy(f.duplicates)
		if err != nil {
			return fmt.Errorf("--duplicates: %w", err)
		}
		opts = append(opts, normalizer.WithDuplicatePolicy(p))
	}
	if f.missing != "" {
		p, err := normalizer.ParseMissingAssignPolicy(f.missing)
		if err != nil {
			return fmt.Errorf("--missing: %w", err)
		}
		opts = append(opts, normalizer.WithMissingAssignPolicy(p))
	}

	name, text, err := a.readInput(arg)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	fixed := normalizer.New(opts...).Normalize(ctx, text)

	if !f.write {
		_, err := fmt.Fprint(a.stdout, fixed)
		return err
	}

	info, err := os.Stat(name)
	if err != nil {
		return fmt.Errorf("stat %s: %w", name, err)
	}
	if err := os.WriteFile(name, []byte(fixed), info.Mode().Perm()); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	before, after := sc.Scan(ctx, text).Score, sc.Scan(ctx, fixed).Score
	fmt.Fprintf(a.stderr, "Fixed %s: score %d -> %d\n", name, before, after)
	return nil
}
