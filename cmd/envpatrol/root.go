package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/had-nu/envpatrol/internal/config"
	"github.com/had-nu/envpatrol/internal/license"
	"github.com/had-nu/envpatrol/internal/log"
)

// app carries the loaded configuration and the standard streams shared by
// every subcommand.
type app struct {
	cfgFile  string
	logLevel string
	cfg      config.Config

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func newRootCmd(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdin: stdin, stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:           "envpatrol",
		Short:         "Scan .env and JSON config for leaked secrets and formatting problems",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return a.load()
		},
	}
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default .envpatrol.yaml or ~/.config/envpatrol/config.yaml)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level, overrides log_level")

	root.AddCommand(
		newScanCmd(a),
		newFixCmd(a),
		newServeCmd(a),
		newHistoryCmd(a),
		newSchemaCmd(a),
		newVersionCmd(a),
	)
	return root
}

func (a *app) load() error {
	cfg, err := config.Load(a.cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	if err := log.Configure(a.stderr, cfg.LogLevel, cfg.LogFormat); err != nil {
		return err
	}
	a.cfg = cfg
	return nil
}

// requireLicense fails when a paid feature is used without a valid key.
func (a *app) requireLicense(paid bool, feature string) error {
	if !(license.Gate{Paid: paid}).Allow(a.cfg.LicenseKey) {
		return fmt.Errorf("%s requires a Pro license: set license_key", feature)
	}
	return nil
}

// readInput reads FILE, or stdin for "" and "-". It refuses to block on an
// interactive terminal. The returned name is empty for stdin.
func (a *app) readInput(arg string) (name, text string, err error) {
	if arg != "" && arg != "-" {
		data, err := os.ReadFile(arg)
		if err != nil {
			return "", "", fmt.Errorf("read input: %w", err)
		}
		return arg, string(data), nil
	}

	if f, ok := a.stdin.(*os.File); ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
		return "", "", errors.New("no input: pass a FILE or pipe content on stdin")
	}
	data, err := io.ReadAll(a.stdin)
	if err != nil {
		return "", "", fmt.Errorf("read stdin: %w", err)
	}
	return "", string(data), nil
}
