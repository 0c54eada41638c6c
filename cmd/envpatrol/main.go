package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// Exit codes.
const (
	exitOK       = 0
	exitFindings = 1
	exitError    = 2
)

// errThreshold reports findings at or above --fail-on. The report has already
// been written, so main exits without printing it.
var errThreshold = errors.New("findings at or above threshold")

func main() {
	if err := run(); err != nil {
		if errors.Is(err, errThreshold) {
			os.Exit(exitFindings)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(exitError)
	}
	os.Exit(exitOK)
}

func run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	return newRootCmd(os.Stdin, os.Stdout, os.Stderr).ExecuteContext(ctx)
}
