// Package envpatrol scans .env and JSON configuration text for leaked
// secrets and formatting problems, scores it, and rewrites it into a
// canonical form.
//
// The functions here use the default settings: a 1 MiB input budget and a
// two second scan deadline. Scan and Normalize never fail; every problem is
// reported as a Finding.
package envpatrol

import (
	"context"

	"github.com/had-nu/envpatrol/internal/normalizer"
	"github.com/had-nu/envpatrol/internal/recommend"
	"github.com/had-nu/envpatrol/internal/scanner"
	"github.com/had-nu/envpatrol/internal/types"
)

// Version is set at build time with -ldflags "-X github.com/had-nu/envpatrol.Version=...".
var Version = "dev"

type (
	Severity   = types.Severity
	Format     = types.Format
	Finding    = types.Finding
	ScanResult = types.ScanResult
)

var (
	defaultScanner    = scanner.New()
	defaultNormalizer = normalizer.New(normalizer.WithScanner(defaultScanner))
)

// Scan analyzes text and returns its score and findings.
func Scan(text string) ScanResult {
	return ScanContext(context.Background(), text)
}

// ScanContext is Scan bounded by ctx as well as the default deadline. A
// cancelled context yields an aborted result, not an error.
func ScanContext(ctx context.Context, text string) ScanResult {
	return defaultScanner.Scan(ctx, text)
}

// Normalize rewrites text into canonical form. Text it cannot improve is
// returned with whitespace cleanup only.
func Normalize(text string) string {
	return defaultNormalizer.Normalize(context.Background(), text)
}

// Recommend returns the remediation advice for f.
func Recommend(f Finding) string {
	return recommend.For(f)
}
