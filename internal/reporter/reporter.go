package reporter

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/had-nu/envpatrol/internal/recommend"
	"github.com/had-nu/envpatrol/internal/types"
)

// Output formats accepted by Write.
const (
	FormatText  = "text"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
	FormatHTML  = "html"
	FormatSARIF = "sarif"
)

// Formats lists every supported output format.
var Formats = []string{FormatText, FormatJSON, FormatYAML, FormatHTML, FormatSARIF}

// Document is one scanned input. Path is empty for stdin and HTTP input;
// Content is the original text and may be omitted for directory scans.
type Document struct {
	Path    string
	Content string
	Result  types.ScanResult
}

// Write renders docs to w in the requested format.
func Write(w io.Writer, format string, docs ...Document) error {
	switch format {
	case FormatText, "":
		return writeText(w, docs, colorEnabled(w))
	case FormatJSON:
		return writeJSON(w, docs)
	case FormatYAML:
		return writeYAML(w, docs)
	case FormatHTML:
		return writeHTML(w, docs)
	case FormatSARIF:
		return writeSARIF(w, docs)
	default:
		return fmt.Errorf("unknown report format %q (want one of %s)", format, strings.Join(Formats, ", "))
	}
}

// colorEnabled reports whether w is a terminal that should get ANSI colors.
func colorEnabled(w io.Writer) bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

const ansiReset = "\033[0m"

var severityColor = map[types.Severity]string{
	types.SeverityCritical:      "\033[1;31m",
	types.SeverityHigh:          "\033[31m",
	types.SeverityMedium:        "\033[33m",
	types.SeverityLow:           "\033[36m",
	types.SeverityErrorFormat:   "\033[35m",
	types.SeverityWarningFormat: "\033[2m",
}

func writeText(w io.Writer, docs []Document, color bool) error {
	var b strings.Builder
	for i, d := range docs {
		if i > 0 {
			b.WriteString("\n")
		}
		textDocument(&b, d, color)
	}
	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("write text report: %w", err)
	}
	return nil
}

func textDocument(b *strings.Builder, d Document, color bool) {
	res := d.Result
	b.WriteString("EnvPatrol Scan Report\n")
	if d.Path != "" {
		fmt.Fprintf(b, "File: %s\n", d.Path)
	}
	fmt.Fprintf(b, "Format: %s\n", strings.ToUpper(string(res.Format)))
	fmt.Fprintf(b, "Security Score: %d/100\n", res.Score)
	b.WriteString("\nIssues:\n")

	if len(res.Findings) == 0 {
		b.WriteString("  None\n")
	}
	for _, f := range res.Findings {
		tag := "[" + strings.ToUpper(string(f.Severity)) + "]"
		if color {
			if c, ok := severityColor[f.Severity]; ok {
				tag = c + tag + ansiReset
			}
		}
		fmt.Fprintf(b, "  - %s %s%s :: %s\n", tag, f.Key, lineSuffix(f), f.Message)
		fmt.Fprintf(b, "    Recommendation: %s\n", recommend.For(f))
	}

	if d.Content != "" {
		b.WriteString("\n--- Original Content ---\n")
		b.WriteString(d.Content)
		if !strings.HasSuffix(d.Content, "\n") {
			b.WriteString("\n")
		}
	}
}

func lineSuffix(f types.Finding) string {
	if f.Line > 0 {
		return fmt.Sprintf(" (line %d)", f.Line)
	}
	return ""
}

// ShouldFail reports whether any finding ranks at or above threshold.
// Structural tiers rank as medium (error_format) and low (warning_format).
func ShouldFail(res types.ScanResult, threshold types.Severity) bool {
	limit := threshold.Rank()
	if limit == 0 {
		return false
	}
	for _, f := range res.Findings {
		if f.Severity.Rank() >= limit {
			return true
		}
	}
	return false
}
