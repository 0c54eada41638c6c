package types

import "github.com/invopop/jsonschema"

// Severity ranks a finding. The first four tiers describe secret risk, the
// two *_format tiers describe structural defects in the input.
type Severity string

const (
	SeverityCritical      Severity = "critical"
	SeverityHigh          Severity = "high"
	SeverityMedium        Severity = "medium"
	SeverityLow           Severity = "low"
	SeverityErrorFormat   Severity = "error_format"
	SeverityWarningFormat Severity = "warning_format"
)

// IsStructural reports whether s is one of the formatting tiers.
func (s Severity) IsStructural() bool {
	return s == SeverityErrorFormat || s == SeverityWarningFormat
}

// Rank orders severities for threshold checks. Structural tiers rank
// alongside medium and low respectively.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium, SeverityErrorFormat:
		return 2
	case SeverityLow, SeverityWarningFormat:
		return 1
	default:
		return 0
	}
}

// ParseSeverity maps a user supplied string onto a Severity.
func ParseSeverity(raw string) (Severity, bool) {
	switch s := Severity(raw); s {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow, SeverityErrorFormat, SeverityWarningFormat:
		return s, true
	}
	return "", false
}

// Format is the detected input format.
type Format string

const (
	FormatDotEnv Format = "dotenv"
	FormatJSON   Format = "json"
)

// Finding is one reported issue. Key holds the raw key as written in the
// input (before sanitization); for JSON it is the dotted path.
type Finding struct {
	Key      string   `json:"key" yaml:"key" jsonschema:"title=Key,description=Raw key or dotted JSON path"`
	Severity Severity `json:"severity" yaml:"severity" jsonschema:"enum=critical,enum=high,enum=medium,enum=low,enum=error_format,enum=warning_format"`
	Message  string   `json:"message" yaml:"message"`
	Line     int      `json:"line,omitempty" yaml:"line,omitempty" jsonschema:"minimum=1"`
	Path     string   `json:"path,omitempty" yaml:"path,omitempty"`
	Rule     string   `json:"rule,omitempty" yaml:"rule,omitempty" jsonschema:"description=Catalog pattern or structural rule that produced the finding"`
	Penalty  int      `json:"penalty" yaml:"penalty"`
}

// ScanResult is the structured return value of a scan.
type ScanResult struct {
	Score    int       `json:"score" yaml:"score" jsonschema:"minimum=0,maximum=100"`
	Findings []Finding `json:"findings" yaml:"findings"`
	Format   Format    `json:"format" yaml:"format" jsonschema:"enum=dotenv,enum=json"`
	Aborted  bool      `json:"aborted,omitempty" yaml:"aborted,omitempty"`
}

// Counts tallies findings per severity.
func (r ScanResult) Counts() map[Severity]int {
	out := make(map[Severity]int)
	for _, f := range r.Findings {
		out[f.Severity]++
	}
	return out
}

// StructuralCount returns the number of error_format and warning_format findings.
func (r ScanResult) StructuralCount() int {
	n := 0
	for _, f := range r.Findings {
		if f.Severity.IsStructural() {
			n++
		}
	}
	return n
}

// Schema returns the JSON schema of a ScanResult document.
func (r ScanResult) Schema() *jsonschema.Schema {
	return jsonschema.Reflect(&r)
}

// ScanError records a file-level error encountered during a directory scan.
type ScanError struct {
	Path string
	Err  error
}

func (se ScanError) Error() string {
	return se.Path + ": " + se.Err.Error()
}

// FileResult is the scan of a single file found during a directory walk.
type FileResult struct {
	Path   string     `json:"path" yaml:"path"`
	Result ScanResult `json:"result" yaml:"result"`
}

// TreeResult is the structured return value of a directory scan.
type TreeResult struct {
	Files  []FileResult
	Errors []ScanError
}

// HasErrors reports whether any file-level errors were recorded.
func (r TreeResult) HasErrors() bool {
	return len(r.Errors) > 0
}
