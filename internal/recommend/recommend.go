// Package recommend maps findings to remediation advice.
package recommend

import (
	"regexp"
	"strings"

	"github.com/had-nu/envpatrol/internal/types"
)

const (
	PrivateKey = "Move the key to a secrets manager, remove it from this config, rotate it, and make sure the file is excluded from version control."
	Secret     = "Store it in a vault and inject it at runtime. Do not commit it."
	Sensitive  = "Do not store secrets in this file. Use a secrets manager and rotate the value if it was exposed."
	Reference  = "Use per-environment secret references. Never commit the value."
	Boolean    = "Store booleans unquoted and make sure the consuming loader parses booleans."
	Drift      = "Keep debug and tracing settings out of shared config to reduce drift between environments."
	Formatting = "Fix formatting: add the missing '=', quote values with spaces, or correct the JSON."
	Review     = "Review and remediate according to your org policy."
)

var (
	privateKeyRe = regexp.MustCompile(`(?i)private[_-]?key|(^|[_.-])pem([_.-]|$)|ssh_?key`)
	secretKeyRe  = regexp.MustCompile(`(?i)pass|pwd|token|secret|api_?key|jwt`)
)

// For returns the advice for f. It is pure and defined for every finding,
// including severities it does not know.
func For(f types.Finding) string {
	switch f.Severity {
	case types.SeverityErrorFormat, types.SeverityWarningFormat:
		return Formatting
	case types.SeverityCritical, types.SeverityHigh:
		switch {
		case privateKeyRe.MatchString(f.Key):
			return PrivateKey
		case secretKeyRe.MatchString(f.Key):
			return Secret
		default:
			return Sensitive
		}
	case types.SeverityMedium:
		return Reference
	case types.SeverityLow:
		if strings.Contains(strings.ToLower(f.Message), "boolean") {
			return Boolean
		}
		return Drift
	default:
		return Review
	}
}

// Advised pairs a finding with its recommendation for report output.
type Advised struct {
	types.Finding  `yaml:",inline"`
	Recommendation string `json:"recommendation" yaml:"recommendation"`
}

// All attaches a recommendation to every finding, preserving order.
func All(findings []types.Finding) []Advised {
	out := make([]Advised, 0, len(findings))
	for _, f := range findings {
		out = append(out, Advised{Finding: f, Recommendation: For(f)})
	}
	return out
}
