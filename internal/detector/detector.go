package detector

import (
	"regexp"

	"github.com/had-nu/envpatrol/internal/types"
)

// Pattern is one catalog rule. It matches a key/value pair when either the
// key matcher or the value matcher fires. Nil matchers never match.
type Pattern struct {
	Name     string
	Key      *regexp.Regexp
	Value    *regexp.Regexp
	Severity types.Severity
	Message  string
}

func (p *Pattern) matches(key, value string) bool {
	if p.Key != nil && p.Key.MatchString(key) {
		return true
	}
	return p.Value != nil && p.Value.MatchString(value)
}

// The catalog is built once at init and never mutated, so concurrent scans
// share it without locking. Go's regexp is RE2 based: every matcher runs in
// time linear in its input.
var defaultPatterns = []Pattern{
	{
		Name:     "aws-credential",
		Key:      regexp.MustCompile(`(?i)aws_?(access_?key_?id|secret_?access_?key|session_?token)`),
		Value:    regexp.MustCompile(`^(AKIA|ASIA|ACCA)[A-Za-z0-9]{12,16}$`),
		Severity: types.SeverityCritical,
		Message:  "possible AWS credential",
	},
	{
		Name:     "private-key",
		Key:      regexp.MustCompile(`(?i)private_?key`),
		Value:    regexp.MustCompile(`-----BEGIN (?:[A-Z0-9]+ )*PRIVATE KEY(?: BLOCK)?-----`),
		Severity: types.SeverityHigh,
		Message:  "private key material in config",
	},
	{
		Name:     "token-secret",
		Key:      regexp.MustCompile(`(?i)(token|secret|api_?key|jwt|bearer|client_?secret)`),
		Value:    regexp.MustCompile(`^eyJ[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+$`),
		Severity: types.SeverityHigh,
		Message:  "token or secret in plain text",
	},
	{
		Name:     "password",
		Key:      regexp.MustCompile(`(?i)(password|passwd|pwd|passphrase)`),
		Severity: types.SeverityHigh,
		Message:  "password-like key",
	},
	{
		Name:     "database-credential",
		Key:      regexp.MustCompile(`(?i)(database_?ur[il]|db_?(user|username|host|name|url|uri|dsn|conn)|(postgres|pg|mysql|mongo|mongodb|redis)[a-z]*_?(url|uri|dsn)|^dsn$|connection_?string)`),
		Value:    regexp.MustCompile(`^(postgres(ql)?|mysql|mongodb(\+srv)?|redis|amqp)://[^:/\s]+:[^@\s]+@`),
		Severity: types.SeverityMedium,
		Message:  "database credential in config",
	},
	{
		Name:     "debug-setting",
		Key:      regexp.MustCompile(`(?i)(debug|log_?level|trace|verbose)`),
		Severity: types.SeverityLow,
		Message:  "debug or tracing setting in config",
	},
}

// DefaultPatterns returns a copy of the built-in catalog in priority order.
func DefaultPatterns() []Pattern {
	out := make([]Pattern, len(defaultPatterns))
	copy(out, defaultPatterns)
	return out
}

// Catalog evaluates an ordered pattern list with first-match-wins semantics.
type Catalog struct {
	patterns []Pattern
}

// New builds a Catalog. An empty pattern list selects the defaults.
func New(patterns []Pattern) *Catalog {
	if len(patterns) == 0 {
		patterns = defaultPatterns
	}
	return &Catalog{patterns: patterns}
}

// Default is the process-wide catalog over the built-in patterns.
var Default = New(nil)

// Match returns the first pattern matching the pair. At most one pattern is
// reported per pair so a single value is never penalized twice.
func (c *Catalog) Match(key, value string) (Pattern, bool) {
	for i := range c.patterns {
		if c.patterns[i].matches(key, value) {
			return c.patterns[i], true
		}
	}
	return Pattern{}, false
}

// Downgrade lowers a content severity by one tier for commented secrets:
// critical becomes high, high becomes medium, anything else is unchanged.
func Downgrade(s types.Severity) types.Severity {
	switch s {
	case types.SeverityCritical:
		return types.SeverityHigh
	case types.SeverityHigh:
		return types.SeverityMedium
	default:
		return s
	}
}
