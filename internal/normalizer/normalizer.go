// Package normalizer rewrites configuration text into a canonical form that
// the scanner scores at least as well as the input. Normalize is idempotent:
// running it on its own output returns that output unchanged.
package normalizer

import (
	"context"
	"fmt"
	"strings"

	"github.com/had-nu/envpatrol/internal/log"
	"github.com/had-nu/envpatrol/internal/scanner"
	"github.com/had-nu/envpatrol/internal/types"
)

const bom = "\uFEFF"

// DuplicatePolicy selects which occurrence of a repeated key survives.
type DuplicatePolicy string

const (
	KeepFirst DuplicatePolicy = "keep-first"
	KeepLast  DuplicatePolicy = "keep-last"
)

// ParseDuplicatePolicy validates a policy name. An empty name selects KeepFirst.
func ParseDuplicatePolicy(raw string) (DuplicatePolicy, error) {
	switch p := DuplicatePolicy(strings.ToLower(strings.TrimSpace(raw))); p {
	case "":
		return KeepFirst, nil
	case KeepFirst, KeepLast:
		return p, nil
	default:
		return "", fmt.Errorf("unknown duplicate policy %q (want %s or %s)", raw, KeepFirst, KeepLast)
	}
}

// MissingAssignPolicy selects what happens to content lines without '='.
type MissingAssignPolicy string

const (
	Drop     MissingAssignPolicy = "drop"
	Annotate MissingAssignPolicy = "annotate"
)

// ParseMissingAssignPolicy validates a policy name. An empty name selects Drop.
func ParseMissingAssignPolicy(raw string) (MissingAssignPolicy, error) {
	switch p := MissingAssignPolicy(strings.ToLower(strings.TrimSpace(raw))); p {
	case "":
		return Drop, nil
	case Drop, Annotate:
		return p, nil
	default:
		return "", fmt.Errorf("unknown missing-assign policy %q (want %s or %s)", raw, Drop, Annotate)
	}
}

// Normalizer holds the rewrite policies. It is safe for concurrent use.
type Normalizer struct {
	scanner       *scanner.Scanner
	duplicates    DuplicatePolicy
	missing       MissingAssignPolicy
	maxInputBytes int
}

type Option func(*Normalizer)

func WithDuplicatePolicy(p DuplicatePolicy) Option {
	return func(n *Normalizer) {
		n.duplicates = p
	}
}

func WithMissingAssignPolicy(p MissingAssignPolicy) Option {
	return func(n *Normalizer) {
		n.missing = p
	}
}

// WithScanner sets the scanner used to vet near-JSON rewrites.
func WithScanner(s *scanner.Scanner) Option {
	return func(n *Normalizer) {
		n.scanner = s
	}
}

// WithMaxInputBytes sets the size above which text is returned untouched.
// Zero or less disables the limit.
func WithMaxInputBytes(max int) Option {
	return func(n *Normalizer) {
		n.maxInputBytes = max
	}
}

func New(opts ...Option) *Normalizer {
	n := &Normalizer{
		duplicates:    KeepFirst,
		missing:       Drop,
		maxInputBytes: scanner.DefaultMaxInputBytes,
	}
	for _, opt := range opts {
		opt(n)
	}
	if n.scanner == nil {
		n.scanner = scanner.New(scanner.WithMaxInputBytes(n.maxInputBytes))
	}
	return n
}

// Normalize returns the canonical rewrite of text. It never fails; text it
// cannot improve comes back unchanged or with whitespace-level cleanup only.
func (n *Normalizer) Normalize(ctx context.Context, text string) string {
	if n.tooLarge(text) {
		log.Debugf("(normalizer) input of %d bytes exceeds budget, leaving as is", len(text))
		return text
	}

	text = strings.TrimPrefix(text, bom)
	trimmed := strings.TrimSpace(text)

	var out string
	if scanner.DetectFormat(text) == types.FormatJSON {
		out = n.normalizeJSON(ctx, trimmed)
	} else {
		out = n.normalizeDotEnv(text)
	}

	if n.tooLarge(out) {
		log.Debugf("(normalizer) rewrite outgrew budget, leaving as is")
		return text
	}
	return out
}

func (n *Normalizer) tooLarge(text string) bool {
	return n.maxInputBytes > 0 && len(text) > n.maxInputBytes
}

// finish collapses runs of blank lines to one, drops blank lines at both
// ends and terminates the text with exactly one newline.
func finish(lines []string) string {
	var b strings.Builder
	pending := false
	for _, l := range lines {
		if l == "" {
			pending = b.Len() > 0
			continue
		}
		if pending {
			b.WriteByte('\n')
			pending = false
		}
		b.WriteString(l)
		b.WriteByte('\n')
	}
	if b.Len() == 0 {
		return "\n"
	}
	return b.String()
}
