package normalizer

import (
	"strings"

	"github.com/had-nu/envpatrol/internal/dotenv"
	"github.com/had-nu/envpatrol/internal/log"
)

const fixmePrefix = "# FIXME: "

// entry is one output line. key is the dedupe key of an assignment and
// empty for every other line.
type entry struct {
	text string
	key  string
}

func (n *Normalizer) normalizeDotEnv(text string) string {
	raws := dotenv.Split(text)
	entries := make([]entry, 0, len(raws))

	for i, raw := range raws {
		l := dotenv.Lex(raw)
		switch l.Kind {
		case dotenv.Comment:
			entries = append(entries, entry{text: l.Text})
		case dotenv.Malformed:
			if n.missing == Annotate {
				entries = append(entries, entry{text: fixmePrefix + strings.TrimSpace(l.Text)})
			} else {
				log.Debugf("(normalizer) dropping line %d without '='", i+1)
			}
		case dotenv.Assignment:
			line := renderAssignment(l)
			// A sanitized key can turn a line into something else, such as
			// "__=" reading as a separator.
			if re := dotenv.Lex(line); re.Kind != dotenv.Assignment || re.Key != l.Key {
				log.Debugf("(normalizer) dropping line %d: rewrite is not an assignment", i+1)
				entries = append(entries, entry{})
				continue
			}
			entries = append(entries, entry{text: line, key: strings.ToUpper(l.Key)})
		default:
			entries = append(entries, entry{})
		}
	}

	return finish(n.dedupe(entries))
}

// dedupe keeps one assignment per case-insensitive key according to the
// duplicate policy. Dropped duplicates leave no line behind.
func (n *Normalizer) dedupe(entries []entry) []string {
	last := make(map[string]int)
	if n.duplicates == KeepLast {
		for i, e := range entries {
			if e.key != "" {
				last[e.key] = i
			}
		}
	}

	seen := make(map[string]struct{})
	out := make([]string, 0, len(entries))
	for i, e := range entries {
		if e.key != "" {
			if n.duplicates == KeepLast {
				if last[e.key] != i {
					continue
				}
			} else {
				if _, dup := seen[e.key]; dup {
					continue
				}
				seen[e.key] = struct{}{}
			}
		}
		out = append(out, e.text)
	}
	return out
}

// renderAssignment writes l as KEY=VALUE with the sanitized key, no indent
// and no export prefix. Quoted values are kept as written; unquoted values
// are quoted when they would otherwise be flagged or mis-split.
func renderAssignment(l dotenv.Line) string {
	var b strings.Builder
	b.WriteString(l.Key)
	b.WriteByte('=')
	switch {
	case l.Quote != 0:
		b.WriteString(l.RawValue)
	case dotenv.NeedsQuoting(l.Value):
		b.WriteString(dotenv.Quote(l.Value))
	default:
		b.WriteString(l.Value)
	}
	if l.HasComment {
		b.WriteString(" #")
		b.WriteString(l.Comment)
	}
	return b.String()
}
