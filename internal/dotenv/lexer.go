// Package dotenv tokenizes line-oriented KEY=VALUE configuration text. The
// analyzer and the normalizer both read lines through Lex so that text the
// normalizer rewrites is parsed the same way on the next scan.
package dotenv

import (
	"regexp"
	"strings"
	"unicode"
)

// Kind classifies a single line.
type Kind int

const (
	Blank Kind = iota
	Comment
	Separator
	Annotation
	Assignment
	Malformed // content-bearing line without '='
)

func (k Kind) String() string {
	switch k {
	case Blank:
		return "blank"
	case Comment:
		return "comment"
	case Separator:
		return "separator"
	case Annotation:
		return "annotation"
	case Assignment:
		return "assignment"
	case Malformed:
		return "malformed"
	default:
		return "unknown"
	}
}

var (
	separatorRe  = regexp.MustCompile(`^[-_= ]{3,}$`)
	annotationRe = regexp.MustCompile(`(?i)^(FIXME|TODO|NOTE)(?::|\s+[^=\s]|\s*$)`)
	exportRe     = regexp.MustCompile(`(?i)^export\s+`)
	validKeyRe   = regexp.MustCompile(`^[A-Za-z0-9_]+$`)
	invalidKeyRe = regexp.MustCompile(`[^A-Za-z0-9_]`)
)

// Line is the tokenized form of one input line.
type Line struct {
	Kind     Kind
	Text     string // line with trailing whitespace removed
	Indented bool   // leading whitespace before the content
	Exported bool

	// Assignment fields.
	RawKey   string // key as written, surrounding spaces trimmed
	Key      string // sanitized key
	KeyValid bool
	RawValue string // value token as written, without inline comment
	Value    string // semantic value (quotes removed, \" and \\ unescaped)
	Quote    byte   // '"' or '\'' when the value is fully quoted, else 0

	// Comment holds the text after '#' for full-line comments and for
	// inline comments trailing an assignment.
	Comment    string
	HasComment bool
}

// Lex tokenizes a single line (without its newline).
func Lex(raw string) Line {
	text := strings.TrimRight(raw, " \t\r\n\f\v")
	l := Line{Text: text}

	trimmed := strings.TrimLeft(text, " \t\f\v")
	if trimmed == "" {
		l.Kind = Blank
		return l
	}
	l.Indented = len(trimmed) != len(text)

	switch {
	case strings.HasPrefix(trimmed, "#"):
		l.Kind = Comment
		l.Comment = trimmed[1:]
		l.HasComment = true
		return l
	case separatorRe.MatchString(trimmed):
		l.Kind = Separator
		return l
	case annotationRe.MatchString(trimmed):
		l.Kind = Annotation
		return l
	}

	body := trimmed
	if loc := exportRe.FindStringIndex(body); loc != nil {
		l.Exported = true
		body = body[loc[1]:]
	}

	eq := strings.IndexByte(body, '=')
	if eq < 0 {
		l.Kind = Malformed
		return l
	}

	l.Kind = Assignment
	l.RawKey = strings.TrimSpace(body[:eq])
	l.KeyValid = validKeyRe.MatchString(l.RawKey)
	l.Key = SanitizeKey(l.RawKey)
	lexValue(&l, strings.TrimSpace(body[eq+1:]))
	return l
}

// SanitizeKey replaces every character outside [A-Za-z0-9_] with '_'. An
// empty key sanitizes to "_".
func SanitizeKey(key string) string {
	if key == "" {
		return "_"
	}
	return invalidKeyRe.ReplaceAllString(key, "_")
}

// lexValue splits the value token from an inline comment and unquotes it.
func lexValue(l *Line, raw string) {
	if raw != "" && (raw[0] == '"' || raw[0] == '\'') {
		if end := closingQuote(raw); end > 0 {
			rest := strings.TrimSpace(raw[end+1:])
			if rest == "" || rest[0] == '#' {
				l.Quote = raw[0]
				l.RawValue = raw[:end+1]
				l.Value = unquote(raw[1:end], raw[0])
				if rest != "" {
					l.Comment = rest[1:]
					l.HasComment = true
				}
				return
			}
		}
	}

	// Unquoted: an inline comment starts at a '#' that opens the value or
	// follows whitespace.
	value := raw
	if strings.HasPrefix(raw, "#") {
		value = ""
		l.Comment = raw[1:]
		l.HasComment = true
	} else if idx := inlineComment(raw); idx >= 0 {
		value = strings.TrimSpace(raw[:idx])
		l.Comment = raw[idx+1:]
		l.HasComment = true
	}
	l.RawValue = value
	l.Value = value
}

// inlineComment returns the index of the '#' opening an inline comment.
func inlineComment(s string) int {
	for i := 1; i < len(s); i++ {
		if s[i] == '#' && (s[i-1] == ' ' || s[i-1] == '\t') {
			return i
		}
	}
	return -1
}

// closingQuote returns the index of the quote closing s[0], honoring
// backslash escapes inside double quotes, or -1.
func closingQuote(s string) int {
	q := s[0]
	for i := 1; i < len(s); i++ {
		switch {
		case q == '"' && s[i] == '\\':
			i++
		case s[i] == q:
			return i
		}
	}
	return -1
}

func unquote(inner string, q byte) string {
	if q != '"' || !strings.Contains(inner, `\`) {
		return inner
	}
	var b strings.Builder
	b.Grow(len(inner))
	for i := 0; i < len(inner); i++ {
		if inner[i] == '\\' && i+1 < len(inner) && (inner[i+1] == '"' || inner[i+1] == '\\') {
			i++
		}
		b.WriteByte(inner[i])
	}
	return b.String()
}

// Quote renders value as a double-quoted token that Lex reads back to the
// same value.
func Quote(value string) string {
	var b strings.Builder
	b.Grow(len(value) + 2)
	b.WriteByte('"')
	for i := 0; i < len(value); i++ {
		if value[i] == '"' || value[i] == '\\' {
			b.WriteByte('\\')
		}
		b.WriteByte(value[i])
	}
	b.WriteByte('"')
	return b.String()
}

// NeedsQuoting reports whether an unquoted value would be flagged by the
// analyzer or split by the lexer.
func NeedsQuoting(value string) bool {
	return ContainsSpace(value) || strings.ContainsRune(value, '#') || strings.Contains(value, `\n`)
}

// ContainsSpace reports whether s contains Unicode whitespace.
func ContainsSpace(s string) bool {
	return strings.IndexFunc(s, unicode.IsSpace) >= 0
}

// Split breaks text into lines. A trailing "\r" is removed by Lex.
func Split(text string) []string {
	return strings.Split(text, "\n")
}

var fragmentRe = regexp.MustCompile(`([A-Za-z_][A-Za-z0-9_]*)\s*=\s*("[^"]*"|'[^']*'|[^\s#]+)`)

// Fragment is a KEY=VALUE shaped piece of comment text.
type Fragment struct {
	Key   string
	Value string
}

// Fragments extracts KEY=VALUE shaped pieces from comment text.
func Fragments(comment string) []Fragment {
	ms := fragmentRe.FindAllStringSubmatch(comment, -1)
	if len(ms) == 0 {
		return nil
	}
	out := make([]Fragment, 0, len(ms))
	for _, m := range ms {
		v := m[2]
		if len(v) >= 2 && (v[0] == '"' || v[0] == '\'') && v[len(v)-1] == v[0] {
			v = v[1 : len(v)-1]
		}
		out = append(out, Fragment{Key: m[1], Value: v})
	}
	return out
}

// MaskFragments replaces the value of every KEY=VALUE shaped piece of comment
// text with mask, keeping the key and the surrounding text.
func MaskFragments(comment, mask string) string {
	locs := fragmentRe.FindAllStringSubmatchIndex(comment, -1)
	if len(locs) == 0 {
		return comment
	}
	var b strings.Builder
	last := 0
	for _, loc := range locs {
		// loc[4]:loc[5] is the value group
		b.WriteString(comment[last:loc[4]])
		b.WriteString(mask)
		last = loc[5]
	}
	b.WriteString(comment[last:])
	return b.String()
}
