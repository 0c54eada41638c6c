package normalizer

import (
	"bytes"
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/valyala/fastjson"

	"github.com/had-nu/envpatrol/internal/log"
)

// Near-JSON rewriting is textual and lossy. It handles flat objects written
// with bare identifiers and '=' in place of ':'; nested structures, arrays and
// values containing ':' ',' or quotes are not guaranteed to survive. The
// result is only kept when it parses and scores no worse than the input.
var (
	bareKeyRe   = regexp.MustCompile(`([a-zA-Z0-9_]+)\s*:`)
	bareValueRe = regexp.MustCompile(`:\s*([^"{}\[\]\s][^,\]}]*)`)
)

// normalizeJSON handles text whose first character opens a JSON container.
// Text that neither parses nor survives the near-JSON rewrite is returned
// trimmed; it is never read as dotenv lines.
func (n *Normalizer) normalizeJSON(ctx context.Context, trimmed string) string {
	if out, err := indent(trimmed); err == nil {
		return out
	}

	if !strings.HasPrefix(trimmed, "{") || !strings.HasSuffix(trimmed, "}") {
		log.Debugf("(normalizer) unrepairable JSON left as is")
		return trimmed + "\n"
	}

	candidate, err := indent(rewriteNearJSON(trimmed))
	if err != nil {
		log.Debugf("(normalizer) near-JSON rewrite does not parse: %v", err)
		return trimmed + "\n"
	}

	before := n.scanner.StructuralCount(ctx, trimmed)
	after := n.scanner.StructuralCount(ctx, candidate)
	if after > before {
		log.Debugf("(normalizer) near-JSON rewrite rejected: %d structural findings, was %d", after, before)
		return trimmed + "\n"
	}
	return candidate
}

// rewriteNearJSON swaps '=' for ':', quotes bare keys and quotes bare scalar
// values inside the outer braces.
func rewriteNearJSON(trimmed string) string {
	inner := strings.TrimSpace(trimmed[1 : len(trimmed)-1])
	inner = strings.ReplaceAll(inner, "=", ":")
	inner = bareKeyRe.ReplaceAllString(inner, `"${1}":`)
	inner = bareValueRe.ReplaceAllString(inner, `:"${1}"`)
	return "{\n" + inner + "\n}"
}

// indent validates text and pretty-prints it with two-space indentation.
func indent(text string) (string, error) {
	if err := fastjson.Validate(text); err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, []byte(text), "", "  "); err != nil {
		return "", err
	}
	buf.WriteByte('\n')
	return buf.String(), nil
}
