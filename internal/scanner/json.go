package scanner

import (
	"context"
	"regexp"
	"strings"

	"github.com/valyala/fastjson"

	"github.com/had-nu/envpatrol/internal/detector"
	"github.com/had-nu/envpatrol/internal/log"
	"github.com/had-nu/envpatrol/internal/types"
)

const (
	msgInvalidJSON = "invalid JSON"

	// deeper documents are treated as too complex to walk
	maxJSONDepth = 256
)

var validJSONKeyRe = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// jsonWalker visits every object member of a parsed document in source
// order so findings come out deterministically.
type jsonWalker struct {
	ctx     context.Context
	s       *Scanner
	acc     *detector.Accumulator
	visited int
	stopped bool
}

// scanJSON parses text and walks the tree. Unparseable input yields a single
// error_format finding and no traversal. It returns false when the walk was
// cut short by ctx or the depth limit.
func (s *Scanner) scanJSON(ctx context.Context, text string, acc *detector.Accumulator) bool {
	var (
		p    fastjson.Parser
		root *fastjson.Value
	)
	err := fastjson.Validate(text)
	if err == nil {
		root, err = p.Parse(text)
	}
	if err != nil {
		log.Debugf("(scanner) json parse failed: %v", err)
		acc.Add(types.Finding{
			Key:      "$",
			Severity: types.SeverityErrorFormat,
			Message:  msgInvalidJSON,
			Line:     1,
			Path:     "$",
			Rule:     "invalid-json",
			Penalty:  detector.PenaltyInvalidJSON,
		})
		return true
	}

	w := &jsonWalker{ctx: ctx, s: s, acc: acc}
	w.walk(root, nil, 0)
	return !w.stopped
}

func (w *jsonWalker) walk(v *fastjson.Value, path []string, depth int) {
	if w.stopped {
		return
	}
	if depth > maxJSONDepth {
		w.stopped = true
		return
	}

	switch v.Type() {
	case fastjson.TypeObject:
		obj, _ := v.Object()
		obj.Visit(func(k []byte, child *fastjson.Value) {
			if w.stopped {
				return
			}
			w.visited++
			if w.visited%checkInterval == 0 && w.ctx.Err() != nil {
				w.stopped = true
				return
			}
			key := string(k)
			childPath := append(path[:len(path):len(path)], key)
			w.member(key, strings.Join(childPath, "."), child)
			w.walk(child, childPath, depth+1)
		})
	case fastjson.TypeArray:
		items, _ := v.Array()
		for _, item := range items {
			w.walk(item, path, depth+1)
		}
	}
}

// member checks one key/value pair. Non-string values, containers included,
// are matched in their serialized JSON form.
func (w *jsonWalker) member(key, path string, v *fastjson.Value) {
	if !validJSONKeyRe.MatchString(key) {
		w.acc.Add(types.Finding{
			Key:      path,
			Severity: types.SeverityWarningFormat,
			Message:  msgInvalidKey,
			Path:     path,
			Rule:     "invalid-key",
			Penalty:  detector.PenaltyInvalidKey,
		})
	}

	var value string
	switch v.Type() {
	case fastjson.TypeString:
		b, _ := v.StringBytes()
		value = string(b)
	default:
		value = string(v.MarshalTo(nil))
	}

	if p, ok := w.s.catalog.Match(key, value); ok {
		w.acc.Add(types.Finding{
			Key:      path,
			Severity: p.Severity,
			Message:  p.Message,
			Path:     path,
			Rule:     p.Name,
			Penalty:  detector.Penalty(p.Severity),
		})
	}
}
