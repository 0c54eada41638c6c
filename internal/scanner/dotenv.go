package scanner

import (
	"context"
	"strings"

	"github.com/had-nu/envpatrol/internal/detector"
	"github.com/had-nu/envpatrol/internal/dotenv"
	"github.com/had-nu/envpatrol/internal/types"
)

const (
	msgLeadingSpace    = "leading spaces before key"
	msgMissingAssign   = "missing '=' in assignment"
	msgInvalidKey      = "key contains invalid characters"
	msgDuplicate       = "duplicate variable"
	msgUnquotedSpaces  = "unquoted value contains spaces"
	msgBooleanString   = "boolean stored as string"
	msgLiteralNewline  = "literal newline without quotes"
	msgCommentedPrefix = "commented secret detected: "
)

// scanDotEnv walks text line by line. It returns false when ctx expired
// before every line was processed.
func (s *Scanner) scanDotEnv(ctx context.Context, text string, acc *detector.Accumulator) bool {
	seen := make(map[string]struct{})

	for i, raw := range dotenv.Split(text) {
		if i%checkInterval == 0 && ctx.Err() != nil {
			return false
		}

		lineNum := i + 1
		l := dotenv.Lex(raw)

		switch l.Kind {
		case dotenv.Comment:
			s.checkComment(l.Comment, lineNum, acc)
			continue
		case dotenv.Assignment:
		case dotenv.Malformed:
			acc.Add(types.Finding{
				Key:      strings.TrimSpace(l.Text),
				Severity: types.SeverityErrorFormat,
				Message:  msgMissingAssign,
				Line:     lineNum,
				Rule:     "missing-assign",
				Penalty:  detector.PenaltyMissingAssign,
			})
			continue
		default:
			continue
		}

		if l.Indented {
			acc.Add(structural(l.RawKey, msgLeadingSpace, "leading-space", lineNum, detector.PenaltyLeadingSpace))
		}

		if !l.KeyValid {
			acc.Add(structural(l.RawKey, msgInvalidKey, "invalid-key", lineNum, detector.PenaltyInvalidKey))
		}

		norm := strings.ToUpper(l.Key)
		if _, dup := seen[norm]; dup {
			acc.Add(structural(l.RawKey, msgDuplicate, "duplicate", lineNum, detector.PenaltyDuplicate))
			s.checkInlineComment(l, lineNum, acc)
			continue
		}
		seen[norm] = struct{}{}

		s.checkValue(l, lineNum, acc)
		s.checkInlineComment(l, lineNum, acc)
	}

	return true
}

func (s *Scanner) checkValue(l dotenv.Line, lineNum int, acc *detector.Accumulator) {
	if l.Quote == 0 {
		if dotenv.ContainsSpace(l.Value) {
			acc.Add(structural(l.RawKey, msgUnquotedSpaces, "unquoted-spaces", lineNum, detector.PenaltyUnquotedSpaces))
		}
		if strings.Contains(l.Value, `\n`) {
			acc.Add(structural(l.RawKey, msgLiteralNewline, "literal-newline", lineNum, detector.PenaltyLiteralNewline))
		}
	} else if strings.EqualFold(l.Value, "true") || strings.EqualFold(l.Value, "false") {
		acc.Add(types.Finding{
			Key:      l.RawKey,
			Severity: types.SeverityLow,
			Message:  msgBooleanString,
			Line:     lineNum,
			Rule:     "boolean-string",
			Penalty:  detector.PenaltyBooleanString,
		})
	}

	if p, ok := s.catalog.Match(l.Key, l.Value); ok {
		acc.Add(types.Finding{
			Key:      l.RawKey,
			Severity: p.Severity,
			Message:  p.Message,
			Line:     lineNum,
			Rule:     p.Name,
			Penalty:  detector.Penalty(p.Severity),
		})
	}
}

func (s *Scanner) checkInlineComment(l dotenv.Line, lineNum int, acc *detector.Accumulator) {
	if l.HasComment {
		s.checkComment(l.Comment, lineNum, acc)
	}
}

// checkComment reports catalog matches inside comment text one tier lower
// than their live equivalent. Commented keys never enter the seen-set.
func (s *Scanner) checkComment(comment string, lineNum int, acc *detector.Accumulator) {
	for _, frag := range dotenv.Fragments(comment) {
		p, ok := s.catalog.Match(frag.Key, frag.Value)
		if !ok {
			continue
		}
		acc.Add(types.Finding{
			Key:      frag.Key,
			Severity: detector.Downgrade(p.Severity),
			Message:  msgCommentedPrefix + p.Message,
			Line:     lineNum,
			Rule:     "commented-" + p.Name,
			Penalty:  detector.PenaltyCommentedSecret,
		})
	}
}

func structural(key, msg, rule string, line, penalty int) types.Finding {
	return types.Finding{
		Key:      key,
		Severity: types.SeverityWarningFormat,
		Message:  msg,
		Line:     line,
		Rule:     rule,
		Penalty:  penalty,
	}
}
