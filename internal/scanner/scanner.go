package scanner

import (
	"context"
	"strings"
	"time"

	"github.com/had-nu/envpatrol/internal/detector"
	"github.com/had-nu/envpatrol/internal/log"
	"github.com/had-nu/envpatrol/internal/types"
)

const (
	// DefaultMaxInputBytes bounds the text a single scan accepts.
	DefaultMaxInputBytes = 1 << 20
	// DefaultTimeout bounds the wall time of a single scan.
	DefaultTimeout = 2 * time.Second

	// lines between context checks
	checkInterval = 256

	bom = "\uFEFF"
)

const msgAborted = "scan aborted: input too complex"

// Scanner classifies configuration text and runs the matching analyzer.
// A Scanner holds no per-scan state and is safe for concurrent use.
type Scanner struct {
	catalog       *detector.Catalog
	maxInputBytes int
	timeout       time.Duration
}

type Option func(*Scanner)

// WithCatalog replaces the built-in pattern catalog.
func WithCatalog(c *detector.Catalog) Option {
	return func(s *Scanner) {
		s.catalog = c
	}
}

// WithMaxInputBytes sets the input size budget. Zero or less disables it.
func WithMaxInputBytes(n int) Option {
	return func(s *Scanner) {
		s.maxInputBytes = n
	}
}

// WithTimeout sets the per-scan time budget. Zero or less disables it.
func WithTimeout(d time.Duration) Option {
	return func(s *Scanner) {
		s.timeout = d
	}
}

func New(opts ...Option) *Scanner {
	s := &Scanner{
		catalog:       detector.Default,
		maxInputBytes: DefaultMaxInputBytes,
		timeout:       DefaultTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DetectFormat classifies text by its first significant character.
func DetectFormat(text string) types.Format {
	t := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(text), bom))
	if t != "" && (t[0] == '{' || t[0] == '[') {
		return types.FormatJSON
	}
	return types.FormatDotEnv
}

// Scan analyzes text and never fails: malformed input, exhausted budgets and
// cancellation all surface as findings in the returned result.
func (s *Scanner) Scan(ctx context.Context, text string) types.ScanResult {
	text = strings.TrimPrefix(text, bom)
	if strings.TrimSpace(text) == "" {
		return types.ScanResult{Score: detector.MaxScore, Findings: []types.Finding{}, Format: types.FormatDotEnv}
	}

	format := DetectFormat(text)
	acc := detector.NewAccumulator()

	if s.maxInputBytes > 0 && len(text) > s.maxInputBytes {
		log.Debugf("(scanner) input of %d bytes exceeds budget of %d", len(text), s.maxInputBytes)
		return abort(acc, format)
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	var completed bool
	switch format {
	case types.FormatJSON:
		completed = s.scanJSON(ctx, text, acc)
	default:
		completed = s.scanDotEnv(ctx, text, acc)
	}

	if !completed {
		log.Debugf("(scanner) %s scan interrupted: %v", format, ctx.Err())
		return abort(acc, format)
	}
	return acc.Result(format)
}

func abort(acc *detector.Accumulator, format types.Format) types.ScanResult {
	acc.Add(types.Finding{
		Key:      "$",
		Severity: types.SeverityErrorFormat,
		Message:  msgAborted,
		Path:     "$",
		Rule:     "aborted",
		Penalty:  detector.PenaltyAborted,
	})
	res := acc.Result(format)
	res.Aborted = true
	return res
}

// StructuralCount scans text and returns its number of formatting findings.
func (s *Scanner) StructuralCount(ctx context.Context, text string) int {
	return s.Scan(ctx, text).StructuralCount()
}
