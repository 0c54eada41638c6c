package detector

import "github.com/had-nu/envpatrol/internal/types"

const (
	MaxScore = 100
	MinScore = 0
)

// Structural penalties are fixed per rule.
const (
	PenaltyInvalidJSON     = 20
	PenaltyAborted         = 20
	PenaltyMissingAssign   = 5
	PenaltyLeadingSpace    = 2
	PenaltyInvalidKey      = 2
	PenaltyDuplicate       = 2
	PenaltyUnquotedSpaces  = 1
	PenaltyLiteralNewline  = 1
	PenaltyBooleanString   = 2
	PenaltyCommentedSecret = 3
)

// Penalty maps a content severity to its score deduction.
func Penalty(s types.Severity) int {
	switch s {
	case types.SeverityCritical:
		return 20
	case types.SeverityHigh:
		return 10
	case types.SeverityMedium:
		return 5
	case types.SeverityLow:
		return 2
	default:
		return 0
	}
}

// Accumulator collects findings in detection order and tracks the running
// score. The zero value is not usable; call NewAccumulator.
type Accumulator struct {
	penalty  int
	findings []types.Finding
}

func NewAccumulator() *Accumulator {
	return &Accumulator{findings: make([]types.Finding, 0)}
}

// Add records f and deducts its penalty.
func (a *Accumulator) Add(f types.Finding) {
	if f.Penalty < 0 {
		f.Penalty = 0
	}
	a.penalty += f.Penalty
	a.findings = append(a.findings, f)
}

// Score returns 100 minus the accumulated penalties, clamped to [0,100].
func (a *Accumulator) Score() int {
	return Clamp(MaxScore - a.penalty)
}

// Findings returns the accumulated findings in insertion order.
func (a *Accumulator) Findings() []types.Finding {
	return a.findings
}

// Result assembles a ScanResult for format.
func (a *Accumulator) Result(format types.Format) types.ScanResult {
	return types.ScanResult{
		Score:    a.Score(),
		Findings: a.findings,
		Format:   format,
	}
}

// Clamp bounds a score to [MinScore, MaxScore].
func Clamp(score int) int {
	return max(MinScore, min(MaxScore, score))
}
