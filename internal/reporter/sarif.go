package reporter

import (
	"fmt"
	"io"

	"github.com/owenrumney/go-sarif/sarif"

	"github.com/had-nu/envpatrol/internal/types"
)

const (
	toolName = "envpatrol"
	toolURI  = "https://github.com/had-nu/envpatrol"

	stdinArtifact = "stdin"
)

// sarifLevel maps a severity onto a SARIF result level.
func sarifLevel(s types.Severity) string {
	switch s {
	case types.SeverityCritical, types.SeverityHigh, types.SeverityErrorFormat:
		return "error"
	case types.SeverityMedium, types.SeverityWarningFormat:
		return "warning"
	default:
		return "note"
	}
}

func ruleID(f types.Finding) string {
	if f.Rule != "" {
		return f.Rule
	}
	return string(f.Severity)
}

func writeSARIF(w io.Writer, docs []Document) error {
	report, err := sarif.New(sarif.Version210)
	if err != nil {
		return fmt.Errorf("create sarif report: %w", err)
	}

	run := sarif.NewRun(toolName, toolURI)
	rules := make(map[string]struct{})

	for _, d := range docs {
		artifact := d.Path
		if artifact == "" {
			artifact = stdinArtifact
		}
		for _, f := range d.Result.Findings {
			id := ruleID(f)
			if _, ok := rules[id]; !ok {
				rules[id] = struct{}{}
				run.AddRule(id).WithDescription(f.Message)
			}

			loc := sarif.NewPhysicalLocation().
				WithArtifactLocation(sarif.NewSimpleArtifactLocation(artifact))
			if f.Line > 0 {
				loc = loc.WithRegion(sarif.NewSimpleRegion(f.Line, f.Line))
			}

			run.AddResult(id).
				WithLevel(sarifLevel(f.Severity)).
				WithMessage(sarif.NewTextMessage(fmt.Sprintf("%s: %s", f.Key, f.Message))).
				WithLocation(sarif.NewLocationWithPhysicalLocation(loc))
		}
	}

	report.AddRun(run)
	if err := report.Write(w); err != nil {
		return fmt.Errorf("write sarif report: %w", err)
	}
	return nil
}
