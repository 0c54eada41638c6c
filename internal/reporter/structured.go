package reporter

import (
	"encoding/json"
	"fmt"
	"io"

	"go.yaml.in/yaml/v3"

	"github.com/had-nu/envpatrol/internal/recommend"
	"github.com/had-nu/envpatrol/internal/types"
)

// document is the serialized form of a Document: the scan result with a
// recommendation attached to every finding. The original content is never
// serialized.
type document struct {
	Path     string              `json:"path,omitempty" yaml:"path,omitempty"`
	Score    int                 `json:"score" yaml:"score"`
	Format   types.Format        `json:"format" yaml:"format"`
	Aborted  bool                `json:"aborted,omitempty" yaml:"aborted,omitempty"`
	Findings []recommend.Advised `json:"findings" yaml:"findings"`
}

func toDocument(d Document) document {
	return document{
		Path:     d.Path,
		Score:    d.Result.Score,
		Format:   d.Result.Format,
		Aborted:  d.Result.Aborted,
		Findings: recommend.All(d.Result.Findings),
	}
}

// payload returns a single object for one document and a list otherwise.
func payload(docs []Document) any {
	if len(docs) == 1 {
		return toDocument(docs[0])
	}
	out := make([]document, 0, len(docs))
	for _, d := range docs {
		out = append(out, toDocument(d))
	}
	return out
}

func writeJSON(w io.Writer, docs []Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(payload(docs)); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

func writeYAML(w io.Writer, docs []Document) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(payload(docs)); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return nil
}
