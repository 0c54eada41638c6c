package reporter

import (
	"fmt"
	"html/template"
	"io"
	"strings"

	"github.com/had-nu/envpatrol/internal/recommend"
)

var htmlReport = template.Must(template.New("report").Funcs(template.FuncMap{
	"upper":     func(s any) string { return strings.ToUpper(fmt.Sprint(s)) },
	"recommend": recommend.For,
}).Parse(`<!doctype html>
<html>
<head>
  <meta charset="utf-8" />
  <title>EnvPatrol Report</title>
  <style>
    body { font: 14px/1.5 system-ui, -apple-system, Segoe UI, Roboto, Arial; padding: 24px; color: #111; }
    h1 { margin: 0 0 8px; }
    .meta { color: #666; margin-bottom: 16px; }
    .rec { color: #444; }
    code, pre { background: #f7f7f9; padding: 2px 6px; border-radius: 4px; }
    pre { padding: 12px; overflow: auto; }
    ul { padding-left: 20px; }
    .btn { display: inline-block; padding: 8px 12px; border: 1px solid #ddd; border-radius: 6px; margin: 12px 0; cursor: pointer; }
    @media print { .btn { display: none; } }
  </style>
</head>
<body>
  <h1>EnvPatrol Scan Report</h1>
{{- range .}}
  <section>
  {{- if .Path}}
    <h2><code>{{.Path}}</code></h2>
  {{- end}}
    <div class="meta">Format: {{upper .Result.Format}} &middot; Security Score: <strong>{{.Result.Score}}/100</strong></div>
    <h3>Issues</h3>
  {{- if .Result.Findings}}
    <ul>
    {{- range .Result.Findings}}
      <li><strong>[{{upper .Severity}}]</strong> <code>{{.Key}}</code>{{if .Line}} (line {{.Line}}){{end}} &mdash; {{.Message}}<br /><span class="rec">{{recommend .}}</span></li>
    {{- end}}
    </ul>
  {{- else}}
    <p>No issues</p>
  {{- end}}
  {{- if .Content}}
    <h3>Original Content</h3>
    <pre>{{.Content}}</pre>
  {{- end}}
  </section>
{{- end}}
  <button class="btn" onclick="window.print()">Print or Save as PDF</button>
</body>
</html>
`))

func writeHTML(w io.Writer, docs []Document) error {
	if err := htmlReport.Execute(w, docs); err != nil {
		return fmt.Errorf("render html report: %w", err)
	}
	return nil
}
