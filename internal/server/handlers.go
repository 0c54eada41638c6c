package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/render"

	"github.com/had-nu/envpatrol/internal/license"
	"github.com/had-nu/envpatrol/internal/log"
	"github.com/had-nu/envpatrol/internal/recommend"
	"github.com/had-nu/envpatrol/internal/reporter"
	"github.com/had-nu/envpatrol/internal/types"
)

type contentRequest struct {
	Content    string `json:"content"`
	LicenseKey string `json:"licenseKey"`
}

type scanResponse struct {
	Score    int                 `json:"score"`
	Format   types.Format        `json:"format"`
	Aborted  bool                `json:"aborted,omitempty"`
	Findings []recommend.Advised `json:"findings"`
}

func toScanResponse(res types.ScanResult) scanResponse {
	return scanResponse{
		Score:    res.Score,
		Format:   res.Format,
		Aborted:  res.Aborted,
		Findings: recommend.All(res.Findings),
	}
}

type diff struct {
	Before string `json:"before"`
	After  string `json:"after"`
}

type fixResponse struct {
	OK          bool   `json:"ok"`
	Pro         bool   `json:"pro"`
	Diff        diff   `json:"diff"`
	Fixed       string `json:"fixed"`
	ScoreBefore int    `json:"scoreBefore"`
	ScoreAfter  int    `json:"scoreAfter"`
}

type errorResponse struct {
	OK    bool   `json:"ok"`
	Pro   *bool  `json:"pro,omitempty"`
	Error string `json:"error"`
}

func decode(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

func fail(w http.ResponseWriter, r *http.Request, status int, msg string) {
	render.Status(r, status)
	render.JSON(w, r, errorResponse{Error: msg})
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	var req contentRequest
	if err := decode(r, &req); err != nil {
		fail(w, r, http.StatusBadRequest, "invalid json")
		return
	}
	render.JSON(w, r, toScanResponse(s.scan(r.Context(), req.Content)))
}

func (s *Server) handleFormatFix(w http.ResponseWriter, r *http.Request) {
	var req contentRequest
	if err := decode(r, &req); err != nil {
		log.Debugf("(server) format-fix body: %v", err)
	}

	gate := s.autoFixGate()
	if !gate.Allow(req.LicenseKey) {
		pro := false
		render.Status(r, http.StatusPaymentRequired)
		render.JSON(w, r, errorResponse{Pro: &pro, Error: "Pro license required"})
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		fail(w, r, http.StatusBadRequest, "No content")
		return
	}

	fixed := s.normalizer.Normalize(r.Context(), req.Content)
	render.JSON(w, r, fixResponse{
		OK:          true,
		Pro:         gate.Paid,
		Diff:        diff{Before: req.Content, After: fixed},
		Fixed:       fixed,
		ScoreBefore: s.scan(r.Context(), req.Content).Score,
		ScoreAfter:  s.scan(r.Context(), fixed).Score,
	})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = reporter.FormatHTML
	}

	var req contentRequest
	if err := decode(r, &req); err != nil {
		fail(w, r, http.StatusBadRequest, "invalid json")
		return
	}

	var contentType string
	switch format {
	case reporter.FormatHTML:
		if !s.pdfGate().Allow(req.LicenseKey) {
			fail(w, r, http.StatusPaymentRequired, "Pro license required")
			return
		}
		contentType = "text/html; charset=utf-8"
	case reporter.FormatText:
		contentType = "text/plain; charset=utf-8"
	default:
		fail(w, r, http.StatusBadRequest, "unsupported report format "+format)
		return
	}

	doc := reporter.Document{Content: req.Content, Result: s.scan(r.Context(), req.Content)}
	var buf bytes.Buffer
	if err := reporter.Write(&buf, format, doc); err != nil {
		log.Errorf("(server) render report: %v", err)
		fail(w, r, http.StatusInternalServerError, "report failed")
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req contentRequest
	if err := decode(r, &req); err != nil {
		log.Debugf("(server) verify body: %v", err)
	}
	render.JSON(w, r, map[string]bool{"ok": license.Valid(req.LicenseKey)})
}

func tier(paid bool) string {
	if paid {
		return "Pro"
	}
	return "Free"
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]any{
		"name":        "EnvPatrol",
		"version":     s.version,
		"description": "Universal .env and JSON security scanner with Pro auto-fix and license gating.",
		"features": map[string]any{
			"scan":    true,
			"autofix": tier(s.features.AutoFixPaid),
			"pdf":     tier(s.features.PDFPaid),
			"history": tier(s.features.HistoryPaid),
		},
	})
}
