package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/had-nu/envpatrol/internal/log"
	"github.com/had-nu/envpatrol/internal/recommend"
	"github.com/had-nu/envpatrol/internal/scanner"
)

func init() {
	log.SetLogger(log.Silent{})
}

func do(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestScan(t *testing.T) {
	srv := New()

	rec := do(t, srv, http.MethodPost, "/api/scan", `{"content":"A=1\nA=2\nAPI_KEY=x"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var got scanResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 88, got.Score)
	assert.Equal(t, "dotenv", string(got.Format))
	require.Len(t, got.Findings, 2)
	assert.Equal(t, "duplicate variable", got.Findings[0].Message)
	assert.Equal(t, recommend.Formatting, got.Findings[0].Recommendation)
	assert.Equal(t, recommend.Secret, got.Findings[1].Recommendation)
}

func TestScan_Errors(t *testing.T) {
	srv := New()

	rec := do(t, srv, http.MethodPost, "/api/scan", `{`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid json")

	rec = do(t, srv, http.MethodGet, "/api/scan", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	small := New(WithMaxBody(16))
	rec = do(t, small, http.MethodPost, "/api/scan", `{"content":"`+strings.Repeat("A", 64)+`"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestScan_Cached(t *testing.T) {
	srv := New(WithCacheTTL(time.Minute))
	content := "PASSWORD=x"

	first := srv.scan(context.Background(), content)
	assert.Equal(t, 1, srv.cache.Len())
	second := srv.scan(context.Background(), content)
	assert.Equal(t, first, second)

	aborting := New(WithScanner(scanner.New(scanner.WithMaxInputBytes(4))))
	res := aborting.scan(context.Background(), content)
	assert.True(t, res.Aborted)
	assert.Equal(t, 0, aborting.cache.Len())
}

func TestFormatFix(t *testing.T) {
	t.Run("free", func(t *testing.T) {
		srv := New()
		rec := do(t, srv, http.MethodPost, "/api/format-fix", `{"content":"  A=1\nA=2\nB=hello world"}`)
		require.Equal(t, http.StatusOK, rec.Code)

		var got fixResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.True(t, got.OK)
		assert.False(t, got.Pro)
		assert.Equal(t, "A=1\nB=\"hello world\"\n", got.Fixed)
		assert.Equal(t, got.Fixed, got.Diff.After)
		assert.Equal(t, "  A=1\nA=2\nB=hello world", got.Diff.Before)
		assert.Equal(t, 95, got.ScoreBefore)
		assert.Equal(t, 100, got.ScoreAfter)
	})

	t.Run("empty content", func(t *testing.T) {
		rec := do(t, New(), http.MethodPost, "/api/format-fix", `{"content":"   "}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "No content")
	})

	t.Run("paid without key", func(t *testing.T) {
		srv := New(WithFeatures(Features{AutoFixPaid: true}))
		rec := do(t, srv, http.MethodPost, "/api/format-fix", `{"content":"A=1"}`)
		assert.Equal(t, http.StatusPaymentRequired, rec.Code)

		var got map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, false, got["ok"])
		assert.Equal(t, false, got["pro"])
	})

	t.Run("paid with key", func(t *testing.T) {
		srv := New(WithFeatures(Features{AutoFixPaid: true}))
		rec := do(t, srv, http.MethodPost, "/api/format-fix", `{"content":"A=1","licenseKey":"envp_123"}`)
		require.Equal(t, http.StatusOK, rec.Code)

		var got fixResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.True(t, got.Pro)
		assert.Equal(t, "A=1\n", got.Fixed)
	})
}

func TestReport(t *testing.T) {
	srv := New()

	rec := do(t, srv, http.MethodPost, "/api/report?format=text", `{"content":"PASSWORD=x"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "Security Score: 90/100")
	assert.Contains(t, rec.Body.String(), "--- Original Content ---\nPASSWORD=x\n")

	rec = do(t, srv, http.MethodPost, "/api/report", `{"content":"<b>=1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "&lt;b&gt;=1")

	rec = do(t, srv, http.MethodPost, "/api/report?format=sarif", `{"content":"A=1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	gated := New(WithFeatures(Features{PDFPaid: true}))
	rec = do(t, gated, http.MethodPost, "/api/report?format=html", `{"content":"A=1"}`)
	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
	rec = do(t, gated, http.MethodPost, "/api/report?format=text", `{"content":"A=1"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestVerify(t *testing.T) {
	srv := New()
	tests := []struct {
		body string
		want bool
	}{
		{`{"licenseKey":"envp_abc"}`, true},
		{`{"licenseKey":"abc"}`, false},
		{`{}`, false},
		{`not json`, false},
	}
	for _, tt := range tests {
		rec := do(t, srv, http.MethodPost, "/api/pro/verify", tt.body)
		require.Equal(t, http.StatusOK, rec.Code)
		var got map[string]bool
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, tt.want, got["ok"], tt.body)
	}
}

func TestVersion(t *testing.T) {
	srv := New(WithVersion("1.2.3"), WithFeatures(Features{AutoFixPaid: true}))
	rec := do(t, srv, http.MethodGet, "/api/version", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got struct {
		Name     string         `json:"name"`
		Version  string         `json:"version"`
		Features map[string]any `json:"features"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "EnvPatrol", got.Name)
	assert.Equal(t, "1.2.3", got.Version)
	assert.Equal(t, "Pro", got.Features["autofix"])
	assert.Equal(t, "Free", got.Features["pdf"])
	assert.Equal(t, true, got.Features["scan"])
}

func TestListenAndServe_Shutdown(t *testing.T) {
	srv := New()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- srv.ListenAndServe(ctx, "127.0.0.1:0")
	}()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not shut down")
	}
}
