// Package server exposes scanning, fixing and reporting over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	ttlcache "github.com/jellydator/ttlcache/v3"

	"github.com/had-nu/envpatrol/internal/license"
	"github.com/had-nu/envpatrol/internal/log"
	"github.com/had-nu/envpatrol/internal/normalizer"
	"github.com/had-nu/envpatrol/internal/scanner"
	"github.com/had-nu/envpatrol/internal/types"
)

const (
	DefaultCacheTTL = 5 * time.Minute

	// request bodies carry JSON-escaped content, so allow some headroom over
	// the scan budget
	defaultMaxBody = 4 * scanner.DefaultMaxInputBytes

	shutdownTimeout = 5 * time.Second
)

// Features are the paid feature switches.
type Features struct {
	AutoFixPaid bool
	PDFPaid     bool
	HistoryPaid bool
}

type Server struct {
	scanner    *scanner.Scanner
	normalizer *normalizer.Normalizer
	features   Features
	version    string
	maxBody    int64
	cache      *ttlcache.Cache[string, types.ScanResult]
}

type Option func(*Server)

func WithScanner(s *scanner.Scanner) Option {
	return func(srv *Server) {
		srv.scanner = s
	}
}

func WithNormalizer(n *normalizer.Normalizer) Option {
	return func(srv *Server) {
		srv.normalizer = n
	}
}

func WithFeatures(f Features) Option {
	return func(srv *Server) {
		srv.features = f
	}
}

func WithVersion(v string) Option {
	return func(srv *Server) {
		srv.version = v
	}
}

// WithCacheTTL sets how long scan results are reused for identical content.
func WithCacheTTL(ttl time.Duration) Option {
	return func(srv *Server) {
		srv.cache = newCache(ttl)
	}
}

func WithMaxBody(n int64) Option {
	return func(srv *Server) {
		srv.maxBody = n
	}
}

func New(opts ...Option) *Server {
	srv := &Server{
		version: "dev",
		maxBody: defaultMaxBody,
	}
	for _, opt := range opts {
		opt(srv)
	}
	if srv.scanner == nil {
		srv.scanner = scanner.New()
	}
	if srv.normalizer == nil {
		srv.normalizer = normalizer.New(normalizer.WithScanner(srv.scanner))
	}
	if srv.cache == nil {
		srv.cache = newCache(DefaultCacheTTL)
	}
	return srv
}

func (s *Server) autoFixGate() license.Gate {
	return license.Gate{Paid: s.features.AutoFixPaid}
}

func (s *Server) pdfGate() license.Gate {
	return license.Gate{Paid: s.features.PDFPaid}
}

// Handler returns the API router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(middleware.RequestSize(s.maxBody))

	r.Route("/api", func(r chi.Router) {
		r.Post("/scan", s.handleScan)
		r.Post("/format-fix", s.handleFormatFix)
		r.Post("/report", s.handleReport)
		r.Post("/pro/verify", s.handleVerify)
		r.Get("/version", s.handleVersion)
	})
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go s.cache.Start()
	defer s.cache.Stop()

	errc := make(chan error, 1)
	go func() {
		log.Infof("(server) listening on %s", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen on %s: %w", addr, err)
	case <-ctx.Done():
		log.Infof("(server) shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		log.Debugf("(server) %s %s %d %s", r.Method, r.URL.Path, ww.Status(), time.Since(start))
	})
}
