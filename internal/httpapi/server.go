// Package httpapi implements the HTTP surface (spec component J): a plain
// net/http + *http.ServeMux router, a small middleware chain (recovery,
// logging, metrics, CORS), bearer-token auth, and one handler per endpoint
// spec §6 documents. The middleware chain and responseWriter wrapper are
// grounded on the teacher's REST server (pkg/server/server.go); auth is
// deliberately much narrower — a single exact-match shared secret, not the
// teacher's JWT/RBAC stack, which has no analogue in this domain.
package httpapi

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"runtime"
	"strings"
	"sync/atomic"
	"time"

	"linkatlas/internal/anchor"
	"linkatlas/internal/catalog"
	"linkatlas/internal/config"
	"linkatlas/internal/embedding"
	"linkatlas/internal/entitygraph"
	"linkatlas/internal/eventlog"
	"linkatlas/internal/linkaudit"
	"linkatlas/internal/llm"
	"linkatlas/internal/recommender"
	"linkatlas/internal/seo"
)

// maxRequestBody bounds request bodies the way pkg/server.Config.MaxRequestSize
// does, sized for the catalog-sync-batch endpoint's larger payloads.
const maxRequestBody = 10 << 20 // 10MB

// Server holds every collaborator the HTTP surface dispatches to and the
// process-wide request counters the middleware maintains.
type Server struct {
	Config      *config.Config
	Catalog     catalog.Catalog
	Embedder    embedding.Client
	LLM         llm.Client
	Entities    *entitygraph.Retriever
	SEO         *seo.Cache
	Recommender *recommender.Recommender
	Auditor     *linkaudit.Auditor
	Lexicon     anchor.Lexicon
	EventLog    *eventlog.Logger
	Logger      *log.Logger

	requestCount   atomic.Int64
	errorCount     atomic.Int64
	activeRequests atomic.Int64
	startedAt      time.Time
}

// New builds a Server from its dependencies.
func New(cfg *config.Config, cat catalog.Catalog, embedder embedding.Client, llmClient llm.Client, entities *entitygraph.Retriever, seoCache *seo.Cache, rec *recommender.Recommender, auditor *linkaudit.Auditor, lexicon anchor.Lexicon, eventLog *eventlog.Logger) *Server {
	return &Server{
		Config:      cfg,
		Catalog:     cat,
		Embedder:    embedder,
		LLM:         llmClient,
		Entities:    entities,
		SEO:         seoCache,
		Recommender: rec,
		Auditor:     auditor,
		Lexicon:     lexicon,
		EventLog:    eventLog,
		Logger:      log.Default(),
		startedAt:   time.Now(),
	}
}

// Handler builds the routed, middleware-wrapped http.Handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/catalog-sync", s.withAuth(s.handleCatalogSync))
	mux.HandleFunc("/api/catalog-sync-batch", s.withAuth(s.handleCatalogSyncBatch))
	mux.HandleFunc("/api/smart-link", s.withAuth(s.handleSmartLink))
	mux.HandleFunc("/api/link-audit", s.withAuth(s.handleLinkAudit))
	mux.HandleFunc("/api/meta-generate", s.withAuth(s.handleMetaGenerate))
	mux.HandleFunc("/api/dismiss-opportunity", s.withAuth(s.handleDismissOpportunity))
	mux.HandleFunc("/api/seo-metrics", s.withAuth(s.handleSEOMetrics))
	mux.HandleFunc("/api/catalog-stats", s.withAuth(s.handleCatalogStats))

	var handler http.Handler = mux
	handler = s.corsMiddleware(handler)
	handler = s.loggingMiddleware(handler)
	handler = s.recoveryMiddleware(handler)
	handler = s.metricsMiddleware(handler)
	return handler
}

// ListenAndServe starts the HTTP surface on Config.Server.HTTPPort.
func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf(":%d", s.Config.Server.HTTPPort)
	s.log("listening on %s", addr)
	return http.ListenAndServe(addr, s.Handler())
}

func (s *Server) log(format string, args ...any) {
	if s.Logger != nil {
		s.Logger.Printf(format, args...)
	}
}

// withAuth requires an exact-match bearer token (spec §6 "Authentication");
// a mismatch or missing header is 401.
func (s *Server) withAuth(handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			handler(w, r)
			return
		}
		expected := s.Config.Auth.APISecretKey
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if expected == "" || subtle.ConstantTimeCompare([]byte(token), []byte(expected)) != 1 {
			s.writeError(w, http.StatusUnauthorized, "unauthorized", "")
			return
		}
		handler(w, r)
	}
}

// corsMiddleware echoes Config.Auth.AllowedOrigin and answers preflight
// requests directly, per spec §6 "CORS".
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := s.Config.Auth.AllowedOrigin
		if origin == "" {
			origin = "*"
		}
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (w *responseWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		if r.URL.Path != "/api/health" {
			s.log("%s %s %d %v", r.Method, r.URL.Path, wrapped.status, time.Since(start))
		}
	})
}

func (s *Server) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				buf := make([]byte, 4096)
				n := runtime.Stack(buf, false)
				s.log("panic: %v\n%s", rec, buf[:n])
				s.errorCount.Add(1)
				s.writeError(w, http.StatusInternalServerError, "internal server error", "")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.requestCount.Add(1)
		s.activeRequests.Add(1)
		defer s.activeRequests.Add(-1)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) readJSON(r *http.Request, v any) error {
	body := io.LimitReader(r.Body, maxRequestBody)
	return json.NewDecoder(body).Decode(v)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes the uniform error envelope spec §6 mandates:
// {error, message?}.
func (s *Server) writeError(w http.ResponseWriter, status int, errMsg, message string) {
	s.errorCount.Add(1)
	body := map[string]any{"error": errMsg}
	if message != "" {
		body["message"] = message
	}
	s.writeJSON(w, status, body)
}
