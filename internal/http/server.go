package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"seikyu/internal/cache"
	"seikyu/internal/log"
	"seikyu/internal/services"
	"seikyu/internal/storage"
	appweb "seikyu/web"
)

const (
	listCacheKey = "all"
	cacheTTL     = 5 * time.Minute
)

// Server serves the invoice page, the JSON API, PDF downloads and
// draft persistence on top of an InvoiceService.
type Server struct {
	http.Server
	svc       *services.InvoiceService
	templates *template.Template
	logger    *log.Logger
	reqLog    *log.StructuredLogger

	rateLimiter *rateLimiter
	metrics     *securityMetrics

	// Read-side caches, invalidated on every mutation.
	listCache   *cache.LRUCache[[]storage.InvoiceSummary]
	detailCache *cache.LRUCache[*storage.InvoiceRecord]
	cacheMgr    *cache.Manager

	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run
// http.Server.
func NewServer(addr string, svc *services.InvoiceService, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	mux := http.NewServeMux()

	s := &Server{
		svc:         svc,
		logger:      logger,
		reqLog:      log.NewStructuredLogger(logger),
		rateLimiter: newRateLimiter(),
		metrics:     &securityMetrics{},
		listCache:   cache.NewLRUCache[[]storage.InvoiceSummary](1, cacheTTL),
		detailCache: cache.NewLRUCache[*storage.InvoiceRecord](100, cacheTTL),
		cacheMgr:    cache.NewManager(),
	}
	s.Server = http.Server{
		Addr:    addr,
		Handler: log.Middleware(logger)(mux),
	}

	s.cacheMgr.Register(s.listCache)
	s.cacheMgr.Register(s.detailCache)
	s.cacheMgr.StartCleanup(10 * time.Minute)

	// Parse embedded templates at startup.
	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		logger.Warn("Failed parsing templates", "error", err)
	}
	s.templates = t

	// Static assets (served from embedded FS)
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "public, max-age=3600, immutable")
			static.ServeHTTP(w, r)
		}))
	} else {
		logger.Warn("Failed to mount embedded static FS", "error", err)
	}

	mux.HandleFunc("GET /{$}", s.withMiddleware(s.handleIndex))
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("POST /api/preview", s.withMiddleware(s.handlePreview))
	mux.HandleFunc("GET /api/invoices", s.withMiddleware(s.handleListInvoices))
	mux.HandleFunc("POST /api/invoices", s.withMiddleware(s.handleCreateInvoice))
	mux.HandleFunc("GET /api/invoices/{id}", s.withMiddleware(s.handleGetInvoice))
	mux.HandleFunc("PUT /api/invoices/{id}", s.withMiddleware(s.handleUpdateInvoice))
	mux.HandleFunc("DELETE /api/invoices/{id}", s.withMiddleware(s.handleDeleteInvoice))
	mux.HandleFunc("GET /api/invoices/{id}/pdf", s.withMiddleware(s.handleInvoicePDF))

	mux.HandleFunc("GET /api/drafts/{key}", s.withMiddleware(s.handleGetDraft))
	mux.HandleFunc("PUT /api/drafts/{key}", s.withMiddleware(s.handleSaveDraft))
	mux.HandleFunc("DELETE /api/drafts/{key}", s.withMiddleware(s.handleDeleteDraft))

	return s
}

// withMiddleware adds security headers, rate limiting and request
// logging to a handler.
func (s *Server) withMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := extractClientIP(r)

		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), log.LoggerContextKey,
			log.FromContext(r.Context()).With(log.FieldRequestID, requestID))
		r = r.WithContext(ctx)

		s.reqLog.LogHTTPStart(ctx, r, clientIP)

		if detectSuspiciousRequest(r, s.metrics) {
			s.logger.WarnContext(ctx, "Suspicious request detected",
				log.FieldClientIP, clientIP,
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path)
		}

		// Rate limit mutating requests only; reads are cached anyway.
		if r.Method != http.MethodGet && !s.rateLimiter.allow(clientIP, s.metrics) {
			s.logger.WarnContext(ctx, "Rate limit exceeded",
				log.FieldClientIP, clientIP,
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded, try again later")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self'; style-src 'self' 'unsafe-inline'; img-src 'self' data:; connect-src 'self'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		s.reqLog.LogHTTPEnd(ctx, r, rw.statusCode, time.Since(start).Milliseconds(), clientIP)
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (s *Server) invalidateInvoice(id int64) {
	s.listCache.Delete(listCacheKey)
	s.detailCache.Delete(detailCacheKey(id))
}

// Shutdown gracefully shuts down the server and cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.cacheMgr.Stop()
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}
