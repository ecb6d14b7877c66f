package http

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"walletwatcher/internal/log"
	"walletwatcher/internal/services"
	"walletwatcher/internal/sheets"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PriceSource returns the cached upstream price document verbatim.
type PriceSource interface {
	Raw(ctx context.Context) ([]byte, error)
}

type Server struct {
	http.Server

	wallet   *services.Wallet
	store    Pinger
	prices   PriceSource
	sheets   sheets.RowReader
	location *time.Location

	logger      *log.Logger
	structured  *log.StructuredLogger
	rateLimiter *rateLimiter
	metrics     *securityMetrics

	shutdownOnce sync.Once
}

type Option func(*Server)

// WithStore makes the readiness check ping the store.
func WithStore(p Pinger) Option { return func(s *Server) { s.store = p } }

func WithPriceSource(p PriceSource) Option { return func(s *Server) { s.prices = p } }

// WithSheets enables POST /api/import/sheets.
func WithSheets(r sheets.RowReader) Option { return func(s *Server) { s.sheets = r } }

// WithLocation sets the zone used for dates without an offset.
func WithLocation(loc *time.Location) Option { return func(s *Server) { s.location = loc } }

func WithLogger(l *log.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRateLimit overrides the per-client limit on mutating requests per minute.
func WithRateLimit(perMinute int) Option {
	return func(s *Server) {
		s.rateLimiter.stop()
		s.rateLimiter = newRateLimiter(perMinute, defaultRateWindow)
	}
}

// NewServer configures routes and returns a ready-to-run http.Server.
func NewServer(addr string, wallet *services.Wallet, opts ...Option) *Server {
	s := &Server{
		Server: http.Server{
			Addr:           addr,
			ReadTimeout:    10 * time.Second,
			WriteTimeout:   30 * time.Second,
			IdleTimeout:    60 * time.Second,
			MaxHeaderBytes: 1 << 16,
		},
		wallet:      wallet,
		location:    time.Local,
		logger:      log.Discard(),
		rateLimiter: newRateLimiter(DefaultRateLimit, defaultRateWindow),
		metrics:     &securityMetrics{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithComponent(log.ComponentHTTP)
	s.structured = log.NewStructuredLogger(s.logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	api := map[string]http.HandlerFunc{
		"GET /api/countries":                       s.handleCountries,
		"POST /api/onboarding":                     s.handleOnboarding,
		"GET /api/state":                           s.handleState,
		"GET /api/view":                            s.handleView,
		"POST /api/transactions":                   s.handleAddTransaction,
		"PUT /api/budgets/{categoryID}":            s.handleSetBudget,
		"POST /api/budgets/{categoryID}/complete":  s.handleCompleteBudget,
		"POST /api/goals":                          s.handleAddGoal,
		"POST /api/goals/{id}/funds":               s.handleAddFunds,
		"POST /api/goals/{id}/complete":            s.handleCompleteGoal,
		"PUT /api/profile/theme":                   s.handleUpdateTheme,
		"POST /api/import/xlsx":                    s.handleImportXLSX,
		"POST /api/import/qr":                      s.handleImportQR,
		"POST /api/import/sheets":                  s.handleImportSheets,
		"GET /api/export/xlsx":                     s.handleExportXLSX,
		"GET /api/export/qr":                       s.handleExportQR,
		"GET /api/export/qr.png":                   s.handleExportQRImage,
		"GET /api/export/pdf":                      s.handleExportPDF,
		"POST /api/logout":                         s.handleLogout,
		"GET /api/metals":                          s.handleMetals,
		"GET /api/assets":                          s.handleAssets,
		"GET /api/security":                        s.handleSecurityStats,
	}
	for pattern, h := range api {
		mux.HandleFunc(pattern, s.withSecurityHeaders(h))
	}

	s.Handler = mux
	return s
}

// withSecurityHeaders adds security headers, rate limiting and request logging.
func (s *Server) withSecurityHeaders(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := extractClientIP(r)
		requestID := generateRequestID()

		ctx := log.WithContext(r.Context(), s.logger.With(log.FieldRequestID, requestID))
		r = r.WithContext(ctx)
		s.structured.LogHTTPStart(ctx, r, requestID, clientIP)

		if detectSuspiciousRequest(r, s.metrics) {
			s.logger.WarnContext(ctx, "Suspicious request",
				log.FieldRequestID, requestID,
				log.FieldClientIP, clientIP,
				log.FieldPath, r.URL.Path)
		}

		w.Header().Set("X-Request-ID", requestID)
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Cache-Control", "no-store")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		if isMutating(r.Method) && !s.rateLimiter.allow(clientIP, s.metrics) {
			s.logger.WithComponent(log.ComponentRateLimit).WarnContext(ctx, "Rate limit exceeded",
				log.FieldClientIP, clientIP,
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path)
			ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded, please try again later").
				Header("Retry-After", strconv.Itoa(s.rateLimiter.retryAfter(clientIP))).
				Write(rw)
		} else {
			next(rw, r)
		}

		s.structured.LogHTTPEnd(ctx, r, requestID, rw.statusCode, time.Since(start).Milliseconds(), clientIP)
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

// Shutdown stops the rate limiter and then the HTTP server, once.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.store.Ping(ctx); err != nil {
			s.logger.WarnContext(ctx, "Readiness check failed", log.FieldError, err)
			http.Error(w, "store unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
