package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/jonathan/newsdesk/internal/aggregate"
	"github.com/jonathan/newsdesk/internal/server/middleware"
	"github.com/jonathan/newsdesk/internal/server/ratelimit"
	"github.com/jonathan/newsdesk/internal/static"
)

const shutdownTimeout = 30 * time.Second

// PageRenderer loads the page template and executes it.
type PageRenderer interface {
	Load() (*template.Template, error)
	Execute(w io.Writer, tmpl *template.Template, data aggregate.PageData) error
}

// PageAggregator produces the data for one page render.
type PageAggregator interface {
	Aggregate(ctx context.Context) aggregate.PageData
}

// Server represents the HTTP server
type Server struct {
	httpServer  *http.Server
	logger      zerolog.Logger
	renderer    PageRenderer
	aggregator  PageAggregator
	files       *static.Resolver
	rateLimiter *ratelimit.Limiter
}

// Config holds server configuration
type Config struct {
	Port int
}

// Dependencies are the collaborators a Server routes requests to.
type Dependencies struct {
	Logger      zerolog.Logger
	Renderer    PageRenderer
	Aggregator  PageAggregator
	Files       *static.Resolver
	RateLimiter *ratelimit.Limiter // nil disables rate limiting
}

// New creates a new server instance
func New(cfg Config, deps Dependencies) (*Server, error) {
	if deps.Renderer == nil {
		return nil, errors.New("server: renderer is required")
	}
	if deps.Aggregator == nil {
		return nil, errors.New("server: aggregator is required")
	}
	if deps.Files == nil {
		return nil, errors.New("server: static resolver is required")
	}

	s := &Server{
		logger:      deps.Logger,
		renderer:    deps.Renderer,
		aggregator:  deps.Aggregator,
		files:       deps.Files,
		rateLimiter: deps.RateLimiter,
	}
	if s.rateLimiter == nil {
		s.rateLimiter = ratelimit.NewLimiter(&ratelimit.Config{Enabled: false})
	}

	// Setup router
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /", s.handleStatic)

	handler := s.withRateLimit(
		middleware.RequestLogger(s.logger)(
			middleware.Recover()(
				s.withPathGuard(mux))))

	// Create HTTP server
	s.httpServer = &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Port),
		Handler:     handler,
		ReadTimeout: 30 * time.Second,
		// Covers the slower of the two upstream feeds plus rendering
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// Handler returns the full middleware chain and router.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Start begins listening for requests and blocks until SIGINT or SIGTERM.
func (s *Server) Start() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	listener, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.httpServer.Addr, err)
	}
	return s.Serve(ctx, listener)
}

// Serve handles connections on listener until ctx is done, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	serveErr := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", listener.Addr().String()).Msg("server starting")
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			return
		}
		serveErr <- nil
	}()

	select {
	case err := <-serveErr:
		s.rateLimiter.Stop()
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err := s.httpServer.Shutdown(shutdownCtx)

	// Stop rate limiter cleanup goroutine
	s.rateLimiter.Stop()

	if err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	<-serveErr
	s.logger.Info().Msg("server stopped")
	return nil
}

// handleIndex renders the page with whatever feeds arrived in time.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	logger := zerolog.Ctx(r.Context())

	tmpl, err := s.renderer.Load()
	if err != nil {
		logger.Error().Err(err).Msg("failed to load template")
		s.textResponse(w, HTTPStatus(err), ErrorMessage(err))
		return
	}

	data := s.aggregator.Aggregate(r.Context())

	var page bytes.Buffer
	if err := s.renderer.Execute(&page, tmpl, data); err != nil {
		logger.Error().Err(err).Msg("failed to render page")
		s.textResponse(w, HTTPStatus(err), ErrorMessage(err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	if _, err := page.WriteTo(w); err != nil {
		logger.Warn().Err(err).Msg("failed to write page")
	}
}

// handleStatic streams a file from the static root.
func (s *Server) handleStatic(w http.ResponseWriter, r *http.Request) {
	logger := zerolog.Ctx(r.Context())

	file, err := s.files.Open(r.URL.Path)
	if err != nil {
		logger.Debug().Err(err).Msg("static file rejected")
		s.textResponse(w, HTTPStatus(err), ErrorMessage(err))
		return
	}
	defer func() { _ = file.Close() }()

	w.Header().Set("Content-Type", file.ContentType)
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}

	// Headers are committed, so a failure here can only cut the body short.
	if _, err := io.Copy(w, file); err != nil {
		logger.Warn().Err(err).Str("file", file.Path).Msg("static stream aborted")
	}
}

// handleHealth returns server health status. The path is reserved: a static
// file named healthz under the root is never served.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// withPathGuard sends paths with dot segments straight to the static branch.
// ServeMux would otherwise redirect them to their cleaned form, hiding the
// escape attempt from the containment check.
func (s *Server) withPathGuard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !hasDotSegment(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			s.textResponse(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		s.handleStatic(w, r)
	})
}

func hasDotSegment(p string) bool {
	for _, seg := range strings.Split(p, "/") {
		if seg == "." || seg == ".." {
			return true
		}
	}
	return false
}

// withRateLimit adds rate limiting middleware
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Extract client identifier (IP address)
		clientID := s.extractClientID(r)

		// Check rate limit
		allowed, info := s.rateLimiter.Allow(clientID, r.URL.Path, r.Method)

		if !allowed {
			// Set rate limit headers
			s.setRateLimitHeaders(w, info)
			// Return 429 Too Many Requests
			s.rateLimitResponse(w, clientID, info)
			return
		}

		// Set rate limit headers for successful requests
		s.setRateLimitHeaders(w, info)
		next.ServeHTTP(w, r)
	})
}

// textResponse writes a plain-text body with the given status.
func (s *Server) textResponse(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, message)
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error().Err(err).Msg("error encoding JSON response")
	}
}

// extractClientID extracts the client identifier from the request.
// This uses the IP address from RemoteAddr; X-Forwarded-For is not trusted.
func (s *Server) extractClientID(r *http.Request) string {
	// Get IP from RemoteAddr (format: "IP:port")
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		// If parsing fails, use the whole RemoteAddr
		return r.RemoteAddr
	}
	return ip
}

// setRateLimitHeaders sets standard rate limit headers on the response.
func (s *Server) setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", info.Limit))
		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", info.Remaining))
		w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", info.ResetTime.Unix()))
	}
}

// rateLimitResponse writes a 429 Too Many Requests response with rate limit information.
func (s *Server) rateLimitResponse(w http.ResponseWriter, clientID string, info ratelimit.Info) {
	response := map[string]interface{}{
		"error":     "rate_limit_exceeded",
		"message":   "Rate limit exceeded. Please try again later.",
		"limit":     info.Limit,
		"remaining": info.Remaining,
	}
	if !info.ResetTime.IsZero() {
		response["reset_at"] = info.ResetTime.Format(time.RFC3339)
	}

	if info.RetryAfter > 0 {
		seconds := int(info.RetryAfter.Seconds())
		if seconds < 1 {
			seconds = 1
		}
		response["retry_after"] = seconds
		w.Header().Set("Retry-After", fmt.Sprintf("%d", seconds))
	}

	s.logger.Warn().
		Str("client", clientID).
		Int("limit", info.Limit).
		Int("remaining", info.Remaining).
		Msg("rate limit exceeded")

	s.jsonResponse(w, http.StatusTooManyRequests, response)
}
