// Package server provides the HTTP REST API for the search grader.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/xtal-search/grader/internal/config"
	"github.com/xtal-search/grader/internal/ledger"
	"github.com/xtal-search/grader/internal/llm"
	"github.com/xtal-search/grader/internal/pipeline"
	"github.com/xtal-search/grader/internal/server/middleware"
)

// Grader runs one grading pipeline. *pipeline.Runner satisfies it; tests
// substitute a fake.
type Grader interface {
	Run(ctx context.Context, opts pipeline.RunOptions) (*pipeline.Result, error)
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	ledger     *ledger.Store
	grader     Grader
	llmClient  llm.Client
	jwtService *JWTService
	validate   *validator.Validate
}

// Config holds server configuration
type Config struct {
	ListenAddr  string
	DatabaseURL string
	APIKey      string
}

// New creates a new server instance
func New(ctx context.Context, cfg Config) (*Server, error) {
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("database URL is required in serve mode")
	}

	store, err := ledger.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	client, err := llm.NewClient(ctx, nil, cfg.APIKey)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	jwtConfig, err := config.NewJWTConfig()
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to create JWT config: %w", err)
	}

	s := &Server{
		ledger:     store,
		grader:     pipeline.NewRunner(client, store),
		llmClient:  client,
		jwtService: NewJWTService(jwtConfig),
		validate:   validator.New(),
	}

	addr := cfg.ListenAddr
	if addr == "" {
		addr = ":8080"
	}

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.withLogging(s.withCORS(s.routes())),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 300 * time.Second, // Long timeout for grading runs
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// routes builds the request multiplexer.
func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	// Public grading API
	mux.HandleFunc("POST /grade", s.handleGrade)
	mux.HandleFunc("POST /grade/stream", s.handleGradeStream)
	mux.HandleFunc("GET /reports/{id}", s.handleGetReport)
	mux.HandleFunc("GET /reports/{id}/evidence", s.handleReportEvidence)
	mux.HandleFunc("POST /reports/{id}/email", s.handleCaptureEmail)
	mux.HandleFunc("GET /health", s.handleHealth)

	// Admin API behind JWT authentication
	admin := middleware.AuthMiddleware(s.jwtService.AsTokenValidator())
	mux.Handle("GET /admin/runs", admin(http.HandlerFunc(s.handleListRuns)))
	mux.Handle("GET /admin/runs/{id}", admin(http.HandlerFunc(s.handleGetRun)))
	mux.Handle("GET /admin/prompts/{key}", admin(http.HandlerFunc(s.handleGetPrompt)))
	mux.Handle("PUT /admin/prompts/{key}", admin(http.HandlerFunc(s.handleUpdatePrompt)))
	mux.Handle("GET /admin/prompts/{key}/history", admin(http.HandlerFunc(s.handlePromptHistory)))

	return mux
}

// Start begins listening for requests
func (s *Server) Start() error {
	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("Server starting on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-stop
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	if s.llmClient != nil {
		_ = s.llmClient.Close()
	}
	if s.ledger != nil {
		s.ledger.Close()
	}
	log.Println("Server stopped")
	return nil
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withLogging adds request logging
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		log.Printf("[%s] %s %s", r.Method, r.URL.Path, r.RemoteAddr)
		next.ServeHTTP(w, r)
		log.Printf("[%s] %s completed in %v", r.Method, r.URL.Path, time.Since(start))
	})
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error encoding JSON response: %v", err)
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}

// extractClientID extracts the client identifier from the request.
// For MVP, this uses the IP address from RemoteAddr.
// In the future, this could use X-Forwarded-For header (only from trusted proxies).
func (s *Server) extractClientID(r *http.Request) string {
	// Get IP from RemoteAddr (format: "IP:port")
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		// If parsing fails, use the whole RemoteAddr
		return r.RemoteAddr
	}
	return ip
}

// checkRateLimit enforces the per-IP grading quota. Returns false after
// writing a 429 response when the caller is over the limit. A server
// without a ledger lets everything through.
func (s *Server) checkRateLimit(w http.ResponseWriter, r *http.Request) bool {
	if s.ledger == nil {
		return true
	}

	result, err := s.ledger.CheckRateLimit(r.Context(), s.extractClientID(r))
	if err != nil {
		// A broken counter should not take down grading
		log.Printf("[rate-limit] check failed: %v", err)
		return true
	}

	w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", ledger.RateLimitCap))
	w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", result.Remaining))

	if !result.Allowed {
		retryAfter := int(ledger.TTLRateLimit.Seconds())
		w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfter))
		log.Printf("[rate-limit] Rate limit exceeded for %s", s.extractClientID(r))
		s.jsonResponse(w, http.StatusTooManyRequests, map[string]interface{}{
			"error":       "rate_limit_exceeded",
			"message":     "Rate limit exceeded. Please try again later.",
			"limit":       ledger.RateLimitCap,
			"remaining":   result.Remaining,
			"retry_after": retryAfter,
		})
		return false
	}
	return true
}
