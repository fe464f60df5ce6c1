// Package http serves the dashboard, the admin console and the ingestion
// endpoint. Reads are not cached: every request refetches teams, members and
// the month's expenditures through the gateway.
package http

import (
	"context"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"teamspend/internal/service"
	"teamspend/internal/store"
	appweb "teamspend/web"
)

type Server struct {
	http.Server
	templates   *template.Template
	store       store.Store
	svc         *service.ExpenditureService
	rateLimiter *rateLimiter
	ingestToken string

	// Single-user admin session. The token is minted at login and replaced
	// by the next successful login.
	sessionMu    sync.Mutex
	sessionToken string

	shutdownOnce sync.Once
}

// Simple in-memory rate limiter, applied to POST requests only.
type rateLimiter struct {
	mu           sync.Mutex
	clients      map[string]*clientInfo
	stopCleanup  chan struct{}
	shutdownOnce sync.Once
}

type clientInfo struct {
	lastRequest time.Time
	requests    int
}

func newRateLimiter() *rateLimiter {
	rl := &rateLimiter{
		clients:     make(map[string]*clientInfo),
		stopCleanup: make(chan struct{}),
	}
	go rl.startCleanup()
	return rl
}

func (rl *rateLimiter) startCleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanupStaleEntries()
		case <-rl.stopCleanup:
			return
		}
	}
}

// cleanupStaleEntries removes client entries older than 10 minutes.
func (rl *rateLimiter) cleanupStaleEntries() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-10 * time.Minute)
	for ip, client := range rl.clients {
		if client.lastRequest.Before(cutoff) {
			delete(rl.clients, ip)
		}
	}
}

func (rl *rateLimiter) stop() {
	rl.shutdownOnce.Do(func() {
		close(rl.stopCleanup)
	})
}

func (rl *rateLimiter) allow(clientIP string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	client, exists := rl.clients[clientIP]
	if !exists {
		rl.clients[clientIP] = &clientInfo{lastRequest: now, requests: 1}
		return true
	}

	if now.Sub(client.lastRequest) > time.Minute {
		client.requests = 1
		client.lastRequest = now
		return true
	}

	// Up to 60 requests per minute per client.
	client.requests++
	client.lastRequest = now
	return client.requests <= 60
}

// NewServer configures routes and templates, returning a ready-to-run
// http.Server. ingestToken is the shared secret for /api/add-expense; empty
// means the endpoint is not configured and answers 500.
func NewServer(addr string, st store.Store, svc *service.ExpenditureService, ingestToken string) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		store:       st,
		svc:         svc,
		rateLimiter: newRateLimiter(),
		ingestToken: ingestToken,
	}

	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		slog.Warn("Failed parsing templates", "error", err)
	}
	s.templates = t

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("/static/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "public, max-age=3600, immutable")
			static.ServeHTTP(w, r)
		}))
	} else {
		slog.Warn("Failed to mount embedded static FS", "error", err)
	}

	mux.HandleFunc("/", s.withSecurityHeaders(s.handleIndex))
	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", handleReady)

	mux.HandleFunc("/api/add-expense", s.withSecurityHeaders(s.handleIngest))

	mux.HandleFunc("/admin", s.withSecurityHeaders(s.handleAdmin))
	mux.HandleFunc("/admin/login", s.withSecurityHeaders(s.handleLogin))
	mux.HandleFunc("/admin/logout", s.withSecurityHeaders(s.handleLogout))
	mux.HandleFunc("/admin/expenditures", s.withSecurityHeaders(s.requireSession(s.handleCreateExpenditure)))
	mux.HandleFunc("/admin/expenditures/update", s.withSecurityHeaders(s.requireSession(s.handleUpdateExpenditure)))
	mux.HandleFunc("/admin/expenditures/delete", s.withSecurityHeaders(s.requireSession(s.handleDeleteExpenditure)))
	mux.HandleFunc("/admin/expenditures/assign", s.withSecurityHeaders(s.requireSession(s.handleAssignMember)))
	mux.HandleFunc("/admin/teams", s.withSecurityHeaders(s.requireSession(s.handleCreateTeam)))
	mux.HandleFunc("/admin/teams/update", s.withSecurityHeaders(s.requireSession(s.handleUpdateTeam)))
	mux.HandleFunc("/admin/teams/budget", s.withSecurityHeaders(s.requireSession(s.handleUpdateTeamBudget)))
	mux.HandleFunc("/admin/teams/delete", s.withSecurityHeaders(s.requireSession(s.handleDeleteTeam)))
	mux.HandleFunc("/admin/members", s.withSecurityHeaders(s.requireSession(s.handleCreateMember)))
	mux.HandleFunc("/admin/members/update", s.withSecurityHeaders(s.requireSession(s.handleUpdateMember)))
	mux.HandleFunc("/admin/members/delete", s.withSecurityHeaders(s.requireSession(s.handleDeleteMember)))

	return s
}

// Shutdown gracefully shuts down the server and its cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// withSecurityHeaders adds security headers, rate limiting and request
// logging.
func (s *Server) withSecurityHeaders(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "Request started",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"client_ip", clientIP,
			"user_agent", r.Header.Get("User-Agent"))

		if r.Method == http.MethodPost && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded", "client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'self'; style-src 'self' 'unsafe-inline'; img-src 'self' data:; connect-src 'self'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		duration := time.Since(start)
		slog.InfoContext(ctx, "Request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", duration.Milliseconds(),
			"client_ip", clientIP)
	}
}

type requestIDKey struct{}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
