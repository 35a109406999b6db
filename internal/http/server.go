package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"posto/internal/billing"
	"posto/internal/cache"
	"posto/internal/core"
	appweb "posto/web"
)

// BookingStore is the day-booking collection boundary.
type BookingStore interface {
	ListBookings(ctx context.Context) ([]core.Booking, error)
	CreateBooking(ctx context.Context, date core.Date, occupant string) (core.Booking, error)
	GetBooking(ctx context.Context, id string) (core.Booking, error)
	DeleteBooking(ctx context.Context, id string) error
}

// StatusStore is the period paid-status collection boundary.
type StatusStore interface {
	ListStatuses(ctx context.Context) ([]core.PeriodStatus, error)
	UpsertStatus(ctx context.Context, start, end core.Date, paid bool) (core.PeriodStatus, error)
}

// StatementQueue publishes statement delivery requests. Optional; a nil
// queue means statements are only available via the export endpoint.
type StatementQueue interface {
	PublishStatementRequest(ctx context.Context, p core.Period) error
}

// Options configures a Server.
type Options struct {
	Addr     string
	Bookings BookingStore
	Statuses StatusStore
	Queue    StatementQueue
	Tariff   billing.Tariff
	Anchor   core.Date
	Payer    string
	Owner    string
}

type Server struct {
	http.Server
	templates *template.Template

	bookings  BookingStore
	statuses  StatusStore
	queue     StatementQueue
	tariff    billing.Tariff
	anchor    core.Date
	occupants [2]string

	rateLimiter *rateLimiter

	// Read caches over the two store collections, invalidated on every
	// successful mutation so the view never runs ahead of the store.
	bookingCache *cache.LRUCache[[]core.Booking]
	statusCache  *cache.LRUCache[[]core.PeriodStatus]
	cacheManager *cache.Manager

	shutdownOnce sync.Once
}

// Simple in-memory rate limiter
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

// startCleanup runs periodic cleanup to remove stale client entries
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

// cleanupStaleEntries removes client entries older than 10 minutes
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

// stop gracefully shuts down the rate limiter cleanup goroutine
func (rl *rateLimiter) stop() {
	rl.shutdownOnce.Do(func() {
		if rl.stopCleanup != nil {
			close(rl.stopCleanup)
		}
	})
}

func (rl *rateLimiter) allow(clientIP string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	client, exists := rl.clients[clientIP]

	if !exists {
		rl.clients[clientIP] = &clientInfo{
			lastRequest: now,
			requests:    1,
		}
		return true
	}

	// Reset counter if more than 1 minute has passed
	if now.Sub(client.lastRequest) > time.Minute {
		client.requests = 1
		client.lastRequest = now
		return true
	}

	// Allow up to 60 requests per minute
	client.requests++
	client.lastRequest = now

	return client.requests <= 60
}

// NewServer configures routes and templates, returning a ready-to-run http.Server.
func NewServer(opts Options) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    opts.Addr,
			Handler: mux,
		},
		bookings:     opts.Bookings,
		statuses:     opts.Statuses,
		queue:        opts.Queue,
		tariff:       opts.Tariff,
		anchor:       opts.Anchor,
		occupants:    [2]string{opts.Payer, opts.Owner},
		rateLimiter:  newRateLimiter(),
		bookingCache: cache.NewLRUCache[[]core.Booking](4, 30*time.Second),
		statusCache:  cache.NewLRUCache[[]core.PeriodStatus](4, 30*time.Second),
		cacheManager: cache.NewManager(),
	}

	s.cacheManager.Register(s.bookingCache)
	s.cacheManager.Register(s.statusCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	// Parse embedded templates at startup.
	t, err := template.New("").Funcs(templateFuncs()).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		slog.Warn("Failed parsing templates", "error", err)
	}
	s.templates = t

	// Static assets (served from embedded FS)
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
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/bookings", s.withSecurityHeaders(s.handleCreateBooking))
	mux.HandleFunc("/bookings/delete", s.withSecurityHeaders(s.handleDeleteBooking))
	mux.HandleFunc("/periods/toggle", s.withSecurityHeaders(s.handleTogglePeriod))
	mux.HandleFunc("/export/statement", s.withSecurityHeaders(s.handleExportStatement))
	// UI partials
	mux.HandleFunc("/ui/calendar", s.withSecurityHeaders(s.handleCalendar))
	mux.HandleFunc("/ui/period", s.withSecurityHeaders(s.handlePeriod))

	return s
}

// Shutdown gracefully shuts down the server and cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		if s.cacheManager != nil {
			s.cacheManager.Stop()
		}
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

// withSecurityHeaders adds security headers, rate limiting, and request logging to responses
func (s *Server) withSecurityHeaders(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Extract client IP (considering proxies)
		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		// Generate request ID for tracing
		requestID := generateRequestID()

		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "Request started",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"client_ip", clientIP,
			"user_agent", r.Header.Get("User-Agent"))

		// Apply rate limiting to mutating requests
		if r.Method == http.MethodPost && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded", "client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-XSS-Protection", "1; mode=block")
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self' https://unpkg.com 'unsafe-eval'; style-src 'self' 'unsafe-inline'; img-src 'self' data:; connect-src 'self'")
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

type contextKey string

const requestIDKey contextKey = "request_id"

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// generateRequestID creates a unique request ID for tracing
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to timestamp if random fails
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// sanitizeInput removes potentially dangerous characters and trims whitespace
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	// Remove control characters except tab, newline, carriage return
	result := strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1 // remove character
		}
		return r
	}, s)
	return result
}

func (s *Server) validOccupant(name string) bool {
	return name == s.occupants[0] || name == s.occupants[1]
}

func (s *Server) invalidateState() {
	s.bookingCache.Delete(stateCacheKey)
	s.statusCache.Delete(stateCacheKey)
}

const stateCacheKey = "all"

func (s *Server) loadBookings(ctx context.Context) ([]core.Booking, error) {
	if items, found := s.bookingCache.Get(stateCacheKey); found {
		return items, nil
	}
	items, err := s.bookings.ListBookings(ctx)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	s.bookingCache.Set(stateCacheKey, items)
	return items, nil
}

func (s *Server) loadStatuses(ctx context.Context) ([]core.PeriodStatus, error) {
	if items, found := s.statusCache.Get(stateCacheKey); found {
		return items, nil
	}
	items, err := s.statuses.ListStatuses(ctx)
	if err != nil {
		return nil, fmt.Errorf("list period statuses: %w", err)
	}
	s.statusCache.Set(stateCacheKey, items)
	return items, nil
}
