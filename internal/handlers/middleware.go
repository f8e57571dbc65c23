package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"suzukitracker/internal/security"
	"suzukitracker/internal/service"
)

// Authenticator resolves a session token to a teacher ID
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (int64, error)
}

// Middleware holds dependencies for middleware functions
type Middleware struct {
	auth    Authenticator
	limiter *security.RateLimiter
	log     *zap.Logger
}

// NewMiddleware creates a new middleware instance
func NewMiddleware(auth Authenticator, limiter *security.RateLimiter, log *zap.Logger) *Middleware {
	return &Middleware{
		auth:    auth,
		limiter: limiter,
		log:     log,
	}
}

// RequireAuth is middleware that requires a valid session token and makes the
// teacher it names the acting teacher of the request
func (m *Middleware) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := security.TokenFromRequest(r)
		if token == "" {
			respondWithJSON(w, http.StatusUnauthorized, errorResponse{Error: ErrUnauthorized})
			return
		}

		teacherID, err := m.auth.Authenticate(r.Context(), token)
		if err != nil {
			if errors.Is(err, service.ErrUnauthorized) {
				// Clear invalid cookie
				http.SetCookie(w, security.CreateDeleteCookie(r))
				respondWithJSON(w, http.StatusUnauthorized, errorResponse{Error: ErrUnauthorized})
				return
			}
			respondWithError(w, m.log, http.StatusInternalServerError, ErrInternalServerError, "authentication failed", err)
			return
		}

		next(w, r.WithContext(service.WithTeacher(r.Context(), teacherID)))
	}
}

// RateLimit rejects clients that exceed the limiter's budget
func (m *Middleware) RateLimit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip := security.GetClientIP(r)
		if !m.limiter.Allow(ip) {
			m.log.Warn("rate limit exceeded", zap.String("ip", ip), zap.String("path", r.URL.Path))
			w.Header().Set("Retry-After", "60")
			respondWithJSON(w, http.StatusTooManyRequests, errorResponse{Error: ErrTooManyRequests})
			return
		}
		next(w, r)
	}
}

// statusResponseWriter captures the status code written by a handler
type statusResponseWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func (w *statusResponseWriter) WriteHeader(code int) {
	if !w.written {
		w.statusCode = code
		w.written = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusResponseWriter) Write(b []byte) (int, error) {
	if !w.written {
		w.statusCode = http.StatusOK
		w.written = true
	}
	return w.ResponseWriter.Write(b)
}

func (w *statusResponseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// Logging middleware logs HTTP requests
func Logging(log *zap.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(sw, r)

		log.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", sw.statusCode),
			zap.Duration("duration", time.Since(start)),
		)
	})
}
