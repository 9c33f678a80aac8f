package middleware

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yourorg/rentwheels/internal/security/audit"
	"github.com/yourorg/rentwheels/internal/security/auth"
	"github.com/yourorg/rentwheels/internal/security/ratelimit"
)

type ClaimsContextKey struct{}

// isPublic reports whether a request needs no token: health and metrics
// endpoints, registration and login, and read-only vehicle browsing. The
// event feed authenticates inside its handler because browsers cannot set
// headers on WebSocket dials.
func isPublic(r *http.Request) bool {
	p := r.URL.Path
	switch p {
	case "/healthz", "/readyz", "/metrics",
		"/api/v1/auth/register", "/api/v1/auth/login":
		return true
	}
	if strings.HasPrefix(p, "/ws/") {
		return true
	}
	if r.Method == http.MethodGet && strings.HasPrefix(p, "/api/v1/vehicles") {
		return true
	}
	return false
}

func isAuthPath(p string) bool {
	return p == "/api/v1/auth/register" || p == "/api/v1/auth/login"
}

// RequestIDMiddleware assigns every request an id for log and audit
// correlation, echoing it back in the response.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)
		ctx := audit.WithRequestID(r.Context(), requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// JWTMiddleware validates the bearer token on protected routes and stores
// the claims in the request context.
func JWTMiddleware(tm *auth.TokenManager, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isPublic(r) {
				next.ServeHTTP(w, r)
				return
			}

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, `{"success":false,"message":"missing authorization header"}`, http.StatusUnauthorized)
				return
			}

			tokenString, err := auth.ExtractToken(authHeader)
			if err != nil {
				http.Error(w, `{"success":false,"message":"invalid authorization header"}`, http.StatusUnauthorized)
				return
			}

			claims, err := tm.ValidateToken(tokenString)
			if err != nil {
				log.Debug("token rejected", slog.String("error", err.Error()))
				http.Error(w, `{"success":false,"message":"invalid or expired token"}`, http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), ClaimsContextKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RateLimitMiddleware limits authenticated callers by user id and anonymous
// callers by remote address. Auth endpoints get a strict per-address limit.
func RateLimitMiddleware(limiter *ratelimit.Limiter, authMaxPerMin int, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := callerKey(r)

			if isAuthPath(r.URL.Path) {
				if !limiter.AllowStrict(key, authMaxPerMin, time.Minute) {
					log.Warn("auth rate limit exceeded", slog.String("caller", key))
					http.Error(w, `{"success":false,"message":"rate limit exceeded"}`, http.StatusTooManyRequests)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			if !limiter.Allow(key) {
				log.Warn("rate limit exceeded", slog.String("caller", key))
				http.Error(w, `{"success":false,"message":"rate limit exceeded"}`, http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// AuditMiddleware records state-changing booking requests before they reach
// the handler, so even rejected attempts leave a trail.
func AuditMiddleware(auditLog *audit.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := ""
			if claims := GetClaimsFromContext(r.Context()); claims != nil {
				userID = claims.UserID
			}

			if r.Method == http.MethodPost && r.URL.Path == "/api/v1/bookings" {
				auditLog.LogBooking(r.Context(), userID, "", "create", "initiated", "")
			}
			if r.Method == http.MethodPut && strings.HasPrefix(r.URL.Path, "/api/v1/bookings/") {
				auditLog.LogBooking(r.Context(), userID, r.PathValue("id"), "update", "initiated", "")
			}
			if r.Method == http.MethodPost && r.URL.Path == "/api/v1/admin/sweep" {
				auditLog.LogAction(r.Context(), userID, "sweep", "booking", "", "initiated", "")
			}

			next.ServeHTTP(w, r)
		})
	}
}

// CORSMiddleware handles cross-origin requests for the browser frontend.
func CORSMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if origin == allowed {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
					w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Request-ID")
					break
				}
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// GetClaimsFromContext returns the validated token claims, or nil on public
// routes.
func GetClaimsFromContext(ctx context.Context) *auth.Claims {
	if c := ctx.Value(ClaimsContextKey{}); c != nil {
		return c.(*auth.Claims)
	}
	return nil
}

// callerKey prefers the authenticated user id and falls back to the remote
// host for anonymous requests.
func callerKey(r *http.Request) string {
	if claims := GetClaimsFromContext(r.Context()); claims != nil && claims.UserID != "" {
		return claims.UserID
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
