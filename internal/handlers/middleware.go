package handlers

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"pointsmill/internal/models"
	"pointsmill/internal/security"
	"pointsmill/internal/service"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	UserContextKey       ContextKey = "user"
	KidSessionContextKey ContextKey = "kid"
)

// SessionCookieName is the parent session cookie
const SessionCookieName = "session_id"

// Middleware holds dependencies for middleware functions
type Middleware struct {
	authService *service.AuthService
	limiter     *security.RateLimiter
}

// NewMiddleware creates a new middleware instance
func NewMiddleware(authService *service.AuthService, limiter *security.RateLimiter) *Middleware {
	return &Middleware{
		authService: authService,
		limiter:     limiter,
	}
}

// RequireAuth requires a valid parent session
func (m *Middleware) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(SessionCookieName)
		if err != nil {
			respondWithError(w, http.StatusUnauthorized, "Not logged in", "", nil)
			return
		}

		user, err := m.authService.ValidateSession(cookie.Value)
		if err != nil {
			http.SetCookie(w, security.CreateDeleteCookie(r, SessionCookieName))
			respondWithError(w, http.StatusUnauthorized, "Session expired", "", nil)
			return
		}

		ctx := context.WithValue(r.Context(), UserContextKey, user)
		next(w, r.WithContext(ctx))
	}
}

// RequireKidAuth requires a valid kid token in the Authorization header
func (m *Middleware) RequireKidAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			respondWithError(w, http.StatusUnauthorized, "Not logged in", "", nil)
			return
		}

		kidSession, err := m.authService.ValidateKidToken(token)
		if err != nil {
			respondWithError(w, http.StatusUnauthorized, "Session expired", "", nil)
			return
		}

		ctx := context.WithValue(r.Context(), KidSessionContextKey, kidSession)
		next(w, r.WithContext(ctx))
	}
}

// RateLimit rejects requests from clients that exceed the login rate
func (m *Middleware) RateLimit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip := security.GetClientIP(r)
		if !m.limiter.Allow(ip) {
			respondWithError(w, http.StatusTooManyRequests, "Too many attempts, try again later", "", nil)
			return
		}
		next(w, r)
	}
}

// Logging middleware logs HTTP requests
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		next.ServeHTTP(w, r)

		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}

func bearerToken(r *http.Request) (string, bool) {
	auth := r.Header.Get("Authorization")
	if after, ok := strings.CutPrefix(auth, "Bearer "); ok && after != "" {
		return after, true
	}
	return "", false
}

// GetUserFromContext retrieves the parent from the request context
func GetUserFromContext(ctx context.Context) *models.User {
	user, ok := ctx.Value(UserContextKey).(*models.User)
	if !ok {
		return nil
	}
	return user
}

// GetKidSessionFromContext retrieves the kid session from the request context
func GetKidSessionFromContext(ctx context.Context) *models.KidSession {
	kidSession, ok := ctx.Value(KidSessionContextKey).(*models.KidSession)
	if !ok {
		return nil
	}
	return kidSession
}
