package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"littletoes/internal/security"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

// SessionContextKey carries the *LiveSession for the authenticated request
const SessionContextKey ContextKey = "live_session"

// Middleware holds dependencies for middleware functions
type Middleware struct {
	secret []byte
	hub    *SessionHub
}

// NewMiddleware creates a new middleware instance
func NewMiddleware(secret []byte, hub *SessionHub) *Middleware {
	return &Middleware{
		secret: secret,
		hub:    hub,
	}
}

// RequireSession is middleware that requires a valid session cookie and
// attaches the matching live session to the request context.
func (m *Middleware) RequireSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(security.SessionCookieName)
		if err != nil {
			respondWithError(w, http.StatusUnauthorized, "No active session", "", nil)
			return
		}

		sessionID, err := security.ParseSessionToken(m.secret, cookie.Value)
		if err != nil {
			http.SetCookie(w, security.CreateDeleteCookie(r))
			respondWithError(w, http.StatusUnauthorized, "Invalid session", "Rejected session token", err)
			return
		}

		ls := m.hub.Get(sessionID)
		if ls == nil {
			http.SetCookie(w, security.CreateDeleteCookie(r))
			respondWithError(w, http.StatusUnauthorized, "Session expired", "", nil)
			return
		}

		ctx := context.WithValue(r.Context(), SessionContextKey, ls)
		next(w, r.WithContext(ctx))
	}
}

// RateLimit rejects requests over the limiter's budget with 429
func RateLimit(limiter *security.RateLimiter, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow(security.GetClientIP(r)) {
			respondWithError(w, http.StatusTooManyRequests, "Too many requests, slow down", "", nil)
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

		log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("duration", time.Since(start)).
			Msg("Request")
	})
}

// GetSessionFromContext retrieves the live session from the request context
func GetSessionFromContext(ctx context.Context) *LiveSession {
	ls, ok := ctx.Value(SessionContextKey).(*LiveSession)
	if !ok {
		return nil
	}
	return ls
}
