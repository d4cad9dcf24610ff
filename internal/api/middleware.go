package api

import (
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/alaiso/hubd/internal/store"
)

// AuthMiddleware validates the hub API key.
func AuthMiddleware(apiKey string, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				http.Error(w, `{"error":"missing authorization"}`, http.StatusUnauthorized)
				return
			}
			token := strings.TrimPrefix(auth, "Bearer ")
			if subtle.ConstantTimeCompare([]byte(token), []byte(apiKey)) != 1 {
				http.Error(w, `{"error":"invalid api key"}`, http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequestLogger logs incoming requests.
func RequestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: 200}
			next.ServeHTTP(sw, r)
			log.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", sw.status,
				"duration_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// currentProfile resolves the acting user from the X-Hub-User header, which
// carries a profile id or email. A missing header means service-level access.
func (s *Server) currentProfile(r *http.Request) (*store.Profile, error) {
	ident := strings.TrimSpace(r.Header.Get("X-Hub-User"))
	if ident == "" {
		return nil, nil
	}
	if strings.Contains(ident, "@") {
		return s.store.GetProfileByEmail(r.Context(), ident)
	}
	return s.store.GetProfile(r.Context(), ident)
}

// requireAdmin writes an error response and returns false unless the caller
// is an admin or a service-level client with no user identity attached.
func (s *Server) requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	p, err := s.currentProfile(r)
	if errors.Is(err, store.ErrNotFound) {
		jsonError(w, "unknown user", http.StatusForbidden)
		return false
	}
	if err != nil {
		jsonError(w, "user lookup failed: "+err.Error(), http.StatusInternalServerError)
		return false
	}
	if p != nil && !p.IsAdmin() {
		jsonError(w, "admin role required", http.StatusForbidden)
		return false
	}
	return true
}
