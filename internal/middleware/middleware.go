package middleware

import (
	"net/http"
	"net/url"
	"time"

	"github.com/aphexes/flaskblog/internal/session"
	"github.com/sirupsen/logrus"
)

// WithSession resolves the session cookie and, when it maps to a live
// session, binds the user id to the request context. Anonymous requests pass
// through untouched.
func WithSession(sessions *session.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if c, err := r.Cookie(session.CookieName); err == nil && c.Value != "" {
				if uid, ok := sessions.Resolve(r.Context(), c.Value); ok {
					r = r.WithContext(session.WithUserID(r.Context(), uid))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuth redirects anonymous requests to the login page, carrying the
// originally requested path so login can send the user back.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := session.UserIDFrom(r.Context()); !ok {
			http.Redirect(w, r, "/login?next="+url.QueryEscape(r.URL.RequestURI()), http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRW struct {
	http.ResponseWriter
	status int
}

func (w *statusRW) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// AccessLog logs method, path, status and duration for every request.
func AccessLog(log *logrus.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusRW{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)
			log.WithFields(logrus.Fields{
				"method":   r.Method,
				"path":     r.URL.Path,
				"status":   sw.status,
				"duration": time.Since(start).Truncate(time.Millisecond).String(),
			}).Info("request")
		})
	}
}
