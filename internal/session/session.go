// Package session tracks the current authenticated user across requests via
// a database-backed session row referenced by a browser cookie.
package session

import (
	"context"
	"net/http"
	"time"

	"github.com/aphexes/flaskblog/internal/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// CookieName is the browser cookie carrying the session id.
const CookieName = "session_id"

// Store is the subset of the repository the session manager needs.
type Store interface {
	CreateSession(ctx context.Context, session *models.Session) error
	FindSession(ctx context.Context, id string) (*models.Session, error)
	DeleteSession(ctx context.Context, id string) error
}

// Manager creates, resolves and destroys login sessions
type Manager struct {
	store    Store
	log      *logrus.Logger
	lifetime time.Duration
	remember time.Duration
}

// NewManager initializes a new session manager
func NewManager(store Store, log *logrus.Logger, lifetime, remember time.Duration) *Manager {
	return &Manager{store: store, log: log, lifetime: lifetime, remember: remember}
}

// Establish creates a session for userID and sets the cookie. With remember
// set the session gets the long lifetime and a persistent cookie; without it
// the cookie lives only for the browser session.
func (m *Manager) Establish(ctx context.Context, w http.ResponseWriter, userID int64, remember bool) error {
	lifetime := m.lifetime
	if remember {
		lifetime = m.remember
	}

	session := &models.Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		Remember:  remember,
		ExpiresAt: time.Now().Add(lifetime),
	}
	if err := m.store.CreateSession(ctx, session); err != nil {
		return err
	}

	cookie := &http.Cookie{
		Name:     CookieName,
		Value:    session.ID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if remember {
		cookie.Expires = session.ExpiresAt
	}
	http.SetCookie(w, cookie)

	m.log.Infof("Session %s established for user %d (remember=%t)", session.ID, userID, remember)
	return nil
}

// Clear destroys the request's session and expires the cookie. Calling it
// without a session is a no-op.
func (m *Manager) Clear(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	c, err := r.Cookie(CookieName)
	if err != nil || c.Value == "" {
		return
	}
	if err := m.store.DeleteSession(ctx, c.Value); err != nil {
		m.log.Errorf("Failed to delete session %s: %v", c.Value, err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

// Resolve maps a session id to the owning user id. Unknown or expired
// sessions resolve to anonymous.
func (m *Manager) Resolve(ctx context.Context, id string) (int64, bool) {
	session, err := m.store.FindSession(ctx, id)
	if err != nil {
		return 0, false
	}
	if !session.ExpiresAt.After(time.Now()) {
		return 0, false
	}
	return session.UserID, true
}
