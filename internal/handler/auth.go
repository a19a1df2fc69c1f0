package handler

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/aphexes/flaskblog/internal/render"
	"github.com/aphexes/flaskblog/internal/repository"
	"github.com/aphexes/flaskblog/internal/service"
	"github.com/aphexes/flaskblog/internal/session"
	"github.com/aphexes/flaskblog/internal/token"
	"github.com/gorilla/mux"
)

// Register handles user registration
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	if _, ok := session.UserIDFrom(r.Context()); ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	if r.Method == http.MethodGet {
		render.Render(w, "register.html", map[string]any{
			"Title":    "Register",
			"Error":    r.URL.Query().Get("err"),
			"Email":    r.URL.Query().Get("email"),
			"Username": r.URL.Query().Get("username"),
		})
		return
	}

	username := strings.TrimSpace(r.FormValue("username"))
	email := strings.TrimSpace(strings.ToLower(r.FormValue("email")))
	password := r.FormValue("password")

	back := func(msg string) {
		http.Redirect(w, r, "/register?err="+url.QueryEscape(msg)+
			"&email="+url.QueryEscape(email)+"&username="+url.QueryEscape(username), http.StatusSeeOther)
	}

	switch {
	case username == "" || email == "" || password == "":
		back("All fields are required")
		return
	case len(username) > 20:
		back("Username must be at most 20 characters")
		return
	case len(email) > 120:
		back("Email must be at most 120 characters")
		return
	case len(password) < 6:
		back("Password must be at least 6 characters")
		return
	case len(password) > 72:
		// bcrypt rejects inputs over 72 bytes.
		back("Password must be at most 72 characters")
		return
	}

	if _, err := h.auth.Register(r.Context(), username, email, password); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateEmail):
			back("Email already taken")
		case errors.Is(err, repository.ErrDuplicateUsername):
			back("Username already taken")
		default:
			h.log.Errorf("Register failed: %v", err)
			back("Internal error")
		}
		return
	}

	http.Redirect(w, r, "/login?ok=1", http.StatusSeeOther)
}

// Login handles user authentication
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if _, ok := session.UserIDFrom(r.Context()); ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	if r.Method == http.MethodGet {
		render.Render(w, "login.html", map[string]any{
			"Title": "Login",
			"OK":    r.URL.Query().Get("ok") == "1",
			"Reset": r.URL.Query().Get("reset") == "1",
			"Error": r.URL.Query().Get("err"),
			"Email": r.URL.Query().Get("email"),
			"Next":  r.URL.Query().Get("next"),
		})
		return
	}

	email := strings.TrimSpace(strings.ToLower(r.FormValue("email")))
	password := r.FormValue("password")
	remember := r.FormValue("remember") != ""
	next := r.FormValue("next")

	user, err := h.auth.Authenticate(r.Context(), email, password)
	if err != nil {
		if !errors.Is(err, service.ErrInvalidCredentials) {
			h.log.Errorf("Login failed: %v", err)
		}
		q := "err=" + url.QueryEscape("Login unsuccessful. Please check email and password.") +
			"&email=" + url.QueryEscape(email)
		if next != "" {
			q += "&next=" + url.QueryEscape(next)
		}
		http.Redirect(w, r, "/login?"+q, http.StatusSeeOther)
		return
	}

	if err := h.sessions.Establish(r.Context(), w, user.ID, remember); err != nil {
		h.log.Errorf("Failed to establish session: %v", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, safeNext(next), http.StatusSeeOther)
}

// Logout destroys the current session; harmless when already anonymous
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Clear(r.Context(), w, r)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// ResetRequest handles the "forgot password" form. The response never says
// whether the email matched an account.
func (h *Handler) ResetRequest(w http.ResponseWriter, r *http.Request) {
	if _, ok := session.UserIDFrom(r.Context()); ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	if r.Method == http.MethodGet {
		render.Render(w, "reset_request.html", map[string]any{
			"Title": "Reset Password",
			"Error": r.URL.Query().Get("err"),
		})
		return
	}

	email := strings.TrimSpace(strings.ToLower(r.FormValue("email")))

	user, tok, err := h.auth.IssueResetToken(r.Context(), email)
	if err == nil {
		resetURL := h.cfg.BaseURL + "/reset_password/" + tok
		// Fire and forget; delivery failures are logged inside the sender.
		go func() {
			_ = h.mail.SendPasswordReset(user.Email, user.Username, resetURL)
		}()
	} else if !errors.Is(err, repository.ErrNotFound) {
		h.log.Errorf("Reset request failed: %v", err)
	}

	http.Redirect(w, r, "/login?reset=1", http.StatusSeeOther)
}

// ResetToken handles the emailed reset link: verifies the token and sets the
// new password.
func (h *Handler) ResetToken(w http.ResponseWriter, r *http.Request) {
	if _, ok := session.UserIDFrom(r.Context()); ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	tok := mux.Vars(r)["token"]

	if r.Method == http.MethodGet {
		render.Render(w, "reset_token.html", map[string]any{
			"Title": "Reset Password",
			"Token": tok,
			"Error": r.URL.Query().Get("err"),
		})
		return
	}

	password := r.FormValue("password")
	if len(password) < 6 || len(password) > 72 {
		msg := "Password must be at least 6 characters"
		if len(password) > 72 {
			msg = "Password must be at most 72 characters"
		}
		http.Redirect(w, r, "/reset_password/"+url.PathEscape(tok)+
			"?err="+url.QueryEscape(msg), http.StatusSeeOther)
		return
	}

	if err := h.auth.ResetPassword(r.Context(), tok, password); err != nil {
		if errors.Is(err, token.ErrInvalidToken) || errors.Is(err, token.ErrExpiredToken) ||
			errors.Is(err, repository.ErrNotFound) {
			// Invalid and expired tokens are logged apart but shown alike.
			h.log.Infof("Password reset rejected: %v", err)
			http.Redirect(w, r, "/reset_password?err="+
				url.QueryEscape("That is an invalid or expired token"), http.StatusSeeOther)
			return
		}
		h.log.Errorf("Password reset failed: %v", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, "/login?ok=1", http.StatusSeeOther)
}
