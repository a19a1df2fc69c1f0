package handler

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/aphexes/flaskblog/internal/models"
	"github.com/aphexes/flaskblog/internal/render"
	"github.com/aphexes/flaskblog/internal/repository"
	"github.com/aphexes/flaskblog/internal/storage"
)

const maxAvatarUpload = 5 << 20 // 5 MiB

// Account shows and updates the current user's profile
func (h *Handler) Account(w http.ResponseWriter, r *http.Request) {
	user := h.currentUser(r)
	if user == nil {
		// The session pointed at a user the store no longer has.
		h.sessions.Clear(r.Context(), w, r)
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	if r.Method == http.MethodGet {
		flash := ""
		flashOK := false
		if r.URL.Query().Get("ok") == "1" {
			flash = "Your account has been updated!"
			flashOK = true
		}
		if msg := r.URL.Query().Get("err"); msg != "" {
			flash = msg
		}
		render.Render(w, "account.html", map[string]any{
			"Title":   "Account",
			"User":    user,
			"Flash":   flash,
			"FlashOK": flashOK,
		})
		return
	}

	if err := r.ParseMultipartForm(maxAvatarUpload); err != nil {
		http.Redirect(w, r, "/account?err="+url.QueryEscape("Upload too large or malformed"), http.StatusSeeOther)
		return
	}

	username := strings.TrimSpace(r.FormValue("username"))
	email := strings.TrimSpace(strings.ToLower(r.FormValue("email")))

	switch {
	case username == "" || email == "":
		http.Redirect(w, r, "/account?err="+url.QueryEscape("Username and email are required"), http.StatusSeeOther)
		return
	case len(username) > 20:
		http.Redirect(w, r, "/account?err="+url.QueryEscape("Username must be at most 20 characters"), http.StatusSeeOther)
		return
	case len(email) > 120:
		http.Redirect(w, r, "/account?err="+url.QueryEscape("Email must be at most 120 characters"), http.StatusSeeOther)
		return
	}

	user.Username = username
	user.Email = email

	oldAvatar := user.ImageFile
	newAvatar := ""
	if file, header, err := r.FormFile("picture"); err == nil {
		defer file.Close()
		name, err := h.avatars.Save(file, header.Filename)
		if err != nil {
			msg := "Failed to process image"
			if errors.Is(err, storage.ErrUnsupportedImage) {
				msg = "Only JPEG and PNG images are supported"
			} else {
				h.log.Errorf("Failed to save avatar: %v", err)
			}
			http.Redirect(w, r, "/account?err="+url.QueryEscape(msg), http.StatusSeeOther)
			return
		}
		newAvatar = name
		user.ImageFile = name
	}

	if err := h.auth.UpdateAccount(r.Context(), user); err != nil {
		// The profile row kept its old avatar, so the new file is unreferenced.
		h.avatars.Remove(newAvatar)
		switch {
		case errors.Is(err, repository.ErrDuplicateEmail):
			http.Redirect(w, r, "/account?err="+url.QueryEscape("Email already taken"), http.StatusSeeOther)
		case errors.Is(err, repository.ErrDuplicateUsername):
			http.Redirect(w, r, "/account?err="+url.QueryEscape("Username already taken"), http.StatusSeeOther)
		default:
			h.log.Errorf("Failed to update account: %v", err)
			http.Error(w, "Internal error", http.StatusInternalServerError)
		}
		return
	}

	if newAvatar != "" && oldAvatar != models.DefaultAvatar {
		h.avatars.Remove(oldAvatar)
	}

	http.Redirect(w, r, "/account?ok=1", http.StatusSeeOther)
}
