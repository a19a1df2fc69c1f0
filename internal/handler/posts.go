package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/aphexes/flaskblog/internal/render"
	"github.com/aphexes/flaskblog/internal/repository"
	"github.com/aphexes/flaskblog/internal/session"
	"github.com/gorilla/mux"
)

// NewPost handles creating a post
func (h *Handler) NewPost(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		render.Render(w, "create_post.html", map[string]any{
			"Title":  "New Post",
			"Legend": "New Post",
			"User":   h.currentUser(r),
			"Error":  r.URL.Query().Get("err"),
		})
		return
	}

	uid, _ := session.UserIDFrom(r.Context())
	title := strings.TrimSpace(r.FormValue("title"))
	content := strings.TrimSpace(r.FormValue("content"))

	if title == "" || content == "" {
		http.Redirect(w, r, "/post/new?err="+url.QueryEscape("Title and content are required"), http.StatusSeeOther)
		return
	}
	if len(title) > 100 {
		http.Redirect(w, r, "/post/new?err="+url.QueryEscape("Title must be at most 100 characters"), http.StatusSeeOther)
		return
	}

	if _, err := h.posts.Create(r.Context(), uid, title, content); err != nil {
		h.log.Errorf("Failed to create post: %v", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, "/?ok=1", http.StatusSeeOther)
}

// UpdatePost handles editing a post; only the owner may do it
func (h *Handler) UpdatePost(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	post, err := h.posts.Get(r.Context(), id)
	if errors.Is(err, repository.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		h.log.Errorf("Failed to load post %d: %v", id, err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	if !h.requireOwner(w, r, post) {
		return
	}

	if r.Method == http.MethodGet {
		render.Render(w, "create_post.html", map[string]any{
			"Title":  "Update Post",
			"Legend": "Update Post",
			"User":   h.currentUser(r),
			"Post":   post,
			"Error":  r.URL.Query().Get("err"),
		})
		return
	}

	title := strings.TrimSpace(r.FormValue("title"))
	content := strings.TrimSpace(r.FormValue("content"))
	if title == "" || content == "" {
		http.Redirect(w, r, fmt.Sprintf("/post/%d/update?err=%s", id,
			url.QueryEscape("Title and content are required")), http.StatusSeeOther)
		return
	}

	post.Title = title
	post.Content = content
	if err := h.posts.Update(r.Context(), post); err != nil {
		h.log.Errorf("Failed to update post %d: %v", id, err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, fmt.Sprintf("/post/%d?ok=1", id), http.StatusSeeOther)
}

// DeletePost handles deleting a post; only the owner may do it
func (h *Handler) DeletePost(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	post, err := h.posts.Get(r.Context(), id)
	if errors.Is(err, repository.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		h.log.Errorf("Failed to load post %d: %v", id, err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	if !h.requireOwner(w, r, post) {
		return
	}

	if err := h.posts.Delete(r.Context(), id); err != nil {
		h.log.Errorf("Failed to delete post %d: %v", id, err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, "/?deleted=1", http.StatusSeeOther)
}
