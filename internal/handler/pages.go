package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/aphexes/flaskblog/internal/feed"
	"github.com/aphexes/flaskblog/internal/models"
	"github.com/aphexes/flaskblog/internal/render"
	"github.com/aphexes/flaskblog/internal/repository"
	"github.com/aphexes/flaskblog/internal/service"
	"github.com/gorilla/mux"
)

const feedSize = 20

type listingData struct {
	Title   string
	User    *models.User
	Page    *service.Page
	Author  *models.User
	Flash   string
	FlashOK bool
}

func pageParam(r *http.Request) int {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

// Home shows the latest posts, five per page
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	page, err := h.posts.List(r.Context(), pageParam(r))
	if err != nil {
		h.log.Errorf("Failed to list posts: %v", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	data := listingData{
		Title: "Home",
		User:  h.currentUser(r),
		Page:  page,
	}
	if r.URL.Query().Get("ok") == "1" {
		data.Flash = "Your post has been created!"
		data.FlashOK = true
	}
	if r.URL.Query().Get("deleted") == "1" {
		data.Flash = "Your post has been deleted!"
		data.FlashOK = true
	}
	render.Render(w, "home.html", data)
}

// About shows the static about page
func (h *Handler) About(w http.ResponseWriter, r *http.Request) {
	render.Render(w, "about.html", map[string]any{
		"Title": "About",
		"User":  h.currentUser(r),
	})
}

// ShowPost shows a single post
func (h *Handler) ShowPost(w http.ResponseWriter, r *http.Request) {
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

	user := h.currentUser(r)
	render.Render(w, "post.html", map[string]any{
		"Title":   post.Title,
		"User":    user,
		"Post":    post,
		"IsOwner": user != nil && user.ID == post.UserID,
		"Updated": r.URL.Query().Get("ok") == "1",
	})
}

// UserPosts shows one author's posts, paginated
func (h *Handler) UserPosts(w http.ResponseWriter, r *http.Request) {
	username := mux.Vars(r)["username"]
	author, err := h.auth.UserByUsername(r.Context(), username)
	if errors.Is(err, repository.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		h.log.Errorf("Failed to load user %q: %v", username, err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	page, err := h.posts.ListByAuthor(r.Context(), author.ID, pageParam(r))
	if err != nil {
		h.log.Errorf("Failed to list posts for %q: %v", username, err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	render.Render(w, "user_posts.html", listingData{
		Title:  author.Username,
		User:   h.currentUser(r),
		Page:   page,
		Author: author,
	})
}

// Feed serves the RSS feed of the latest posts
func (h *Handler) Feed(w http.ResponseWriter, r *http.Request) {
	posts, err := h.posts.Latest(r.Context(), feedSize)
	if err != nil {
		h.log.Errorf("Failed to build feed: %v", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	body, err := feed.Build(h.cfg.BaseURL, posts)
	if err != nil {
		h.log.Errorf("Failed to build feed: %v", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
	_, _ = w.Write(body)
}
