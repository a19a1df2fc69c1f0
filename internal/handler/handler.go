package handler

import (
	"net/http"
	"strings"

	"github.com/aphexes/flaskblog/internal/config"
	"github.com/aphexes/flaskblog/internal/mailer"
	"github.com/aphexes/flaskblog/internal/middleware"
	"github.com/aphexes/flaskblog/internal/models"
	"github.com/aphexes/flaskblog/internal/service"
	"github.com/aphexes/flaskblog/internal/session"
	"github.com/aphexes/flaskblog/internal/storage"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// Handler serves the blog's HTTP routes
type Handler struct {
	auth     *service.AuthService
	posts    *service.PostService
	sessions *session.Manager
	avatars  *storage.AvatarStore
	mail     *mailer.Sender
	cfg      *config.Config
	log      *logrus.Logger
}

// NewHandler initializes a new handler
func NewHandler(auth *service.AuthService, posts *service.PostService, sessions *session.Manager,
	avatars *storage.AvatarStore, mail *mailer.Sender, cfg *config.Config, log *logrus.Logger) *Handler {
	return &Handler{
		auth:     auth,
		posts:    posts,
		sessions: sessions,
		avatars:  avatars,
		mail:     mail,
		cfg:      cfg,
		log:      log,
	}
}

// Routes builds the router with session and logging middleware applied
func (h *Handler) Routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.AccessLog(h.log))
	r.Use(middleware.WithSession(h.sessions))

	r.PathPrefix("/static/").Handler(
		http.StripPrefix("/static/", http.FileServer(http.Dir("web/static"))))

	// Public routes
	r.HandleFunc("/", h.Home).Methods("GET")
	r.HandleFunc("/home", h.Home).Methods("GET")
	r.HandleFunc("/about", h.About).Methods("GET")
	r.HandleFunc("/register", h.Register).Methods("GET", "POST")
	r.HandleFunc("/login", h.Login).Methods("GET", "POST")
	r.HandleFunc("/logout", h.Logout).Methods("GET")
	r.HandleFunc("/user/{username}", h.UserPosts).Methods("GET")
	r.HandleFunc("/reset_password", h.ResetRequest).Methods("GET", "POST")
	r.HandleFunc("/reset_password/{token}", h.ResetToken).Methods("GET", "POST")
	r.HandleFunc("/post/{id:[0-9]+}", h.ShowPost).Methods("GET")
	r.HandleFunc("/feed.xml", h.Feed).Methods("GET")

	// Protected routes
	authRouter := r.PathPrefix("/").Subrouter()
	authRouter.Use(middleware.RequireAuth)
	authRouter.HandleFunc("/account", h.Account).Methods("GET", "POST")
	authRouter.HandleFunc("/post/new", h.NewPost).Methods("GET", "POST")
	authRouter.HandleFunc("/post/{id:[0-9]+}/update", h.UpdatePost).Methods("GET", "POST")
	authRouter.HandleFunc("/post/{id:[0-9]+}/delete", h.DeletePost).Methods("POST")

	return r
}

// currentUser loads the authenticated user's record, or nil for anonymous
// requests.
func (h *Handler) currentUser(r *http.Request) *models.User {
	uid, ok := session.UserIDFrom(r.Context())
	if !ok {
		return nil
	}
	user, err := h.auth.User(r.Context(), uid)
	if err != nil {
		h.log.Errorf("Failed to load user %d: %v", uid, err)
		return nil
	}
	return user
}

// requireOwner denies the request with 403 unless the current user owns the
// post. A hard denial, not a login redirect.
func (h *Handler) requireOwner(w http.ResponseWriter, r *http.Request, post *models.Post) bool {
	uid, ok := session.UserIDFrom(r.Context())
	if !ok || uid != post.UserID {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return false
	}
	return true
}

// safeNext keeps post-login redirects on this site
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		return "/"
	}
	return next
}
