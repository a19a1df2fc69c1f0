package handler_test

import (
	"bytes"
	"context"
	"image"
	"image/jpeg"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/aphexes/flaskblog/internal/config"
	"github.com/aphexes/flaskblog/internal/handler"
	"github.com/aphexes/flaskblog/internal/mailer"
	"github.com/aphexes/flaskblog/internal/models"
	"github.com/aphexes/flaskblog/internal/repository"
	"github.com/aphexes/flaskblog/internal/service"
	"github.com/aphexes/flaskblog/internal/session"
	"github.com/aphexes/flaskblog/internal/storage"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	nextUserID int64
	nextPostID int64
	users      map[int64]*models.User
	posts      map[int64]*models.Post
	sessions   map[string]*models.Session
}

func newMemStore() *memStore {
	return &memStore{
		users:    make(map[int64]*models.User),
		posts:    make(map[int64]*models.Post),
		sessions: make(map[string]*models.Session),
	}
}

func (m *memStore) CreateUser(_ context.Context, user *models.User) error {
	for _, u := range m.users {
		if u.Email == user.Email {
			return repository.ErrDuplicateEmail
		}
		if u.Username == user.Username {
			return repository.ErrDuplicateUsername
		}
	}
	m.nextUserID++
	user.ID = m.nextUserID
	user.CreatedAt = time.Now()
	cp := *user
	m.users[user.ID] = &cp
	return nil
}

func (m *memStore) FindUserByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memStore) FindUserByUsername(_ context.Context, username string) (*models.User, error) {
	for _, u := range m.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memStore) FindUserByID(_ context.Context, id int64) (*models.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memStore) UpdateUser(_ context.Context, user *models.User) error {
	if _, ok := m.users[user.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *user
	m.users[user.ID] = &cp
	return nil
}

func (m *memStore) UpdatePassword(_ context.Context, userID int64, passwordHash string) error {
	u, ok := m.users[userID]
	if !ok {
		return repository.ErrNotFound
	}
	u.PasswordHash = passwordHash
	return nil
}

func (m *memStore) CreatePost(_ context.Context, post *models.Post) error {
	m.nextPostID++
	post.ID = m.nextPostID
	post.CreatedAt = time.Now()
	cp := *post
	m.posts[post.ID] = &cp
	return nil
}

func (m *memStore) FindPostByID(_ context.Context, id int64) (*models.Post, error) {
	p, ok := m.posts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	if u, ok := m.users[p.UserID]; ok {
		cp.Author = u.Username
	}
	return &cp, nil
}

func (m *memStore) ListPosts(_ context.Context, limit, offset int) ([]models.Post, error) {
	var posts []models.Post
	for _, p := range m.posts {
		posts = append(posts, *p)
	}
	if offset >= len(posts) {
		return nil, nil
	}
	if offset+limit > len(posts) {
		limit = len(posts) - offset
	}
	return posts[offset : offset+limit], nil
}

func (m *memStore) ListPostsByAuthor(ctx context.Context, userID int64, limit, offset int) ([]models.Post, error) {
	all, err := m.ListPosts(ctx, len(m.posts), 0)
	if err != nil {
		return nil, err
	}
	var posts []models.Post
	for _, p := range all {
		if p.UserID == userID {
			posts = append(posts, p)
		}
	}
	return posts, nil
}

func (m *memStore) CountPosts(_ context.Context) (int, error) { return len(m.posts), nil }

func (m *memStore) CountPostsByAuthor(_ context.Context, userID int64) (int, error) {
	n := 0
	for _, p := range m.posts {
		if p.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (m *memStore) UpdatePost(_ context.Context, post *models.Post) error {
	p, ok := m.posts[post.ID]
	if !ok {
		return repository.ErrNotFound
	}
	p.Title = post.Title
	p.Content = post.Content
	return nil
}

func (m *memStore) DeletePost(_ context.Context, id int64) error {
	if _, ok := m.posts[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.posts, id)
	return nil
}

func (m *memStore) CreateSession(_ context.Context, s *models.Session) error {
	s.CreatedAt = time.Now()
	cp := *s
	m.sessions[s.ID] = &cp
	return nil
}

func (m *memStore) FindSession(_ context.Context, id string) (*models.Session, error) {
	s, ok := m.sessions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memStore) DeleteSession(_ context.Context, id string) error {
	delete(m.sessions, id)
	return nil
}

type fixture struct {
	router    http.Handler
	store     *memStore
	auth      *service.AuthService
	mgr       *session.Manager
	avatarDir string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	store := newMemStore()
	cfg := &config.Config{
		BaseURL:          "http://localhost:8080",
		SecretKey:        "test-secret",
		ResetTokenMaxAge: 30 * time.Minute,
	}
	auth := service.NewAuthService(store, log, cfg.SecretKey, cfg.ResetTokenMaxAge)
	posts := service.NewPostService(store, log)
	mgr := session.NewManager(store, log, time.Hour, 24*time.Hour)
	avatarDir := t.TempDir()
	avatars, err := storage.NewAvatarStore(avatarDir, log)
	require.NoError(t, err)
	mail := mailer.NewSender(cfg, log)

	h := handler.NewHandler(auth, posts, mgr, avatars, mail, cfg, log)
	return &fixture{router: h.Routes(), store: store, auth: auth, mgr: mgr, avatarDir: avatarDir}
}

// avatarNames lists the files currently held by the fixture's avatar store.
func (f *fixture) avatarNames(t *testing.T) []string {
	t.Helper()

	entries, err := os.ReadDir(f.avatarDir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

// loginAs registers a user, establishes a session and returns its cookie.
func (f *fixture) loginAs(t *testing.T, username, email string) (*models.User, *http.Cookie) {
	t.Helper()

	user, err := f.auth.Register(context.Background(), username, email, "secret1")
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	require.NoError(t, f.mgr.Establish(context.Background(), rec, user.ID, false))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	return user, cookies[0]
}

// accountForm builds a multipart POST to /account, optionally attaching a
// generated PNG as the picture field.
func accountForm(t *testing.T, username, email, pictureName string, cookie *http.Cookie) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("username", username))
	require.NoError(t, mw.WriteField("email", email))
	if pictureName != "" {
		fw, err := mw.CreateFormFile("picture", pictureName)
		require.NoError(t, err)
		img := image.NewRGBA(image.Rect(0, 0, 8, 8))
		if strings.HasSuffix(pictureName, ".png") {
			require.NoError(t, png.Encode(fw, img))
		} else {
			require.NoError(t, jpeg.Encode(fw, img, nil))
		}
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest("POST", "/account", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.AddCookie(cookie)
	return req
}

func postForm(path string, form url.Values, cookie *http.Cookie) *http.Request {
	req := httptest.NewRequest("POST", path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	return req
}

func TestUpdatePost_OwnerOnly(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	_, aliceCookie := f.loginAs(t, "alice", "alice@x.com")
	_, bobCookie := f.loginAs(t, "bob", "bob@x.com")

	require.NoError(t, f.store.CreatePost(context.Background(), &models.Post{
		UserID: 1, Title: "Alice's post", Content: "hello",
	}))

	form := url.Values{"title": {"Hijacked"}, "content": {"gotcha"}}

	// Bob is authenticated but not the owner: hard denial, no redirect.
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, postForm("/post/1/update", form, bobCookie))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Alice's post", f.store.posts[1].Title)

	// Alice may update her own post.
	rec = httptest.NewRecorder()
	f.router.ServeHTTP(rec, postForm("/post/1/update", form, aliceCookie))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "Hijacked", f.store.posts[1].Title)
}

func TestDeletePost_OwnerOnly(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	_, aliceCookie := f.loginAs(t, "alice", "alice@x.com")
	_, bobCookie := f.loginAs(t, "bob", "bob@x.com")

	require.NoError(t, f.store.CreatePost(context.Background(), &models.Post{
		UserID: 1, Title: "Alice's post", Content: "hello",
	}))

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, postForm("/post/1/delete", url.Values{}, bobCookie))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, f.store.posts, int64(1))

	rec = httptest.NewRecorder()
	f.router.ServeHTTP(rec, postForm("/post/1/delete", url.Values{}, aliceCookie))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.NotContains(t, f.store.posts, int64(1))
}

func TestProtectedRoutes_RedirectAnonymous(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	for _, path := range []string{"/account", "/post/new"} {
		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, httptest.NewRequest("GET", path, nil))
		assert.Equal(t, http.StatusSeeOther, rec.Code, path)
		loc := rec.Header().Get("Location")
		assert.True(t, strings.HasPrefix(loc, "/login?next="), "got %q", loc)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	_, err := f.auth.Register(context.Background(), "alice", "alice@x.com", "secret1")
	require.NoError(t, err)

	form := url.Values{"email": {"alice@x.com"}, "password": {"wrong"}}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, postForm("/login", form, nil))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Contains(t, rec.Header().Get("Location"), "/login?err=")
	assert.Empty(t, rec.Result().Cookies(), "no session may be established")
	assert.Empty(t, f.store.sessions)
}

func TestLogin_EstablishesSessionAndFollowsNext(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	_, err := f.auth.Register(context.Background(), "alice", "alice@x.com", "secret1")
	require.NoError(t, err)

	form := url.Values{
		"email":    {"alice@x.com"},
		"password": {"secret1"},
		"next":     {"/post/new"},
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, postForm("/login", form, nil))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/post/new", rec.Header().Get("Location"))
	require.Len(t, rec.Result().Cookies(), 1)
	assert.Len(t, f.store.sessions, 1)
}

func TestLogin_RejectsOffsiteNext(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	_, err := f.auth.Register(context.Background(), "alice", "alice@x.com", "secret1")
	require.NoError(t, err)

	form := url.Values{
		"email":    {"alice@x.com"},
		"password": {"secret1"},
		"next":     {"//evil.example.com/"},
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, postForm("/login", form, nil))

	assert.Equal(t, "/", rec.Header().Get("Location"))
}

func TestRegister_DuplicateEmailFieldError(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	_, err := f.auth.Register(context.Background(), "alice", "alice@x.com", "secret1")
	require.NoError(t, err)

	form := url.Values{
		"username": {"bob"},
		"email":    {"alice@x.com"},
		"password": {"secret2"},
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, postForm("/register", form, nil))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Contains(t, rec.Header().Get("Location"), "err="+url.QueryEscape("Email already taken"))
}

func TestRegister_PasswordTooLong(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	form := url.Values{
		"username": {"alice"},
		"email":    {"alice@x.com"},
		"password": {strings.Repeat("a", 73)},
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, postForm("/register", form, nil))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Contains(t, rec.Header().Get("Location"),
		"err="+url.QueryEscape("Password must be at most 72 characters"))
	assert.Empty(t, f.store.users)
}

func TestAccount_JpegUploadFitsProfileColumn(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	user, cookie := f.loginAs(t, "alice", "alice@x.com")

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, accountForm(t, "alice", "alice@x.com", "holiday.jpeg", cookie))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/account?ok=1", rec.Header().Get("Location"))

	stored := f.store.users[user.ID]
	assert.True(t, strings.HasSuffix(stored.ImageFile, ".jpg"), "got %q", stored.ImageFile)
	assert.LessOrEqual(t, len(stored.ImageFile), 40, "name must fit users.image_file")
}

func TestAccount_FailedUpdateDiscardsNewAvatar(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	user, cookie := f.loginAs(t, "alice", "alice@x.com")
	f.loginAs(t, "bob", "bob@x.com")

	// Alice tries to take bob's email while also uploading a picture.
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, accountForm(t, "alice", "bob@x.com", "face.png", cookie))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Contains(t, rec.Header().Get("Location"), "err="+url.QueryEscape("Email already taken"))
	assert.Equal(t, models.DefaultAvatar, f.store.users[user.ID].ImageFile)
	assert.Empty(t, f.avatarNames(t), "rejected upload must not linger on disk")
}

func TestAccount_ReplacingAvatarRemovesOld(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	user, cookie := f.loginAs(t, "alice", "alice@x.com")

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, accountForm(t, "alice", "alice@x.com", "first.png", cookie))
	require.Equal(t, "/account?ok=1", rec.Header().Get("Location"))
	first := f.store.users[user.ID].ImageFile

	rec = httptest.NewRecorder()
	f.router.ServeHTTP(rec, accountForm(t, "alice", "alice@x.com", "second.png", cookie))
	require.Equal(t, "/account?ok=1", rec.Header().Get("Location"))
	second := f.store.users[user.ID].ImageFile

	require.NotEqual(t, first, second)
	assert.Equal(t, []string{second}, f.avatarNames(t), "replaced avatar must be removed")
}

func TestResetRequest_NoUserEnumeration(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	_, err := f.auth.Register(context.Background(), "alice", "alice@x.com", "secret1")
	require.NoError(t, err)

	// Known and unknown emails answer identically.
	for _, email := range []string{"alice@x.com", "nobody@x.com"} {
		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, postForm("/reset_password", url.Values{"email": {email}}, nil))
		assert.Equal(t, http.StatusSeeOther, rec.Code, email)
		assert.Equal(t, "/login?reset=1", rec.Header().Get("Location"), email)
	}
}

func TestResetToken_InvalidRedirectsToRequestPage(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	form := url.Values{"password": {"newsecret"}}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, postForm("/reset_password/not-a-real-token", form, nil))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Contains(t, rec.Header().Get("Location"), "/reset_password?err=")
}

func TestResetToken_ChangesPassword(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	_, err := f.auth.Register(context.Background(), "alice", "alice@x.com", "secret1")
	require.NoError(t, err)

	_, tok, err := f.auth.IssueResetToken(context.Background(), "alice@x.com")
	require.NoError(t, err)

	form := url.Values{"password": {"newsecret"}}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, postForm("/reset_password/"+tok, form, nil))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login?ok=1", rec.Header().Get("Location"))

	_, err = f.auth.Authenticate(context.Background(), "alice@x.com", "newsecret")
	assert.NoError(t, err)
	_, err = f.auth.Authenticate(context.Background(), "alice@x.com", "secret1")
	assert.ErrorIs(t, err, service.ErrInvalidCredentials)
}

func TestShowPost_NotFound(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest("GET", "/post/999", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
