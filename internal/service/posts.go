package service

import (
	"context"

	"github.com/aphexes/flaskblog/internal/models"
	"github.com/sirupsen/logrus"
)

// PerPage is how many posts a listing page shows.
const PerPage = 5

// PostStore is the subset of the repository the post service needs.
type PostStore interface {
	CreatePost(ctx context.Context, post *models.Post) error
	FindPostByID(ctx context.Context, id int64) (*models.Post, error)
	ListPosts(ctx context.Context, limit, offset int) ([]models.Post, error)
	ListPostsByAuthor(ctx context.Context, userID int64, limit, offset int) ([]models.Post, error)
	CountPosts(ctx context.Context) (int, error)
	CountPostsByAuthor(ctx context.Context, userID int64) (int, error)
	UpdatePost(ctx context.Context, post *models.Post) error
	DeletePost(ctx context.Context, id int64) error
}

// Page is one page of posts plus the numbers the pager needs.
type Page struct {
	Posts      []models.Post
	Number     int
	TotalPages int
}

func (p Page) HasPrev() bool { return p.Number > 1 }
func (p Page) HasNext() bool { return p.Number < p.TotalPages }
func (p Page) Prev() int     { return p.Number - 1 }
func (p Page) Next() int     { return p.Number + 1 }

// PostService handles post CRUD and listing
type PostService struct {
	posts PostStore
	log   *logrus.Logger
}

// NewPostService initializes a new post service
func NewPostService(posts PostStore, log *logrus.Logger) *PostService {
	return &PostService{posts: posts, log: log}
}

// Create stores a new post owned by userID
func (s *PostService) Create(ctx context.Context, userID int64, title, content string) (*models.Post, error) {
	post := &models.Post{
		UserID:  userID,
		Title:   title,
		Content: content,
	}
	if err := s.posts.CreatePost(ctx, post); err != nil {
		return nil, err
	}
	s.log.Infof("Post %d created by user %d", post.ID, userID)
	return post, nil
}

// Get retrieves a single post
func (s *PostService) Get(ctx context.Context, id int64) (*models.Post, error) {
	return s.posts.FindPostByID(ctx, id)
}

// Update persists title and content changes
func (s *PostService) Update(ctx context.Context, post *models.Post) error {
	if err := s.posts.UpdatePost(ctx, post); err != nil {
		return err
	}
	s.log.Infof("Post %d updated", post.ID)
	return nil
}

// Delete removes a post
func (s *PostService) Delete(ctx context.Context, id int64) error {
	if err := s.posts.DeletePost(ctx, id); err != nil {
		return err
	}
	s.log.Infof("Post %d deleted", id)
	return nil
}

// Latest returns up to n newest posts, for the feed
func (s *PostService) Latest(ctx context.Context, n int) ([]models.Post, error) {
	return s.posts.ListPosts(ctx, n, 0)
}

// List returns one page of all posts, newest first
func (s *PostService) List(ctx context.Context, page int) (*Page, error) {
	total, err := s.posts.CountPosts(ctx)
	if err != nil {
		return nil, err
	}
	page, offset, totalPages := paginate(page, total)

	posts, err := s.posts.ListPosts(ctx, PerPage, offset)
	if err != nil {
		return nil, err
	}
	return &Page{Posts: posts, Number: page, TotalPages: totalPages}, nil
}

// ListByAuthor returns one page of a single author's posts, newest first
func (s *PostService) ListByAuthor(ctx context.Context, userID int64, page int) (*Page, error) {
	total, err := s.posts.CountPostsByAuthor(ctx, userID)
	if err != nil {
		return nil, err
	}
	page, offset, totalPages := paginate(page, total)

	posts, err := s.posts.ListPostsByAuthor(ctx, userID, PerPage, offset)
	if err != nil {
		return nil, err
	}
	return &Page{Posts: posts, Number: page, TotalPages: totalPages}, nil
}

// paginate clamps the requested page into range and returns the query offset.
// An empty listing still reports one page so templates have something to show.
func paginate(page, total int) (clamped, offset, totalPages int) {
	totalPages = (total + PerPage - 1) / PerPage
	if totalPages < 1 {
		totalPages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}
	return page, (page - 1) * PerPage, totalPages
}
