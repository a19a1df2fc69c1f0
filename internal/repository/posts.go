package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/aphexes/flaskblog/internal/models"
)

// CreatePost creates a new post in the database
func (r *Repository) CreatePost(ctx context.Context, post *models.Post) error {
	query := `
		INSERT INTO posts (user_id, title, content)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`
	err := r.db.QueryRowContext(ctx, query, post.UserID, post.Title, post.Content).
		Scan(&post.ID, &post.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create post: %w", err)
	}
	return nil
}

// FindPostByID retrieves a post with its author's username
func (r *Repository) FindPostByID(ctx context.Context, id int64) (*models.Post, error) {
	post := &models.Post{}
	query := `
		SELECT p.id, p.user_id, p.title, p.content, p.created_at, u.username
		FROM posts p
		JOIN users u ON u.id = p.user_id
		WHERE p.id = $1`
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&post.ID, &post.UserID, &post.Title, &post.Content, &post.CreatedAt, &post.Author)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find post: %w", err)
	}
	return post, nil
}

// ListPosts returns posts newest first, limited to one page
func (r *Repository) ListPosts(ctx context.Context, limit, offset int) ([]models.Post, error) {
	query := `
		SELECT p.id, p.user_id, p.title, p.content, p.created_at, u.username
		FROM posts p
		JOIN users u ON u.id = p.user_id
		ORDER BY p.created_at DESC, p.id DESC
		LIMIT $1 OFFSET $2`
	return r.listPosts(ctx, query, limit, offset)
}

// ListPostsByAuthor returns one author's posts newest first.
// Explicit query instead of navigating a user->posts relation.
func (r *Repository) ListPostsByAuthor(ctx context.Context, userID int64, limit, offset int) ([]models.Post, error) {
	query := `
		SELECT p.id, p.user_id, p.title, p.content, p.created_at, u.username
		FROM posts p
		JOIN users u ON u.id = p.user_id
		WHERE p.user_id = $1
		ORDER BY p.created_at DESC, p.id DESC
		LIMIT $2 OFFSET $3`
	return r.listPosts(ctx, query, userID, limit, offset)
}

func (r *Repository) listPosts(ctx context.Context, query string, args ...any) ([]models.Post, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	defer rows.Close()

	var posts []models.Post
	for rows.Next() {
		var p models.Post
		if err := rows.Scan(&p.ID, &p.UserID, &p.Title, &p.Content, &p.CreatedAt, &p.Author); err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	return posts, nil
}

// CountPosts returns the total number of posts
func (r *Repository) CountPosts(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count posts: %w", err)
	}
	return n, nil
}

// CountPostsByAuthor returns the number of posts by one author
func (r *Repository) CountPostsByAuthor(ctx context.Context, userID int64) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts WHERE user_id = $1`, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count posts: %w", err)
	}
	return n, nil
}

// UpdatePost persists title and content changes
func (r *Repository) UpdatePost(ctx context.Context, post *models.Post) error {
	res, err := r.db.ExecContext(ctx, `UPDATE posts SET title = $1, content = $2 WHERE id = $3`,
		post.Title, post.Content, post.ID)
	if err != nil {
		return fmt.Errorf("failed to update post: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update post: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeletePost removes a post by id
func (r *Repository) DeletePost(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
