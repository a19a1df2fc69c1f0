package models

import "time"

// Post represents a blog post authored by a user
type Post struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`

	// Author username, filled in by join queries for display
	Author string `json:"author,omitempty"`
}
