package repository

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/lib/pq"
)

var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateEmail is returned when a write collides with another user's email.
	ErrDuplicateEmail = errors.New("email already taken")
	// ErrDuplicateUsername is returned when a write collides with another user's username.
	ErrDuplicateUsername = errors.New("username already taken")
)

// Repository provides database operations
type Repository struct {
	db *sql.DB
}

// NewRepository initializes a new repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// duplicateKeyErr maps a Postgres unique-constraint violation to the
// field-specific sentinel. Any other error passes through unchanged.
func duplicateKeyErr(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != "23505" {
		return err
	}
	switch {
	case strings.Contains(pqErr.Constraint, "email"):
		return ErrDuplicateEmail
	case strings.Contains(pqErr.Constraint, "username"):
		return ErrDuplicateUsername
	}
	return err
}
