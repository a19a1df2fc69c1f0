package service

import (
	"context"
	"errors"
	"time"

	"github.com/aphexes/flaskblog/internal/hash"
	"github.com/aphexes/flaskblog/internal/models"
	"github.com/aphexes/flaskblog/internal/token"
	"github.com/sirupsen/logrus"
)

// ErrInvalidCredentials is returned on login failure. It never says whether
// the email or the password was wrong.
var ErrInvalidCredentials = errors.New("invalid credentials")

// UserStore is the subset of the repository the auth service needs.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	FindUserByUsername(ctx context.Context, username string) (*models.User, error)
	FindUserByID(ctx context.Context, id int64) (*models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error
	UpdatePassword(ctx context.Context, userID int64, passwordHash string) error
}

// AuthService handles registration, login and password reset
type AuthService struct {
	users            UserStore
	log              *logrus.Logger
	secretKey        []byte
	resetTokenMaxAge time.Duration
}

// NewAuthService initializes a new auth service
func NewAuthService(users UserStore, log *logrus.Logger, secretKey string, resetTokenMaxAge time.Duration) *AuthService {
	return &AuthService{
		users:            users,
		log:              log,
		secretKey:        []byte(secretKey),
		resetTokenMaxAge: resetTokenMaxAge,
	}
}

// Register creates a new user with hashed password
func (s *AuthService) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	hashed, err := hash.Password(password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: hashed,
		ImageFile:    models.DefaultAvatar,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	s.log.Infof("User registered: %s", user.Email)
	return user, nil
}

// Authenticate checks an email/password pair. Unknown email and wrong
// password both come back as ErrInvalidCredentials.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.users.FindUserByEmail(ctx, email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if !hash.Check(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	s.log.Infof("User logged in: %s", user.Email)
	return user, nil
}

// User retrieves a user by id
func (s *AuthService) User(ctx context.Context, id int64) (*models.User, error) {
	return s.users.FindUserByID(ctx, id)
}

// UserByUsername retrieves a user by username
func (s *AuthService) UserByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.users.FindUserByUsername(ctx, username)
}

// UpdateAccount persists username, email and avatar changes atomically
func (s *AuthService) UpdateAccount(ctx context.Context, user *models.User) error {
	if err := s.users.UpdateUser(ctx, user); err != nil {
		return err
	}
	s.log.Infof("Account updated: %s", user.Email)
	return nil
}

// IssueResetToken looks up the account for an email and issues a signed
// reset token for it. The caller decides what to reveal to the requester.
func (s *AuthService) IssueResetToken(ctx context.Context, email string) (*models.User, string, error) {
	user, err := s.users.FindUserByEmail(ctx, email)
	if err != nil {
		return nil, "", err
	}
	tok, err := token.Issue(user.ID, s.secretKey)
	if err != nil {
		return nil, "", err
	}
	return user, tok, nil
}

// ResetPassword verifies a reset token and stores a new password hash.
// Returns token.ErrInvalidToken or token.ErrExpiredToken on bad tokens.
func (s *AuthService) ResetPassword(ctx context.Context, tokenString, newPassword string) error {
	userID, err := token.Verify(tokenString, s.secretKey, s.resetTokenMaxAge)
	if err != nil {
		return err
	}

	hashed, err := hash.Password(newPassword)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, userID, hashed); err != nil {
		return err
	}

	s.log.Infof("Password reset for user %d", userID)
	return nil
}
