package models

import "time"

// DefaultAvatar is the image file assigned to users who never uploaded one.
const DefaultAvatar = "default.jpg"

// User represents a registered user in the system
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Not serialized
	ImageFile    string    `json:"image_file"`
	CreatedAt    time.Time `json:"created_at"`
}
