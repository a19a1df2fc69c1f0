package models

import "time"

// Session is a persisted login session. The ID doubles as the value of the
// browser cookie that extends the session across requests.
type Session struct {
	ID        string    `json:"id"`
	UserID    int64     `json:"user_id"`
	Remember  bool      `json:"remember"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}
