package chat

import "time"

// Session is an authenticated identity handle.
// Only the session gate creates or discards it.
type Session struct {
	UserID    string
	Email     string
	Token     string
	ExpiresAt time.Time
}

// SameIdentity reports whether both handles belong to the same user.
// A nil handle only matches another nil handle.
func SameIdentity(a, b *Session) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.UserID == b.UserID
}
