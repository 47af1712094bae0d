package domain

import "time"

// Session is a row of the session table. Sessions are never updated in place;
// replacing one means revoking it and creating another.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Token     string    `json:"token"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Expired reports whether the session is no longer valid at now.
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// User is the identity owning a session.
type User struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	Name          string    `json:"name"`
	EmailVerified bool      `json:"emailVerified"`
	CreatedAt     time.Time `json:"createdAt"`
}

// SessionView is the result of a session lookup and the value stored in the cache.
type SessionView struct {
	Session Session `json:"session"`
	User    User    `json:"user"`
}

// ServiceToken is a signed downstream credential.
type ServiceToken struct {
	Value     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}
