package domain

import "time"

// User represents a registered account. Email is optional; an empty value
// means none was supplied.
type User struct {
	ID           int64
	Username     string
	Email        string
	Name         string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Sanitized returns a copy of the user without the password hash.
func (u *User) Sanitized() *User {
	if u == nil {
		return nil
	}
	clean := *u
	clean.PasswordHash = ""
	return &clean
}
