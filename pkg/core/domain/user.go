package domain

import "time"

// User is an account that can own links. Users created through OAuth have
// an empty password hash and can only sign in through their provider.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}
