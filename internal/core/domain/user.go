package domain

import (
	"errors"
	"time"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrUserExists         = errors.New("user already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrCredentialsTooLong = errors.New("credentials too long")
)

const (
	// MaxUsernameLength is counted in characters.
	MaxUsernameLength = 64
	// MaxPasswordBytes is bcrypt's input limit.
	MaxPasswordBytes = 72
)

// User models a registered dashboard operator. Users are never updated or
// deleted once created.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}
