package domain

import "errors"

// Token errors. ErrTokenInvalid and ErrTokenExpired are rendered identically
// to clients; the distinction only exists for logs and tests.
var (
	ErrTokenMissing = errors.New("token missing")
	ErrTokenInvalid = errors.New("token invalid")
	ErrTokenExpired = errors.New("token expired")
)
