package ports

import "context"

type AuthService interface {
	Register(ctx context.Context, username, password string) error
	Login(ctx context.Context, username, password string) (string, error)
}

// TokenIssuer signs bearer tokens bound to a user id.
type TokenIssuer interface {
	Issue(userID string) (string, error)
}

// TokenVerifier checks a bearer token and returns the user id it was issued for.
// It returns domain.ErrTokenInvalid or domain.ErrTokenExpired on rejection.
type TokenVerifier interface {
	Verify(token string) (string, error)
}
