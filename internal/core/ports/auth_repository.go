package ports

import (
	"context"

	"github.com/2emr/sensor-backend/internal/core/domain"
)

// UserRepository persists user identities. Create must enforce username
// uniqueness itself and return domain.ErrUserExists on a duplicate.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
}
