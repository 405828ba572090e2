package memory

import (
	"context"
	"strconv"
	"sync"

	"github.com/2emr/sensor-backend/internal/core/domain"
)

type UserRepository struct {
	mu     sync.RWMutex
	byName map[string]domain.User
	nextID int64
}

func NewUserRepository() *UserRepository {
	return &UserRepository{byName: make(map[string]domain.User)}
}

// Create checks and inserts under one lock, so a duplicate can never slip in
// between concurrent callers.
func (r *UserRepository) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byName[user.Username]; exists {
		return nil, domain.ErrUserExists
	}

	r.nextID++
	stored := *user
	stored.ID = strconv.FormatInt(r.nextID, 10)
	r.byName[stored.Username] = stored

	out := stored
	return &out, nil
}

func (r *UserRepository) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byName[username]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return &u, nil
}

// Count reports the number of stored users.
func (r *UserRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byName)
}
