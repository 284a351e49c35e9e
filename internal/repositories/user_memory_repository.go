package repositories

import (
	"context"
	"fmt"
	"sync"
	"time"

	"socialhub/internal/models"
)

// MemoryUserRepository is an in-memory implementation of UserRepository.
// It enforces the same username uniqueness as the SQL schema.
type MemoryUserRepository struct {
	users      map[uint]models.User
	byUsername map[string]uint
	nextID     uint
	mu         sync.RWMutex
}

// NewMemoryUserRepository creates a new instance of MemoryUserRepository.
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		users:      make(map[uint]models.User),
		byUsername: make(map[string]uint),
	}
}

// Create adds a new user and assigns its ID.
func (r *MemoryUserRepository) Create(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byUsername[user.Username]; ok {
		return fmt.Errorf("username %q: %w", user.Username, ErrDuplicate)
	}
	r.nextID++
	now := time.Now()
	user.ID = r.nextID
	user.CreatedAt = now
	user.UpdatedAt = now
	r.users[user.ID] = *user
	r.byUsername[user.Username] = user.ID
	return nil
}

// GetByUsername returns a user by username.
func (r *MemoryUserRepository) GetByUsername(_ context.Context, username string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byUsername[username]
	if !ok {
		return nil, fmt.Errorf("user with username %s: %w", username, ErrNotFound)
	}
	user := r.users[id]
	return &user, nil
}

// GetByID returns a user by ID.
func (r *MemoryUserRepository) GetByID(_ context.Context, id uint) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return nil, fmt.Errorf("user with ID %d: %w", id, ErrNotFound)
	}
	return &user, nil
}

// UpdatePassword replaces the stored hash for username.
func (r *MemoryUserRepository) UpdatePassword(_ context.Context, username, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byUsername[username]
	if !ok {
		return fmt.Errorf("user with username %s: %w", username, ErrNotFound)
	}
	user := r.users[id]
	user.PasswordHash = passwordHash
	user.UpdatedAt = time.Now()
	r.users[id] = user
	return nil
}

// identity returns the public projection of id, or false when absent.
func (r *MemoryUserRepository) identity(id uint) (models.UserIdentity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return models.UserIdentity{}, false
	}
	return user.Identity(), true
}
