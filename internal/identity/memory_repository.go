package identity

import (
	"context"
	"sync"
)

type memoryRepository struct {
	mu      sync.RWMutex
	users   map[string]User
	byEmail map[string]string
}

// NewMemoryRepository builds an in-memory user store for development and tests.
func NewMemoryRepository() Repository {
	return &memoryRepository{users: make(map[string]User), byEmail: make(map[string]string)}
}

func (r *memoryRepository) Create(_ context.Context, user User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byEmail[user.Email]; exists {
		return ErrUserExists
	}
	r.users[user.ID] = user
	r.byEmail[user.Email] = user.ID
	return nil
}

func (r *memoryRepository) FindByEmail(_ context.Context, email string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[email]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return r.users[id], nil
}

func (r *memoryRepository) FindByID(_ context.Context, id string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[id]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return user, nil
}

func (r *memoryRepository) SetVerificationToken(_ context.Context, id, token string) error {
	return r.update(id, func(u *User) { u.VerificationToken = token })
}

func (r *memoryRepository) VerifyByToken(_ context.Context, token string) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if token == "" {
		return User{}, ErrInvalidVerificationToken
	}
	for id, u := range r.users {
		if u.VerificationToken == token {
			u.Verified = true
			u.VerificationToken = ""
			r.users[id] = u
			return u, nil
		}
	}
	return User{}, ErrInvalidVerificationToken
}

func (r *memoryRepository) UpdatePassword(_ context.Context, id string, hash []byte) error {
	return r.update(id, func(u *User) {
		u.PasswordHash = hash
		u.TokenVersion++
	})
}

func (r *memoryRepository) UpdateTokenVersion(_ context.Context, id string, version int) error {
	return r.update(id, func(u *User) { u.TokenVersion = version })
}

func (r *memoryRepository) update(id string, fn func(*User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return ErrUserNotFound
	}
	fn(&user)
	r.users[id] = user
	return nil
}
