package store

import (
	"context"
	"sync"
	"time"

	"github.com/digital-blueprint/apiserver/types"
	"github.com/google/uuid"
)

// UserMemory keeps users in process memory.
type UserMemory struct {
	mu         sync.RWMutex
	byID       map[string]types.User
	byUsername map[string]string
}

func NewUserMemory() *UserMemory {
	return &UserMemory{
		byID:       make(map[string]types.User),
		byUsername: make(map[string]string),
	}
}

func (m *UserMemory) GetByID(ctx context.Context, id string) (types.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	user, ok := m.byID[id]
	if !ok {
		return types.User{}, ErrNotFound
	}
	return user, nil
}

func (m *UserMemory) GetByUsername(ctx context.Context, username string) (types.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byUsername[username]
	if !ok {
		return types.User{}, ErrNotFound
	}
	return m.byID[id], nil
}

func (m *UserMemory) Create(ctx context.Context, user types.User) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byUsername[user.Username]; exists {
		return types.User{}, ErrConflict
	}
	user.ID = uuid.NewString()
	user.CreatedAt = time.Now().UTC()
	m.byID[user.ID] = user
	m.byUsername[user.Username] = user.ID
	return user, nil
}
