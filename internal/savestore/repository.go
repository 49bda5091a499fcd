// Package savestore serves the save API: one POST endpoint that stores a game
// snapshot per user.
package savestore

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/tatianab/franco-game/internal/models"
)

// ErrNotFound is returned by Repository.Load when the user has no save.
var ErrNotFound = errors.New("save not found")

// Repository keeps the latest snapshot per user. A save replaces whatever was
// stored before it.
type Repository interface {
	Close(ctx context.Context) error
	Save(ctx context.Context, userID string, snap models.Snapshot) error
	Load(ctx context.Context, userID string) (*models.Snapshot, error)
	Delete(ctx context.Context, userID string) error
	Ping(ctx context.Context) error
}

// MemoryRepository keeps saves in a map. Saves are lost on exit.
type MemoryRepository struct {
	lock  sync.RWMutex
	saves map[string]models.Snapshot
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{saves: make(map[string]models.Snapshot)}
}

func (r *MemoryRepository) Close(context.Context) error { return nil }

func (r *MemoryRepository) Ping(context.Context) error { return nil }

func (r *MemoryRepository) Save(_ context.Context, userID string, snap models.Snapshot) error {
	snap.Inventory = slices.Clone(snap.Inventory)
	r.lock.Lock()
	defer r.lock.Unlock()
	r.saves[userID] = snap
	return nil
}

func (r *MemoryRepository) Load(_ context.Context, userID string) (*models.Snapshot, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	snap, ok := r.saves[userID]
	if !ok {
		return nil, ErrNotFound
	}
	snap.Inventory = slices.Clone(snap.Inventory)
	return &snap, nil
}

func (r *MemoryRepository) Delete(_ context.Context, userID string) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	delete(r.saves, userID)
	return nil
}
