package owners

import (
	"context"
	"sync"
	"time"
)

type MemoryRepo struct {
	mu     sync.RWMutex
	owners map[string]Owner
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{owners: make(map[string]Owner)}
}

func (r *MemoryRepo) Upsert(ctx context.Context, owner Owner) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.owners[owner.ID]
	now := time.Now().UTC()
	if !ok {
		owner.CreatedAt = now
	} else {
		owner.CreatedAt = existing.CreatedAt
	}
	owner.UpdatedAt = now
	r.owners[owner.ID] = owner
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, ownerID string) (Owner, error) {
	if err := ctx.Err(); err != nil {
		return Owner{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	owner, ok := r.owners[ownerID]
	if !ok {
		return Owner{}, ErrNotFound
	}
	return owner, nil
}
