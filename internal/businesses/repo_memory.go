package businesses

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"
)

// MemoryRepo stores businesses in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu   sync.RWMutex
	byID map[string]Business
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byID: make(map[string]Business)}
}

// Create stores the business.
func (r *MemoryRepo) Create(ctx context.Context, business Business) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[business.ID] = cloneBusiness(business)
	return nil
}

// GetByID returns a business owned by ownerID.
func (r *MemoryRepo) GetByID(ctx context.Context, ownerID, businessID string) (Business, error) {
	if err := ctx.Err(); err != nil {
		return Business{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	business, ok := r.byID[businessID]
	if !ok || business.OwnerID != ownerID {
		return Business{}, ErrNotFound
	}
	return cloneBusiness(business), nil
}

// Get returns a business regardless of owner.
func (r *MemoryRepo) Get(ctx context.Context, businessID string) (Business, error) {
	if err := ctx.Err(); err != nil {
		return Business{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	business, ok := r.byID[businessID]
	if !ok {
		return Business{}, ErrNotFound
	}
	return cloneBusiness(business), nil
}

// ListByOwner returns an owner's businesses, newest first, with limit/offset.
func (r *MemoryRepo) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]Business, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if offset < 0 {
		offset = 0
	}
	if limit < 0 {
		limit = 0
	}

	r.mu.RLock()
	var out []Business
	for _, business := range r.byID {
		if business.OwnerID == ownerID {
			out = append(out, cloneBusiness(business))
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	if offset >= len(out) {
		return []Business{}, nil
	}
	end := len(out)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return out[offset:end], nil
}

// UpdateStatus updates one kind's state without touching the others.
func (r *MemoryRepo) UpdateStatus(ctx context.Context, businessID string, kind AnalysisKind, state AnalysisState) error {
	return r.mutate(ctx, businessID, func(business *Business) {
		business.Statuses.Set(kind, state)
	})
}

// UpdateStatuses applies all transitions under one lock acquisition.
func (r *MemoryRepo) UpdateStatuses(ctx context.Context, businessID string, states map[AnalysisKind]AnalysisState) error {
	return r.mutate(ctx, businessID, func(business *Business) {
		for kind, state := range states {
			business.Statuses.Set(kind, state)
		}
	})
}

// SetResult stores one kind's payload.
func (r *MemoryRepo) SetResult(ctx context.Context, businessID string, kind AnalysisKind, payload json.RawMessage) error {
	return r.mutate(ctx, businessID, func(business *Business) {
		business.Results.Set(kind, append(json.RawMessage(nil), payload...))
	})
}

// ClearResult removes one kind's payload.
func (r *MemoryRepo) ClearResult(ctx context.Context, businessID string, kind AnalysisKind) error {
	return r.mutate(ctx, businessID, func(business *Business) {
		business.Results.Set(kind, nil)
	})
}

// ClearResults removes every stored payload.
func (r *MemoryRepo) ClearResults(ctx context.Context, businessID string) error {
	return r.mutate(ctx, businessID, func(business *Business) {
		business.Results = ResultSet{}
	})
}

// AppendInteraction appends one narrative entry.
func (r *MemoryRepo) AppendInteraction(ctx context.Context, businessID, message string) error {
	return r.mutate(ctx, businessID, func(business *Business) {
		business.Interactions = append(business.Interactions, InteractionEntry{
			Message:   message,
			CreatedAt: time.Now().UTC(),
		})
	})
}

// ClaimGuest reassigns every business from a guest owner to an authenticated
// one and returns how many moved.
func (r *MemoryRepo) ClaimGuest(ctx context.Context, guestOwnerID, authedOwnerID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for id, business := range r.byID {
		if business.OwnerID != guestOwnerID {
			continue
		}
		business.OwnerID = authedOwnerID
		business.UpdatedAt = time.Now().UTC()
		r.byID[id] = business
		count++
	}
	return count, nil
}

func (r *MemoryRepo) mutate(ctx context.Context, businessID string, apply func(*Business)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	business, ok := r.byID[businessID]
	if !ok {
		return ErrNotFound
	}
	apply(&business)
	business.UpdatedAt = time.Now().UTC()
	r.byID[businessID] = business
	return nil
}

func cloneBusiness(business Business) Business {
	out := business
	out.Results = ResultSet{}
	for _, kind := range AllKinds() {
		if payload := business.Results.Get(kind); payload != nil {
			out.Results.Set(kind, append(json.RawMessage(nil), payload...))
		}
	}
	if business.Interactions != nil {
		out.Interactions = append([]InteractionEntry(nil), business.Interactions...)
	}
	return out
}

var _ Repo = (*MemoryRepo)(nil)
