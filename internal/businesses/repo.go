package businesses

import (
	"context"
	"encoding/json"
)

// Repo defines persistence operations for businesses. Status and result
// updates are field-scoped partial merges: writing one kind never overwrites
// another kind's concurrently written state or payload.
type Repo interface {
	Create(ctx context.Context, business Business) error
	// GetByID is owner-scoped and returns ErrNotFound on an owner mismatch.
	GetByID(ctx context.Context, ownerID, businessID string) (Business, error)
	// Get is the unscoped lookup used by the orchestrator after ownership
	// has been checked at the request boundary.
	Get(ctx context.Context, businessID string) (Business, error)
	ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]Business, error)

	UpdateStatus(ctx context.Context, businessID string, kind AnalysisKind, state AnalysisState) error
	// UpdateStatuses applies all transitions in one atomic write so readers
	// never observe a partially updated map for that batch.
	UpdateStatuses(ctx context.Context, businessID string, states map[AnalysisKind]AnalysisState) error
	SetResult(ctx context.Context, businessID string, kind AnalysisKind, payload json.RawMessage) error
	ClearResult(ctx context.Context, businessID string, kind AnalysisKind) error
	ClearResults(ctx context.Context, businessID string) error
	AppendInteraction(ctx context.Context, businessID, message string) error
}
