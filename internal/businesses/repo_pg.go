package businesses

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

// PGRepo implements Repo using Postgres. The status map and result set live
// in jsonb columns; every per-kind update is a single-statement jsonb merge
// so concurrent writers to different kinds never clobber each other.
type PGRepo struct {
	DB *sql.DB
}

const businessColumns = `id, owner_id, name, industry, stage, description, status_map, results, created_at, updated_at`

// Create inserts a new business.
func (r *PGRepo) Create(ctx context.Context, business Business) error {
	const query = `
INSERT INTO businesses (id, owner_id, name, industry, stage, description, status_map, results, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)`

	statusPayload, err := json.Marshal(business.Statuses)
	if err != nil {
		return err
	}
	resultsPayload, err := json.Marshal(business.Results)
	if err != nil {
		return err
	}
	createdAt := business.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err = r.DB.ExecContext(ctx, query,
		business.ID,
		business.OwnerID,
		business.Name,
		business.Industry,
		business.Stage,
		business.Description,
		statusPayload,
		resultsPayload,
		createdAt,
	)
	return err
}

// GetByID returns a business owned by ownerID, including its interaction log.
func (r *PGRepo) GetByID(ctx context.Context, ownerID, businessID string) (Business, error) {
	const query = `
SELECT ` + businessColumns + `
FROM businesses
WHERE id = $1::uuid AND owner_id = $2 AND deleted_at IS NULL
LIMIT 1`
	business, err := r.scanOne(r.DB.QueryRowContext(ctx, query, businessID, ownerID))
	if err != nil {
		return Business{}, err
	}
	business.Interactions, err = r.loadInteractions(ctx, business.ID)
	if err != nil {
		return Business{}, err
	}
	return business, nil
}

// Get returns a business regardless of owner.
func (r *PGRepo) Get(ctx context.Context, businessID string) (Business, error) {
	const query = `
SELECT ` + businessColumns + `
FROM businesses
WHERE id = $1::uuid AND deleted_at IS NULL
LIMIT 1`
	return r.scanOne(r.DB.QueryRowContext(ctx, query, businessID))
}

// ListByOwner lists an owner's businesses, newest first.
func (r *PGRepo) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]Business, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	const query = `
SELECT ` + businessColumns + `
FROM businesses
WHERE owner_id = $1 AND deleted_at IS NULL
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`

	rows, err := r.DB.QueryContext(ctx, query, ownerID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Business
	for rows.Next() {
		business, err := r.scanOne(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, business)
	}
	return out, rows.Err()
}

// UpdateStatus updates one kind's state without touching the others.
func (r *PGRepo) UpdateStatus(ctx context.Context, businessID string, kind AnalysisKind, state AnalysisState) error {
	const query = `
UPDATE businesses
SET status_map = jsonb_set(status_map, ARRAY[$2::text], to_jsonb($3::text)),
    updated_at = now()
WHERE id = $1::uuid AND deleted_at IS NULL`
	return r.exec(ctx, query, businessID, string(kind), string(state))
}

// UpdateStatuses merges all transitions in one statement so readers never see
// a partially applied batch.
func (r *PGRepo) UpdateStatuses(ctx context.Context, businessID string, states map[AnalysisKind]AnalysisState) error {
	if len(states) == 0 {
		return nil
	}
	patch := make(map[string]string, len(states))
	for kind, state := range states {
		patch[string(kind)] = string(state)
	}
	payload, err := json.Marshal(patch)
	if err != nil {
		return err
	}
	const query = `
UPDATE businesses
SET status_map = status_map || $2::jsonb,
    updated_at = now()
WHERE id = $1::uuid AND deleted_at IS NULL`
	return r.exec(ctx, query, businessID, payload)
}

// SetResult stores one kind's payload.
func (r *PGRepo) SetResult(ctx context.Context, businessID string, kind AnalysisKind, payload json.RawMessage) error {
	const query = `
UPDATE businesses
SET results = jsonb_set(results, ARRAY[$2::text], $3::jsonb),
    updated_at = now()
WHERE id = $1::uuid AND deleted_at IS NULL`
	return r.exec(ctx, query, businessID, string(kind), []byte(payload))
}

// ClearResult removes one kind's payload.
func (r *PGRepo) ClearResult(ctx context.Context, businessID string, kind AnalysisKind) error {
	const query = `
UPDATE businesses
SET results = results - $2::text,
    updated_at = now()
WHERE id = $1::uuid AND deleted_at IS NULL`
	return r.exec(ctx, query, businessID, string(kind))
}

// ClearResults removes every stored payload.
func (r *PGRepo) ClearResults(ctx context.Context, businessID string) error {
	const query = `
UPDATE businesses
SET results = '{}'::jsonb,
    updated_at = now()
WHERE id = $1::uuid AND deleted_at IS NULL`
	return r.exec(ctx, query, businessID)
}

// AppendInteraction appends one narrative entry.
func (r *PGRepo) AppendInteraction(ctx context.Context, businessID, message string) error {
	const query = `
INSERT INTO business_interactions (business_id, message, created_at)
VALUES ($1::uuid, $2, now())`
	_, err := r.DB.ExecContext(ctx, query, businessID, message)
	return err
}

// ClaimGuest reassigns every business from a guest owner to an authenticated
// one and returns how many moved.
func (r *PGRepo) ClaimGuest(ctx context.Context, guestOwnerID, authedOwnerID string) (int, error) {
	const query = `
UPDATE businesses
SET owner_id = $1, updated_at = now()
WHERE owner_id = $2 AND deleted_at IS NULL`
	res, err := r.DB.ExecContext(ctx, query, authedOwnerID, guestOwnerID)
	if err != nil {
		return 0, err
	}
	count, _ := res.RowsAffected()
	return int(count), nil
}

func (r *PGRepo) exec(ctx context.Context, query string, args ...any) error {
	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *PGRepo) scanOne(row rowScanner) (Business, error) {
	var business Business
	var statusPayload []byte
	var resultsPayload []byte
	err := row.Scan(
		&business.ID,
		&business.OwnerID,
		&business.Name,
		&business.Industry,
		&business.Stage,
		&business.Description,
		&statusPayload,
		&resultsPayload,
		&business.CreatedAt,
		&business.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Business{}, ErrNotFound
		}
		return Business{}, err
	}
	business.Statuses = NewStatusMap()
	if len(statusPayload) > 0 {
		if err := json.Unmarshal(statusPayload, &business.Statuses); err != nil {
			return Business{}, err
		}
	}
	if len(resultsPayload) > 0 {
		if err := json.Unmarshal(resultsPayload, &business.Results); err != nil {
			return Business{}, err
		}
	}
	return business, nil
}

func (r *PGRepo) loadInteractions(ctx context.Context, businessID string) ([]InteractionEntry, error) {
	const query = `
SELECT message, created_at
FROM business_interactions
WHERE business_id = $1::uuid
ORDER BY created_at, id`

	rows, err := r.DB.QueryContext(ctx, query, businessID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []InteractionEntry
	for rows.Next() {
		var entry InteractionEntry
		if err := rows.Scan(&entry.Message, &entry.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

var _ Repo = (*PGRepo)(nil)
