package owners

import (
	"context"
	"database/sql"
	"errors"
)

type PGRepo struct {
	DB *sql.DB
}

func (r *PGRepo) Upsert(ctx context.Context, owner Owner) error {
	const query = `
INSERT INTO owners (id, email, full_name, given_name, family_name, picture_url, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, now(), now())
ON CONFLICT (id) DO UPDATE SET
  email = EXCLUDED.email,
  full_name = EXCLUDED.full_name,
  given_name = EXCLUDED.given_name,
  family_name = EXCLUDED.family_name,
  picture_url = EXCLUDED.picture_url,
  updated_at = now()`
	_, err := r.DB.ExecContext(ctx, query,
		owner.ID,
		owner.Email,
		owner.FullName,
		owner.GivenName,
		owner.FamilyName,
		owner.PictureURL,
	)
	return err
}

func (r *PGRepo) GetByID(ctx context.Context, ownerID string) (Owner, error) {
	const query = `
SELECT id, email, full_name, given_name, family_name, picture_url, created_at, updated_at
FROM owners
WHERE id = $1
LIMIT 1`
	var owner Owner
	err := r.DB.QueryRowContext(ctx, query, ownerID).Scan(
		&owner.ID,
		&owner.Email,
		&owner.FullName,
		&owner.GivenName,
		&owner.FamilyName,
		&owner.PictureURL,
		&owner.CreatedAt,
		&owner.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Owner{}, ErrNotFound
		}
		return Owner{}, err
	}
	return owner, nil
}
