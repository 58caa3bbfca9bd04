package owners

import "context"

var ErrNotFound = errNotFound{}

type errNotFound struct{}

func (errNotFound) Error() string { return "owner not found" }

type Repo interface {
	Upsert(ctx context.Context, owner Owner) error
	GetByID(ctx context.Context, ownerID string) (Owner, error)
}
