package owners

import (
	"context"
	"errors"
	"strings"
)

type Service struct {
	Repo Repo
}

func NewService(repo Repo) *Service {
	return &Service{Repo: repo}
}

// UpsertFromAuth persists the owner identity from OAuth so business ownership
// stays stable across logins.
func (s *Service) UpsertFromAuth(ctx context.Context, owner Owner) error {
	if s == nil || s.Repo == nil {
		return errors.New("owners service not configured")
	}
	if strings.TrimSpace(owner.ID) == "" || strings.TrimSpace(owner.Email) == "" {
		return errors.New("owner id and email are required")
	}
	return s.Repo.Upsert(ctx, owner)
}

func (s *Service) GetByID(ctx context.Context, ownerID string) (Owner, error) {
	if s == nil || s.Repo == nil {
		return Owner{}, errors.New("owners service not configured")
	}
	if strings.TrimSpace(ownerID) == "" {
		return Owner{}, errors.New("owner id is required")
	}
	return s.Repo.GetByID(ctx, ownerID)
}
