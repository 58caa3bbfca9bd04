package account

import (
	"context"
	"errors"
	"strings"

	"venture-backend/internal/businesses"
)

type Service struct {
	BusinessRepo businesses.Repo
}

type ClaimResult struct {
	MigratedBusinesses int `json:"migratedBusinesses"`
}

func NewService(businessRepo businesses.Repo) *Service {
	return &Service{BusinessRepo: businessRepo}
}

// ClaimGuest moves every business created under a guest identity to the
// authenticated owner, so work done before login is not lost.
func (s *Service) ClaimGuest(ctx context.Context, guestOwnerID, authedOwnerID string) (ClaimResult, error) {
	if strings.TrimSpace(guestOwnerID) == "" || strings.TrimSpace(authedOwnerID) == "" {
		return ClaimResult{}, errors.New("guestOwnerID and authedOwnerID are required")
	}

	claimer, ok := s.BusinessRepo.(guestClaimer)
	if !ok {
		return ClaimResult{}, errors.New("business repo does not support claim")
	}
	count, err := claimer.ClaimGuest(ctx, guestOwnerID, authedOwnerID)
	if err != nil {
		return ClaimResult{}, err
	}
	return ClaimResult{MigratedBusinesses: count}, nil
}

type guestClaimer interface {
	ClaimGuest(ctx context.Context, guestOwnerID, authedOwnerID string) (int, error)
}
