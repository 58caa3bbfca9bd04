package businesses

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// AnalysisRunner triggers the orchestration pipeline for a business. The
// concrete implementation lives in the analyses package; the interface keeps
// the dependency pointing one way.
type AnalysisRunner interface {
	RunAllDeferred(businessID string, delay time.Duration)
}

// Service contains business logic for business profiles.
type Service struct {
	Repo   Repo
	Runner AnalysisRunner
	// KickoffDelay defers the first orchestration run so the creation
	// response returns before any agent work starts.
	KickoffDelay time.Duration
}

// CreateInput carries the profile fields for a new business.
type CreateInput struct {
	Name        string
	Industry    string
	Stage       string
	Description string
}

// Create records a new business with every analysis pending and schedules the
// first orchestration run.
func (s *Service) Create(ctx context.Context, ownerID string, input CreateInput) (Business, error) {
	if strings.TrimSpace(ownerID) == "" {
		return Business{}, errors.New("owner id is required")
	}
	if strings.TrimSpace(input.Name) == "" {
		return Business{}, ErrInvalidInput
	}

	now := time.Now().UTC()
	business := Business{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		Name:        strings.TrimSpace(input.Name),
		Industry:    strings.TrimSpace(input.Industry),
		Stage:       strings.TrimSpace(input.Stage),
		Description: strings.TrimSpace(input.Description),
		Statuses:    NewStatusMap(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.Repo.Create(ctx, business); err != nil {
		return Business{}, err
	}
	if err := s.Repo.AppendInteraction(ctx, business.ID, "Business profile created"); err != nil {
		return Business{}, err
	}

	if s.Runner != nil {
		s.Runner.RunAllDeferred(business.ID, s.KickoffDelay)
	}

	return business, nil
}

// Get returns a business owned by ownerID.
func (s *Service) Get(ctx context.Context, ownerID, businessID string) (Business, error) {
	if businessID == "" {
		return Business{}, errors.New("business id is required")
	}
	return s.Repo.GetByID(ctx, ownerID, businessID)
}

// List returns an owner's businesses, newest first.
func (s *Service) List(ctx context.Context, ownerID string, limit, offset int) ([]Business, error) {
	if ownerID == "" {
		return nil, errors.New("owner id is required")
	}
	return s.Repo.ListByOwner(ctx, ownerID, limit, offset)
}
