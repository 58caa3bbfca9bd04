package analyses

import (
	"context"

	"venture-backend/internal/businesses"
	"venture-backend/internal/shared/metrics"
	"venture-backend/internal/shared/telemetry"
)

// Rerun resets the targeted kinds back to pending, clears their stored
// results, and kicks off a detached run. target is either TargetAll or a
// single analysis kind. The reset is rejected with ErrRunInProgress while any
// targeted kind is still running, so a reset can never race an in-flight
// completion for the same kind.
func (s *Service) Rerun(ctx context.Context, ownerID, businessID, target string) error {
	business, err := s.Repo.GetByID(ctx, ownerID, businessID)
	if err != nil {
		return err
	}

	var kinds []businesses.AnalysisKind
	if target == TargetAll {
		kinds = businesses.AllKinds()
	} else {
		kind, err := businesses.ParseKind(target)
		if err != nil {
			return ErrInvalidTarget
		}
		kinds = []businesses.AnalysisKind{kind}
	}
	for _, kind := range kinds {
		if s.guard.busy(businessID, kind) {
			return ErrRunInProgress
		}
	}

	if target == TargetAll {
		if err := s.persist(ctx, businessID, "clear results", func() error {
			return s.Repo.ClearResults(ctx, businessID)
		}); err != nil {
			return err
		}
		resets := make(map[businesses.AnalysisKind]businesses.AnalysisState, len(kinds))
		for _, kind := range kinds {
			resets[kind] = businesses.StatePending
		}
		if err := s.persist(ctx, businessID, "batch status update", func() error {
			return s.Repo.UpdateStatuses(ctx, businessID, resets)
		}); err != nil {
			return err
		}
		s.appendInteraction(ctx, businessID, "Rerun requested for all analyses")
	} else {
		kind := kinds[0]
		if err := s.persist(ctx, businessID, "clear result", func() error {
			return s.Repo.ClearResult(ctx, businessID, kind)
		}); err != nil {
			return err
		}
		if err := s.persist(ctx, businessID, "status update", func() error {
			return s.Repo.UpdateStatus(ctx, businessID, kind, businesses.StatePending)
		}); err != nil {
			return err
		}
		s.appendInteraction(ctx, businessID, "Rerun requested for "+kind.Label())
	}

	metrics.IncRerun()
	telemetry.Info("analysis.rerun", map[string]any{
		"request_id":  requestIDFromContext(ctx),
		"owner_id":    ownerID,
		"business_id": businessID,
		"target":      target,
	})

	detached := backgroundWithRequestID(ctx)
	if target == TargetAll {
		go func() {
			if err := s.RunAll(detached, business.ID); err != nil {
				telemetry.Error("analysis.runall", map[string]any{
					"request_id":  requestIDFromContext(detached),
					"business_id": business.ID,
					"error":       sanitizeError(err),
				})
			}
		}()
	} else {
		kind := kinds[0]
		go func() {
			if err := s.RunOne(detached, business.ID, kind); err != nil {
				telemetry.Error("analysis.runone", map[string]any{
					"request_id":  requestIDFromContext(detached),
					"business_id": business.ID,
					"kind":        string(kind),
					"error":       sanitizeError(err),
				})
			}
		}()
	}
	return nil
}

// Status returns the business with its current per-kind analysis states for
// the poll endpoint. Ownership is enforced by the repo lookup.
func (s *Service) Status(ctx context.Context, ownerID, businessID string) (businesses.Business, error) {
	return s.Repo.GetByID(ctx, ownerID, businessID)
}
