package analyses

import (
	"context"
	"errors"
	"time"

	"venture-backend/internal/agent"
	"venture-backend/internal/businesses"
	"venture-backend/internal/shared/metrics"
	"venture-backend/internal/shared/telemetry"
)

// Event is one server-sent event emitted during a streamed run.
type Event struct {
	Name string
	Data any
}

const (
	EventStatusUpdate      = "status_update"
	EventAnalysisStarted   = "analysis_started"
	EventAnalysisCompleted = "analysis_completed"
	EventAnalysisFailed    = "analysis_failed"
	EventAllCompleted      = "all_completed"
	EventError             = "error"
)

// EmitFunc delivers one event to the client. A non-nil error means the
// client is gone and the stream should stop emitting.
type EmitFunc func(Event) error

// Stream runs every pending or failed kind sequentially, emitting progress
// events as each one starts and resolves. An agent failure is reported with
// analysis_failed and the stream moves on to the next kind; an unexpected
// failure (persistence, panic) emits a terminal error event and aborts,
// leaving unreached kinds untouched. Returns before any event is emitted
// when the business is missing or a targeted kind is already running, so the
// handler can still answer with a plain status code.
func (s *Service) Stream(ctx context.Context, ownerID, businessID string, emit EmitFunc) error {
	business, err := s.Repo.GetByID(ctx, ownerID, businessID)
	if err != nil {
		return err
	}

	type claim struct {
		kind    businesses.AnalysisKind
		release func()
	}
	var claims []claim
	releaseAll := func() {
		for _, c := range claims {
			c.release()
		}
	}
	for _, kind := range businesses.AllKinds() {
		state := business.Statuses.Get(kind)
		if state != businesses.StatePending && state != businesses.StateFailed {
			continue
		}
		release, ok := s.guard.acquire(businessID, kind)
		if !ok {
			releaseAll()
			return ErrRunInProgress
		}
		claims = append(claims, claim{kind: kind, release: release})
	}
	defer releaseAll()

	metrics.IncStreamOpened()
	telemetry.Info("analysis.stream", map[string]any{
		"request_id":  requestIDFromContext(ctx),
		"owner_id":    ownerID,
		"business_id": businessID,
		"kinds":       len(claims),
	})

	if err := emit(Event{Name: EventStatusUpdate, Data: map[string]any{
		"statuses": statusSnapshot(business.Statuses),
	}}); err != nil {
		return nil
	}
	if len(claims) == 0 {
		emitFinal(emit, business.Statuses)
		return nil
	}

	for _, c := range claims {
		if err := s.persist(ctx, businessID, "status update", func() error {
			return s.Repo.UpdateStatus(ctx, businessID, c.kind, businesses.StateInProgress)
		}); err != nil {
			emit(Event{Name: EventError, Data: map[string]any{
				"code":    ErrorCodeStorage,
				"message": "failed to update analysis status",
			}})
			return nil
		}
		business.Statuses.Set(c.kind, businesses.StateInProgress)
		metrics.IncAnalysisStarted(string(c.kind))

		if err := emit(Event{Name: EventAnalysisStarted, Data: map[string]any{
			"kind": string(c.kind),
		}}); err != nil {
			s.markFailed(ctx, businessID, c.kind, context.Canceled, time.Now().UTC())
			return nil
		}

		startedAt := time.Now().UTC()
		payload, runErr := s.invoke(ctx, c.kind, business.Profile())
		if runErr != nil {
			s.markFailed(ctx, businessID, c.kind, runErr, startedAt)
			business.Statuses.Set(c.kind, businesses.StateFailed)

			if err := emit(Event{Name: EventAnalysisFailed, Data: map[string]any{
				"kind": string(c.kind),
				"code": classifyFailure(runErr),
			}}); err != nil {
				return nil
			}
			var agentErr *agent.Error
			if errors.As(runErr, &agentErr) {
				continue
			}
			// An unexpected failure aborts the stream; unreached kinds keep
			// their last persisted state.
			emit(Event{Name: EventError, Data: map[string]any{
				"code":    classifyFailure(runErr),
				"message": "analysis run aborted",
			}})
			return nil
		}

		if err := s.persistResult(ctx, businessID, c.kind, payload); err != nil {
			s.markFailed(ctx, businessID, c.kind, err, startedAt)
			if err := emit(Event{Name: EventAnalysisFailed, Data: map[string]any{
				"kind": string(c.kind),
				"code": ErrorCodeStorage,
			}}); err != nil {
				return nil
			}
			emit(Event{Name: EventError, Data: map[string]any{
				"code":    ErrorCodeStorage,
				"message": "failed to store analysis result",
			}})
			return nil
		}
		s.markCompleted(ctx, business, c.kind, startedAt)
		business.Statuses.Set(c.kind, businesses.StateCompleted)

		if err := emit(Event{Name: EventAnalysisCompleted, Data: map[string]any{
			"kind":   string(c.kind),
			"result": payload,
		}}); err != nil {
			return nil
		}
	}

	emitFinal(emit, business.Statuses)
	return nil
}

func emitFinal(emit EmitFunc, statuses businesses.StatusMap) {
	emit(Event{Name: EventAllCompleted, Data: map[string]any{
		"statuses": statusSnapshot(statuses),
	}})
}

func statusSnapshot(statuses businesses.StatusMap) map[string]string {
	out := make(map[string]string, 4)
	for _, kind := range businesses.AllKinds() {
		out[string(kind)] = string(statuses.Get(kind))
	}
	return out
}
