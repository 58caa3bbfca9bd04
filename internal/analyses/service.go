package analyses

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"venture-backend/internal/agent"
	"venture-backend/internal/businesses"
	"venture-backend/internal/shared/metrics"
	"venture-backend/internal/shared/telemetry"
)

// TargetAll reruns every analysis kind.
const TargetAll = "all"

const persistRetryDelay = 250 * time.Millisecond

// Service orchestrates the analysis lifecycle for businesses: it drives state
// transitions, invokes the agent per kind, and persists every outcome in
// isolation so one kind's failure never corrupts another's state.
type Service struct {
	Repo  businesses.Repo
	Agent agent.Agent

	guard      *runGuard
	retryDelay time.Duration
}

// NewService constructs a Service.
func NewService(repo businesses.Repo, ag agent.Agent) *Service {
	return &Service{
		Repo:       repo,
		Agent:      ag,
		guard:      newRunGuard(),
		retryDelay: persistRetryDelay,
	}
}

// RunAllDeferred schedules RunAll on a detached goroutine after delay. The
// delay lets the triggering response return before any agent work starts.
func (s *Service) RunAllDeferred(businessID string, delay time.Duration) {
	go func() {
		if delay > 0 {
			time.Sleep(delay)
		}
		if err := s.RunAll(context.Background(), businessID); err != nil {
			telemetry.Error("analysis.runall", map[string]any{
				"business_id": businessID,
				"error":       sanitizeError(err),
			})
		}
	}()
}

// RunAll transitions every pending or failed kind to in_progress in one
// batched update, then invokes the agent for each of them concurrently. Each
// kind's outcome is persisted independently as soon as it resolves.
func (s *Service) RunAll(ctx context.Context, businessID string) error {
	business, err := s.Repo.Get(ctx, businessID)
	if err != nil {
		return err
	}

	type claim struct {
		kind    businesses.AnalysisKind
		release func()
	}
	var claims []claim
	affected := 0
	for _, kind := range businesses.AllKinds() {
		state := business.Statuses.Get(kind)
		if state != businesses.StatePending && state != businesses.StateFailed {
			continue
		}
		affected++
		release, ok := s.guard.acquire(businessID, kind)
		if !ok {
			telemetry.Warn("analysis.skip", map[string]any{
				"request_id":  requestIDFromContext(ctx),
				"business_id": businessID,
				"kind":        string(kind),
				"reason":      "run in progress",
			})
			continue
		}
		claims = append(claims, claim{kind: kind, release: release})
	}
	if affected == 0 {
		return nil
	}
	if len(claims) == 0 {
		return ErrRunInProgress
	}

	transitions := make(map[businesses.AnalysisKind]businesses.AnalysisState, len(claims))
	for _, c := range claims {
		transitions[c.kind] = businesses.StateInProgress
	}
	if err := s.persist(ctx, businessID, "batch status update", func() error {
		return s.Repo.UpdateStatuses(ctx, businessID, transitions)
	}); err != nil {
		for _, c := range claims {
			c.release()
		}
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, c := range claims {
		c := c
		g.Go(func() error {
			// Each kind owns its error boundary: runKind never returns an
			// error, so a failure here cannot cancel the sibling runs.
			s.runKind(gctx, business, c.kind, c.release)
			return nil
		})
	}
	return g.Wait()
}

// RunOne reruns a single kind. The existing result is cleared before the
// in_progress transition so a reader never sees a stale payload next to a
// fresh running state.
func (s *Service) RunOne(ctx context.Context, businessID string, kind businesses.AnalysisKind) error {
	business, err := s.Repo.Get(ctx, businessID)
	if err != nil {
		return err
	}

	release, ok := s.guard.acquire(businessID, kind)
	if !ok {
		return ErrRunInProgress
	}

	if err := s.persist(ctx, businessID, "clear result", func() error {
		return s.Repo.ClearResult(ctx, businessID, kind)
	}); err != nil {
		release()
		return err
	}
	if err := s.persist(ctx, businessID, "status update", func() error {
		return s.Repo.UpdateStatus(ctx, businessID, kind, businesses.StateInProgress)
	}); err != nil {
		release()
		return err
	}

	s.runKind(ctx, business, kind, release)
	return nil
}

// runKind invokes the agent for one kind and persists the outcome. It never
// returns an error and never leaves the kind in_progress after the
// invocation has resolved.
func (s *Service) runKind(ctx context.Context, business businesses.Business, kind businesses.AnalysisKind, release func()) {
	defer release()
	startedAt := time.Now().UTC()
	defer func() {
		if r := recover(); r != nil {
			s.markFailed(ctx, business.ID, kind, fmt.Errorf("panic: %v", r), startedAt)
		}
	}()

	metrics.IncAnalysisStarted(string(kind))
	telemetry.Info("analysis.status", map[string]any{
		"request_id":        requestIDFromContext(ctx),
		"owner_id":          business.OwnerID,
		"business_id":       business.ID,
		"kind":              string(kind),
		"status":            businesses.StateInProgress,
		"status_transition": "pending->in_progress",
	})

	payload, err := s.invoke(ctx, kind, business.Profile())
	if err != nil {
		s.markFailed(ctx, business.ID, kind, err, startedAt)
		return
	}

	if err := s.persistResult(ctx, business.ID, kind, payload); err != nil {
		s.markFailed(ctx, business.ID, kind, err, startedAt)
		return
	}
	s.markCompleted(ctx, business, kind, startedAt)
}

// invoke calls the agent with a panic boundary so a misbehaving adapter is
// reported as a failed run, not a crashed process.
func (s *Service) invoke(ctx context.Context, kind businesses.AnalysisKind, profile agent.Profile) (payload json.RawMessage, err error) {
	defer func() {
		if r := recover(); r != nil {
			payload, err = nil, fmt.Errorf("panic: %v", r)
		}
	}()
	return s.Agent.Run(ctx, string(kind), profile)
}

// persistResult stores the payload and flips the kind to completed. The two
// writes are ordered so a completed status always has a result behind it.
func (s *Service) persistResult(ctx context.Context, businessID string, kind businesses.AnalysisKind, payload json.RawMessage) error {
	if err := s.persist(ctx, businessID, "set result", func() error {
		return s.Repo.SetResult(ctx, businessID, kind, payload)
	}); err != nil {
		return fmt.Errorf("set result failed: %w", err)
	}
	if err := s.persist(ctx, businessID, "status update", func() error {
		return s.Repo.UpdateStatus(ctx, businessID, kind, businesses.StateCompleted)
	}); err != nil {
		return fmt.Errorf("set completed failed: %w", err)
	}
	return nil
}

func (s *Service) markCompleted(ctx context.Context, business businesses.Business, kind businesses.AnalysisKind, startedAt time.Time) {
	s.appendInteraction(ctx, business.ID, kind.Label()+" completed")

	completedAt := time.Now().UTC()
	metrics.IncAnalysisCompleted(string(kind))
	metrics.ObserveAnalysisDurationMs(durationMs(startedAt, completedAt))
	telemetry.Info("analysis.status", map[string]any{
		"request_id":        requestIDFromContext(ctx),
		"owner_id":          business.OwnerID,
		"business_id":       business.ID,
		"kind":              string(kind),
		"status":            businesses.StateCompleted,
		"status_transition": "in_progress->completed",
		"duration_ms":       durationMs(startedAt, completedAt),
	})
}

func (s *Service) markFailed(ctx context.Context, businessID string, kind businesses.AnalysisKind, cause error, startedAt time.Time) {
	code := classifyFailure(cause)
	// Use a fresh context so a cancelled run can still record its failure.
	persistCtx := backgroundWithRequestID(ctx)
	if err := s.persist(persistCtx, businessID, "status update", func() error {
		return s.Repo.UpdateStatus(persistCtx, businessID, kind, businesses.StateFailed)
	}); err != nil {
		telemetry.Error("analysis.fail_persist", map[string]any{
			"business_id": businessID,
			"kind":        string(kind),
			"error":       sanitizeError(err),
			"cause":       sanitizeError(cause),
		})
	}
	s.appendInteraction(persistCtx, businessID, fmt.Sprintf("%s failed: %s", kind.Label(), code))

	completedAt := time.Now().UTC()
	metrics.IncAnalysisFailed(string(kind))
	metrics.ObserveAnalysisDurationMs(durationMs(startedAt, completedAt))
	telemetry.Info("analysis.status", map[string]any{
		"request_id":        requestIDFromContext(ctx),
		"business_id":       businessID,
		"kind":              string(kind),
		"status":            businesses.StateFailed,
		"status_transition": "in_progress->failed",
		"error_code":        code,
		"error":             sanitizeError(cause),
		"duration_ms":       durationMs(startedAt, completedAt),
	})
}

// persist runs op, retrying once after a short delay on failure. A write that
// still fails is surfaced to the caller, never silently dropped.
func (s *Service) persist(ctx context.Context, businessID, label string, op func() error) error {
	err := op()
	if err == nil || errors.Is(err, businesses.ErrNotFound) {
		return err
	}
	telemetry.Warn("persist.retry", map[string]any{
		"business_id": businessID,
		"op":          label,
		"error":       sanitizeError(err),
	})
	delay := s.retryDelay
	if delay <= 0 {
		delay = persistRetryDelay
	}
	select {
	case <-time.After(delay):
	case <-ctx.Done():
		return ctx.Err()
	}
	return op()
}

func (s *Service) appendInteraction(ctx context.Context, businessID, message string) {
	if err := s.Repo.AppendInteraction(ctx, businessID, message); err != nil {
		telemetry.Error("analysis.interaction", map[string]any{
			"business_id": businessID,
			"message":     message,
			"error":       sanitizeError(err),
		})
	}
}

func classifyFailure(err error) string {
	if err == nil {
		return ErrorCodeInternal
	}
	var agentErr *agent.Error
	if errors.As(err, &agentErr) {
		switch agentErr.Code {
		case agent.CodeTimeout:
			return ErrorCodeAgentTimeout
		case agent.CodeInvalidProfile:
			return ErrorCodeInvalidProfile
		default:
			return ErrorCodeAgentUpstream
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorCodeAgentTimeout
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "set result") || strings.Contains(msg, "set completed") || strings.Contains(msg, "status update") {
		return ErrorCodeStorage
	}
	return ErrorCodeInternal
}

func sanitizeError(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.ReplaceAll(err.Error(), "\n", " ")
	msg = strings.ReplaceAll(msg, "\r", " ")
	msg = strings.TrimSpace(msg)
	const maxLen = 500
	if len(msg) > maxLen {
		msg = msg[:maxLen]
	}
	return msg
}

func durationMs(startedAt, completedAt time.Time) float64 {
	if startedAt.IsZero() || completedAt.IsZero() {
		return 0
	}
	return float64(completedAt.Sub(startedAt).Microseconds()) / 1000.0
}
