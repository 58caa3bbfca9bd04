package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Profile captures the business inputs handed to the analysis agent.
type Profile struct {
	Name        string
	Industry    string
	Stage       string
	Description string
}

// Agent abstracts the external capability that produces one analysis
// document per kind. Implementations enforce their own timeout, perform no
// retries and no persistence.
type Agent interface {
	Run(ctx context.Context, kind string, profile Profile) (json.RawMessage, error)
}

// Error codes for agent failures.
const (
	CodeTimeout         = "timeout"
	CodeUpstreamFailure = "upstream_failure"
	CodeInvalidProfile  = "invalid_profile"
)

// Error is the typed failure returned by an Agent invocation.
type Error struct {
	Kind string
	Code string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("agent %s: %s", e.Kind, e.Code)
	}
	return fmt.Sprintf("agent %s: %s: %v", e.Kind, e.Code, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError wraps err as a typed agent failure.
func NewError(kind, code string, err error) *Error {
	return &Error{Kind: kind, Code: code, Err: err}
}

// CodeOf returns the agent error code, or upstream_failure for untyped errors.
func CodeOf(err error) string {
	var agentErr *Error
	if errors.As(err, &agentErr) {
		return agentErr.Code
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return CodeTimeout
	}
	return CodeUpstreamFailure
}

// IsTimeout reports whether err is a timeout failure.
func IsTimeout(err error) bool {
	return CodeOf(err) == CodeTimeout
}

// ErrNotConfigured is returned by the placeholder agent.
var ErrNotConfigured = errors.New("analysis agent not configured")

// Placeholder is a stub implementation until provider wiring is added.
type Placeholder struct{}

// Run returns ErrNotConfigured.
func (Placeholder) Run(ctx context.Context, kind string, profile Profile) (json.RawMessage, error) {
	_ = ctx
	_ = profile
	return nil, NewError(kind, CodeUpstreamFailure, ErrNotConfigured)
}
