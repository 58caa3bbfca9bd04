package analyses

import "errors"

var (
	ErrRunInProgress = errors.New("analysis run already in progress")
	ErrInvalidTarget = errors.New("invalid rerun target")
)

const (
	ErrorCodeAgentTimeout   = "AGENT_TIMEOUT"
	ErrorCodeAgentUpstream  = "AGENT_UPSTREAM"
	ErrorCodeInvalidProfile = "INVALID_PROFILE"
	ErrorCodeStorage        = "STORAGE_ERROR"
	ErrorCodeInternal       = "INTERNAL_ERROR"
)
