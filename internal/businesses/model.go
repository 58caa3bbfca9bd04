package businesses

import (
	"encoding/json"
	"fmt"
	"time"

	"venture-backend/internal/agent"
)

// AnalysisKind identifies one of the four analyses tracked per business.
type AnalysisKind string

const (
	KindMarketAnalysis     AnalysisKind = "market_analysis"
	KindCompetitorAnalysis AnalysisKind = "competitor_analysis"
	KindMarketingStrategy  AnalysisKind = "marketing_strategy"
	KindWebsiteBrief       AnalysisKind = "website_brief"
)

// AllKinds returns the four kinds in canonical order.
func AllKinds() []AnalysisKind {
	return []AnalysisKind{
		KindMarketAnalysis,
		KindCompetitorAnalysis,
		KindMarketingStrategy,
		KindWebsiteBrief,
	}
}

// ParseKind validates a kind received from a client.
func ParseKind(raw string) (AnalysisKind, error) {
	switch AnalysisKind(raw) {
	case KindMarketAnalysis, KindCompetitorAnalysis, KindMarketingStrategy, KindWebsiteBrief:
		return AnalysisKind(raw), nil
	}
	return "", fmt.Errorf("unknown analysis kind %q", raw)
}

// Label returns a human-readable name for interaction log entries.
func (k AnalysisKind) Label() string {
	switch k {
	case KindMarketAnalysis:
		return "Market analysis"
	case KindCompetitorAnalysis:
		return "Competitor analysis"
	case KindMarketingStrategy:
		return "Marketing strategy"
	case KindWebsiteBrief:
		return "Website brief"
	}
	return string(k)
}

// AnalysisState is the lifecycle state of one analysis kind.
type AnalysisState string

const (
	StatePending    AnalysisState = "pending"
	StateInProgress AnalysisState = "in_progress"
	StateCompleted  AnalysisState = "completed"
	StateFailed     AnalysisState = "failed"
)

// StatusMap holds the state of every analysis kind. The shape is fixed so a
// business can never carry missing or extra kinds.
type StatusMap struct {
	MarketAnalysis     AnalysisState `json:"market_analysis"`
	CompetitorAnalysis AnalysisState `json:"competitor_analysis"`
	MarketingStrategy  AnalysisState `json:"marketing_strategy"`
	WebsiteBrief       AnalysisState `json:"website_brief"`
}

// NewStatusMap returns a map with every kind pending.
func NewStatusMap() StatusMap {
	return StatusMap{
		MarketAnalysis:     StatePending,
		CompetitorAnalysis: StatePending,
		MarketingStrategy:  StatePending,
		WebsiteBrief:       StatePending,
	}
}

// Get returns the state for a kind.
func (m StatusMap) Get(kind AnalysisKind) AnalysisState {
	switch kind {
	case KindMarketAnalysis:
		return m.MarketAnalysis
	case KindCompetitorAnalysis:
		return m.CompetitorAnalysis
	case KindMarketingStrategy:
		return m.MarketingStrategy
	case KindWebsiteBrief:
		return m.WebsiteBrief
	}
	return ""
}

// Set updates the state for a kind.
func (m *StatusMap) Set(kind AnalysisKind, state AnalysisState) {
	switch kind {
	case KindMarketAnalysis:
		m.MarketAnalysis = state
	case KindCompetitorAnalysis:
		m.CompetitorAnalysis = state
	case KindMarketingStrategy:
		m.MarketingStrategy = state
	case KindWebsiteBrief:
		m.WebsiteBrief = state
	}
}

// ResultSet holds the stored analysis payloads, nil until the kind completes.
type ResultSet struct {
	MarketAnalysis     json.RawMessage `json:"market_analysis,omitempty"`
	CompetitorAnalysis json.RawMessage `json:"competitor_analysis,omitempty"`
	MarketingStrategy  json.RawMessage `json:"marketing_strategy,omitempty"`
	WebsiteBrief       json.RawMessage `json:"website_brief,omitempty"`
}

// Get returns the stored payload for a kind, or nil.
func (r ResultSet) Get(kind AnalysisKind) json.RawMessage {
	switch kind {
	case KindMarketAnalysis:
		return r.MarketAnalysis
	case KindCompetitorAnalysis:
		return r.CompetitorAnalysis
	case KindMarketingStrategy:
		return r.MarketingStrategy
	case KindWebsiteBrief:
		return r.WebsiteBrief
	}
	return nil
}

// Set stores the payload for a kind. A nil payload clears it.
func (r *ResultSet) Set(kind AnalysisKind, payload json.RawMessage) {
	switch kind {
	case KindMarketAnalysis:
		r.MarketAnalysis = payload
	case KindCompetitorAnalysis:
		r.CompetitorAnalysis = payload
	case KindMarketingStrategy:
		r.MarketingStrategy = payload
	case KindWebsiteBrief:
		r.WebsiteBrief = payload
	}
}

// InteractionEntry is one append-only narrative line in the business history.
type InteractionEntry struct {
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

// Business is a managed business profile with its analysis lifecycle.
type Business struct {
	ID           string             `json:"id"`
	OwnerID      string             `json:"ownerId"`
	Name         string             `json:"name"`
	Industry     string             `json:"industry"`
	Stage        string             `json:"stage"`
	Description  string             `json:"description"`
	Statuses     StatusMap          `json:"statusMap"`
	Results      ResultSet          `json:"results"`
	Interactions []InteractionEntry `json:"interactionLog,omitempty"`
	CreatedAt    time.Time          `json:"createdAt"`
	UpdatedAt    time.Time          `json:"updatedAt"`
}

// Profile returns the agent-facing view of the business.
func (b Business) Profile() agent.Profile {
	return agent.Profile{
		Name:        b.Name,
		Industry:    b.Industry,
		Stage:       b.Stage,
		Description: b.Description,
	}
}
