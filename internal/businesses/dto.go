package businesses

import (
	"encoding/json"
	"time"
)

// BusinessResponse is the outward-facing representation of a business.
type BusinessResponse struct {
	BusinessID   string                     `json:"businessId"`
	Name         string                     `json:"name"`
	Industry     string                     `json:"industry"`
	Stage        string                     `json:"stage"`
	Description  string                     `json:"description"`
	StatusMap    map[string]string          `json:"statusMap"`
	Results      map[string]json.RawMessage `json:"results,omitempty"`
	Interactions []InteractionEntry         `json:"interactionLog,omitempty"`
	CreatedAt    time.Time                  `json:"createdAt"`
}

func toResponse(business Business, includeDetail bool) BusinessResponse {
	resp := BusinessResponse{
		BusinessID:  business.ID,
		Name:        business.Name,
		Industry:    business.Industry,
		Stage:       business.Stage,
		Description: business.Description,
		StatusMap:   statusMapJSON(business.Statuses),
		CreatedAt:   business.CreatedAt,
	}
	if includeDetail {
		resp.Results = completedResults(business)
		resp.Interactions = business.Interactions
	}
	return resp
}

func statusMapJSON(statuses StatusMap) map[string]string {
	out := make(map[string]string, 4)
	for _, kind := range AllKinds() {
		out[string(kind)] = string(statuses.Get(kind))
	}
	return out
}

// completedResults exposes payloads only for completed kinds so a stale
// result is never shown next to a pending or failed state.
func completedResults(business Business) map[string]json.RawMessage {
	out := make(map[string]json.RawMessage)
	for _, kind := range AllKinds() {
		if business.Statuses.Get(kind) != StateCompleted {
			continue
		}
		if payload := business.Results.Get(kind); payload != nil {
			out[string(kind)] = payload
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
