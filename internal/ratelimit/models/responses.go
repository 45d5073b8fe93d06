package models

import "time"

// RateLimitExceededResponse is the API response when a tier limit is hit.
type RateLimitExceededResponse struct {
	Error      string    `json:"error"`
	Message    string    `json:"message"`
	Tier       Tier      `json:"tier"`
	Limit      int       `json:"limit"`
	ResetAt    time.Time `json:"reset_at"`
	RetryAfter int       `json:"retry_after"` // seconds
}

// PricingResponse lists the published plans.
type PricingResponse struct {
	Window string         `json:"window"`
	Tiers  []TierResponse `json:"tiers"`
}

// TierResponse is one plan.
type TierResponse struct {
	Tier              Tier     `json:"tier"`
	Name              string   `json:"name"`
	Price             string   `json:"price"`
	RequestsPerWindow *int     `json:"requests_per_window,omitempty"`
	Unlimited         bool     `json:"unlimited"`
	Features          []string `json:"features"`
}

// NewPricingResponse renders the tier catalogue.
func NewPricingResponse(tiers []TierLimit, window time.Duration) *PricingResponse {
	resp := &PricingResponse{Window: window.String()}
	for _, t := range tiers {
		tr := TierResponse{
			Tier:      t.Tier,
			Name:      t.Name,
			Price:     t.Price,
			Unlimited: t.Unlimited(),
			Features:  t.Features,
		}
		if !t.Unlimited() {
			n := t.RequestsPerWindow
			tr.RequestsPerWindow = &n
		}
		resp.Tiers = append(resp.Tiers, tr)
	}
	return resp
}
