package models

import (
	"time"
)

// Tier is the plan an API key belongs to.
type Tier string

const (
	TierAnonymous  Tier = "anonymous"
	TierFree       Tier = "free"
	TierStarter    Tier = "starter"
	TierBusiness   Tier = "business"
	TierEnterprise Tier = "enterprise"
)

// IsValid checks if the tier is one of the supported enum values.
func (t Tier) IsValid() bool {
	switch t {
	case TierAnonymous, TierFree, TierStarter, TierBusiness, TierEnterprise:
		return true
	}
	return false
}

// DefaultWindow is the span over which tier limits are counted.
const DefaultWindow = 24 * time.Hour

// TierLimit is the allowance and catalogue entry for one tier. A zero
// RequestsPerWindow means unlimited.
type TierLimit struct {
	Tier              Tier
	Name              string
	RequestsPerWindow int
	Price             string
	Features          []string
}

// Unlimited reports whether the tier bypasses counting.
func (l TierLimit) Unlimited() bool {
	return l.RequestsPerWindow == 0
}

// DefaultTiers returns the published plans, cheapest first.
func DefaultTiers() []TierLimit {
	return []TierLimit{
		{Tier: TierAnonymous, Name: "Anonymous", RequestsPerWindow: 5, Price: "$0/mo",
			Features: []string{"Quick checks without an API key"}},
		{Tier: TierFree, Name: "Free", RequestsPerWindow: 10, Price: "$0/mo",
			Features: []string{"Basic predictions", "Tree attributions"}},
		{Tier: TierStarter, Name: "Starter", RequestsPerWindow: 500, Price: "$99/mo",
			Features: []string{"Full API access", "Tree and perturbation attributions", "Adverse action notices"}},
		{Tier: TierBusiness, Name: "Business", RequestsPerWindow: 5000, Price: "$299/mo",
			Features: []string{"Batch processing", "Fairness audits", "Priority support"}},
		{Tier: TierEnterprise, Name: "Enterprise", RequestsPerWindow: 0, Price: "$999/mo",
			Features: []string{"Unlimited predictions", "Audit trail", "Custom models"}},
	}
}

// APIKey binds a secret to a tier.
type APIKey struct {
	Key  string
	Tier Tier
	Name string
}

// DefaultAPIKeys returns the demonstration keys, one per paid tier.
func DefaultAPIKeys() []APIKey {
	return []APIKey{
		{Key: "demo-key-free-tier", Tier: TierFree, Name: "Demo User"},
		{Key: "starter-key-500", Tier: TierStarter, Name: "Starter User"},
		{Key: "business-key-5000", Tier: TierBusiness, Name: "Business User"},
		{Key: "enterprise-key-unlimited", Tier: TierEnterprise, Name: "Enterprise User"},
	}
}

// RateLimitResult represents the outcome of a rate limit check.
type RateLimitResult struct {
	Allowed    bool      `json:"allowed"`
	Limit      int       `json:"limit"`
	Remaining  int       `json:"remaining"`
	ResetAt    time.Time `json:"reset_at"`
	RetryAfter int       `json:"retry_after,omitempty"` // seconds, only set when not allowed
}

// QuotaDecision is the quota service's answer for one request.
type QuotaDecision struct {
	Tier      Tier
	KeyID     string
	Unlimited bool
	Degraded  bool
	Result    *RateLimitResult
}

// Allowed reports whether the request may proceed.
func (d *QuotaDecision) Allowed() bool {
	return d.Unlimited || (d.Result != nil && d.Result.Allowed)
}
