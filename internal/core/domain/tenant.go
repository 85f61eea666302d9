package domain

import "time"

// PlanTier bounds the number of end users a tenant may hold.
type PlanTier string

const (
	PlanFree   PlanTier = "free"
	PlanMaker  PlanTier = "maker"
	PlanPro    PlanTier = "pro"
	PlanAgency PlanTier = "agency"
)

var planUserLimits = map[PlanTier]int64{
	PlanFree:   100,
	PlanMaker:  1_000,
	PlanPro:    10_000,
	PlanAgency: 100_000,
}

// UserLimit returns the maximum number of end users for the tier.
// Unknown tiers get the free limit.
func (p PlanTier) UserLimit() int64 {
	if limit, ok := planUserLimits[p]; ok {
		return limit
	}
	return planUserLimits[PlanFree]
}

// Tenant is the isolation boundary for one generated application. Tenants
// are created externally; this service only reads existence and plan tier.
type Tenant struct {
	ID        string    `json:"id" bson:"_id,omitempty"`
	Name      string    `json:"name" bson:"name"`
	Plan      PlanTier  `json:"plan" bson:"plan"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}
