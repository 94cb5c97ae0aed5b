package models

import "time"

// Safe2Pay plan frequencies.
const (
	PlanFrequencyMonthly    = 1
	PlanFrequencyQuarterly  = 2
	PlanFrequencySemiannual = 3
	PlanFrequencyAnnual     = 4
)

// BillingPlanMapping maps an internal plan to the provider recurrence plan
// that charges it.
type BillingPlanMapping struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Provider       string    `gorm:"type:varchar(20);not null;index:ux_billing_plan_mappings_plan,unique,priority:1" json:"provider"`
	InternalPlan   string    `gorm:"type:varchar(20);not null;index:ux_billing_plan_mappings_plan,unique,priority:2" json:"internal_plan"`
	ProviderPlanID string    `gorm:"type:varchar(191);not null" json:"provider_plan_id"`
	Amount         float64   `gorm:"type:decimal(10,2);not null;default:0" json:"amount"`
	Frequency      int       `gorm:"not null;default:1" json:"frequency"`
	IsActive       bool      `gorm:"default:true;index" json:"is_active"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// FrequencyForPlan returns the provider frequency used when registering a plan.
func FrequencyForPlan(plan string) int {
	switch plan {
	case PlanAnnual:
		return PlanFrequencyAnnual
	default:
		return PlanFrequencyMonthly
	}
}
