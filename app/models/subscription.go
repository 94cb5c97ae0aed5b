package models

import "time"

// Billing provider constants used across billing-related models.
const (
	BillingProviderSafe2Pay = "safe2pay"
)

const (
	SubscriptionStatusPending   = "pending"
	SubscriptionStatusActive    = "active"
	SubscriptionStatusSuspended = "suspended"
	SubscriptionStatusCancelled = "cancelled"
	SubscriptionStatusExpired   = "expired"
)

const (
	PlanMonthly = "monthly"
	PlanAnnual  = "annual"
)

// Subscription is the current state of one recurring-billing relationship
// with the payment provider. Rows are never deleted; cancelled and expired
// are terminal statuses.
type Subscription struct {
	ID                     uint                `gorm:"primaryKey" json:"id"`
	Provider               string              `gorm:"type:varchar(20);not null;index:ux_subscriptions_provider_subid,unique,priority:1" json:"provider"`
	ProviderSubscriptionID string              `gorm:"type:varchar(191);not null;index:ux_subscriptions_provider_subid,unique,priority:2" json:"provider_subscription_id"`
	AthleteID              uint                `gorm:"not null;index" json:"athlete_id"`
	AcademyID              *uint               `gorm:"index" json:"academy_id,omitempty"`
	Plan                   string              `gorm:"type:varchar(20);not null;default:'monthly'" json:"plan"`
	Amount                 float64             `gorm:"type:decimal(10,2);not null;default:0" json:"amount"`
	Status                 string              `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	StartedAt              time.Time           `gorm:"type:timestamp;not null" json:"started_at"`
	NextChargeAt           *time.Time          `gorm:"type:timestamp;default:null" json:"next_charge_at,omitempty"`
	CancelledAt            *time.Time          `gorm:"type:timestamp;default:null" json:"cancelled_at,omitempty"`
	Version                uint                `gorm:"not null;default:1" json:"version"`
	Events                 []SubscriptionEvent `gorm:"foreignKey:SubscriptionID" json:"events,omitempty"`
	CreatedAt              time.Time           `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt              time.Time           `gorm:"autoUpdateTime" json:"updated_at"`
}

func IsTerminalSubscriptionStatus(status string) bool {
	return status == SubscriptionStatusCancelled || status == SubscriptionStatusExpired
}
