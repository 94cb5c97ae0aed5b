package models

import "time"

const (
	OrderStatusPending  = "pending"
	OrderStatusApproved = "approved"
	OrderStatusFailed   = "failed"
)

// Safe2Pay payment method codes.
const (
	PaymentMethodBoleto = "1"
	PaymentMethodCard   = "2"
	PaymentMethodPix    = "6"
)

// Order is a checkout attempt. It stays pending until the provider confirms
// the first charge of the subscription it originated.
type Order struct {
	ID                     uint       `gorm:"primaryKey" json:"id"`
	AthleteID              uint       `gorm:"not null;index:idx_orders_athlete_status,priority:1" json:"athlete_id"`
	AcademyID              *uint      `gorm:"index" json:"academy_id,omitempty"`
	Plan                   string     `gorm:"type:varchar(20);not null" json:"plan"`
	Amount                 float64    `gorm:"type:decimal(10,2);not null;default:0" json:"amount"`
	PaymentMethod          string     `gorm:"type:varchar(2);not null" json:"payment_method"`
	Reference              string     `gorm:"type:varchar(64);not null;uniqueIndex" json:"reference"`
	Status                 string     `gorm:"type:varchar(20);not null;default:'pending';index:idx_orders_athlete_status,priority:2" json:"status"`
	ProviderSubscriptionID *string    `gorm:"type:varchar(191);index" json:"provider_subscription_id,omitempty"`
	PaymentURL             string     `gorm:"type:varchar(500);default:''" json:"payment_url,omitempty"`
	FailureReason          string     `gorm:"type:varchar(255);default:''" json:"failure_reason,omitempty"`
	ApprovedAt             *time.Time `gorm:"type:timestamp;default:null" json:"approved_at,omitempty"`
	CreatedAt              time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt              time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// PaymentMethodName maps a provider payment method code to a readable name.
func PaymentMethodName(code string) string {
	switch code {
	case PaymentMethodBoleto:
		return "boleto"
	case PaymentMethodPix:
		return "pix"
	default:
		return "card"
	}
}
