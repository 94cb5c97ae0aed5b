package models

import "time"

// Sale records one paid billing cycle.
type Sale struct {
	ID                     uint      `gorm:"primaryKey" json:"id"`
	AthleteID              uint      `gorm:"not null;index" json:"athlete_id"`
	Email                  string    `gorm:"type:varchar(200);default:''" json:"email"`
	ProviderSubscriptionID string    `gorm:"type:varchar(191);not null;index" json:"provider_subscription_id"`
	TransactionID          string    `gorm:"type:varchar(100);default:''" json:"transaction_id"`
	Amount                 float64   `gorm:"type:decimal(10,2);not null;default:0" json:"amount"`
	Plan                   string    `gorm:"type:varchar(20);default:''" json:"plan"`
	PaymentMethod          string    `gorm:"type:varchar(20);default:''" json:"payment_method"`
	CycleNumber            int       `gorm:"not null;default:1" json:"cycle_number"`
	EventType              string    `gorm:"type:varchar(50);default:''" json:"event_type"`
	CreatedAt              time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}
