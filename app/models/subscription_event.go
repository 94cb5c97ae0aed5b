package models

import "time"

const (
	SubscriptionEventCreated  = "created"
	SubscriptionEventRenewed  = "renewed"
	SubscriptionEventFailed   = "failed"
	SubscriptionEventCanceled = "canceled"
	SubscriptionEventExpired  = "expired"
)

// SubscriptionEvent is one entry of a subscription's lifecycle history.
// Events are only ever inserted.
type SubscriptionEvent struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	SubscriptionID uint      `gorm:"not null;index:idx_subscription_events_sub_time,priority:1" json:"subscription_id"`
	Kind           string    `gorm:"type:varchar(20);not null" json:"kind"`
	TransactionID  string    `gorm:"type:varchar(100);default:''" json:"transaction_id,omitempty"`
	StatusCode     int       `gorm:"default:0" json:"status_code"`
	Amount         float64   `gorm:"type:decimal(10,2);default:0" json:"amount"`
	Reason         string    `gorm:"type:varchar(255);default:''" json:"reason,omitempty"`
	PayloadJSON    string    `gorm:"type:text" json:"payload,omitempty"`
	OccurredAt     time.Time `gorm:"type:timestamp;not null;index:idx_subscription_events_sub_time,priority:2" json:"occurred_at"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
}
