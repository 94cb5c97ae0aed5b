package models

import "time"

const (
	WebhookOutcomeProcessing = "processing"
	WebhookOutcomeSuccess    = "success"
	WebhookOutcomeError      = "error"
	WebhookOutcomeWarning    = "warning"
	WebhookOutcomeSkipped    = "skipped"
	WebhookOutcomeDuplicate  = "duplicate"
)

// Widths of the bounded webhook_logs columns.
const (
	WebhookEventTypeMaxLen      = 100
	WebhookSubscriptionIDMaxLen = 191
	WebhookTransactionIDMaxLen  = 100
)

// WebhookLog is the ledger of inbound provider notifications. Exactly one row
// exists per delivery. DedupeKey is only kept on successfully applied
// deliveries so retries of failed ones can be processed again.
type WebhookLog struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	Provider       string     `gorm:"type:varchar(20);not null;index" json:"provider"`
	EventType      string     `gorm:"type:varchar(100);not null;index" json:"event_type"`
	SubscriptionID *string    `gorm:"type:varchar(191);index" json:"subscription_id,omitempty"`
	TransactionID  string     `gorm:"type:varchar(100);default:''" json:"transaction_id,omitempty"`
	DedupeKey      *string    `gorm:"type:varchar(255);uniqueIndex" json:"-"`
	PayloadJSON    string     `gorm:"type:longtext;not null" json:"payload_json"`
	ActionTaken    string     `gorm:"type:text" json:"action_taken"`
	Outcome        string     `gorm:"type:varchar(20);not null;default:'processing';index" json:"outcome"`
	SignatureValid bool       `gorm:"default:false" json:"signature_valid"`
	ProcessedAt    *time.Time `gorm:"type:timestamp;default:null" json:"processed_at,omitempty"`
	CreatedAt      time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}
