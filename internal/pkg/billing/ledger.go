package billing

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/titanfed/titan/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	maxWebhookLogPageSize = 200

	// claimLease is how long a processing row may hold its dedupe key before
	// a retry of the same delivery may take it over.
	claimLease = 2 * time.Minute
)

// LedgerStore records inbound provider notifications.
type LedgerStore interface {
	Claim(ctx context.Context, entry *models.WebhookLog) (bool, error)
	Finish(ctx context.Context, id uint, outcome, action string) error
	List(ctx context.Context, filter WebhookLogFilter) ([]models.WebhookLog, int64, error)
}

// Ledger is the GORM backed event ledger. The unique dedupe key on
// webhook_logs doubles as the idempotency guard for provider retries.
type Ledger struct {
	db *gorm.DB
}

func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

// Claim inserts the ledger row for one delivery. When entry carries a dedupe
// key that is already held by another row, a separate row without a key is
// written with outcome duplicate and Claim returns false. A key held by a row
// still processing after claimLease is released and claimed again.
func (l *Ledger) Claim(ctx context.Context, entry *models.WebhookLog) (bool, error) {
	if entry.Provider == "" {
		entry.Provider = models.BillingProviderSafe2Pay
	}
	if entry.Outcome == "" {
		entry.Outcome = models.WebhookOutcomeProcessing
	}
	if entry.DedupeKey != nil && strings.TrimSpace(*entry.DedupeKey) == "" {
		entry.DedupeKey = nil
	}

	if entry.DedupeKey == nil {
		return true, l.db.WithContext(ctx).Create(entry).Error
	}

	claimed, err := l.insertKeyed(ctx, entry)
	if err != nil || claimed {
		return claimed, err
	}

	released, err := l.releaseStale(ctx, *entry.DedupeKey)
	if err != nil {
		return false, err
	}
	if released {
		claimed, err = l.insertKeyed(ctx, entry)
		if err != nil || claimed {
			return claimed, err
		}
	}

	now := time.Now()
	key := *entry.DedupeKey
	entry.ID = 0
	entry.DedupeKey = nil
	entry.Outcome = models.WebhookOutcomeDuplicate
	entry.ActionTaken = "SKIPPED: duplicate delivery " + key
	entry.ProcessedAt = &now
	if err := l.db.WithContext(ctx).Create(entry).Error; err != nil {
		return false, err
	}
	return false, nil
}

func (l *Ledger) insertKeyed(ctx context.Context, entry *models.WebhookLog) (bool, error) {
	entry.ID = 0
	tx := l.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "dedupe_key"}},
		DoNothing: true,
	}).Create(entry)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

// releaseStale closes a row that has held key in processing for longer than
// claimLease, which happens when the process died before Finish.
func (l *Ledger) releaseStale(ctx context.Context, key string) (bool, error) {
	now := time.Now()
	tx := l.db.WithContext(ctx).Model(&models.WebhookLog{}).
		Where("dedupe_key = ? AND outcome = ? AND created_at < ?", key, models.WebhookOutcomeProcessing, now.Add(-claimLease)).
		Updates(map[string]interface{}{
			"outcome":      models.WebhookOutcomeError,
			"action_taken": "ERROR: abandoned while processing",
			"dedupe_key":   gorm.Expr("NULL"),
			"processed_at": &now,
		})
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

// Finish annotates a claimed row. Any outcome other than success releases the
// dedupe key so that a provider retry of the same delivery is processed again.
func (l *Ledger) Finish(ctx context.Context, id uint, outcome, action string) error {
	if id == 0 {
		return errors.New("webhook log id is required")
	}
	now := time.Now()
	updates := map[string]interface{}{
		"outcome":      outcome,
		"action_taken": action,
		"processed_at": &now,
	}
	if outcome != models.WebhookOutcomeSuccess {
		updates["dedupe_key"] = gorm.Expr("NULL")
	}
	return l.db.WithContext(ctx).Model(&models.WebhookLog{}).
		Where("id = ? AND outcome = ?", id, models.WebhookOutcomeProcessing).
		Updates(updates).Error
}

// List returns ledger rows, newest first, with the total count for paging.
func (l *Ledger) List(ctx context.Context, filter WebhookLogFilter) ([]models.WebhookLog, int64, error) {
	q := l.db.WithContext(ctx).Model(&models.WebhookLog{})
	if filter.EventType != "" {
		q = q.Where("event_type = ?", filter.EventType)
	}
	if filter.Outcome != "" {
		q = q.Where("outcome = ?", filter.Outcome)
	}
	if filter.SubscriptionID != "" {
		q = q.Where("subscription_id = ?", filter.SubscriptionID)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 || limit > maxWebhookLogPageSize {
		limit = 50
	}
	var logs []models.WebhookLog
	err := q.Order("id DESC").Limit(limit).Offset(filter.Offset).Find(&logs).Error
	return logs, total, err
}
