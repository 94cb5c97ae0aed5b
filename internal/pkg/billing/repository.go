package billing

import (
	"context"
	"errors"

	"github.com/titanfed/titan/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProjectionStore provides the DB operations on subscription state used by
// the webhook handlers.
type ProjectionStore interface {
	FindSubscription(ctx context.Context, providerSubscriptionID string) (*models.Subscription, error)
	GetSubscription(ctx context.Context, id uint) (*models.Subscription, error)
	CreateSubscription(ctx context.Context, sub *models.Subscription, first *models.SubscriptionEvent) error
	ApplyTransition(ctx context.Context, providerSubscriptionID string, t Transition, event *models.SubscriptionEvent) (*TransitionResult, error)
	ListEvents(ctx context.Context, subscriptionID uint) ([]models.SubscriptionEvent, error)
	SetSubscriptionPlan(ctx context.Context, subscriptionID uint, plan string) error
	RecordSale(ctx context.Context, sale *models.Sale) error
	LastCycleNumber(ctx context.Context, providerSubscriptionID string) (int, error)
}

type gormStore struct {
	db *gorm.DB
}

// NewProjectionStore creates a projection store backed by GORM.
func NewProjectionStore(db *gorm.DB) ProjectionStore {
	return &gormStore{db: db}
}

func (r *gormStore) FindSubscription(ctx context.Context, providerSubscriptionID string) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.WithContext(ctx).
		Where("provider = ? AND provider_subscription_id = ?", models.BillingProviderSafe2Pay, providerSubscriptionID).
		First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSubscriptionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *gormStore) GetSubscription(ctx context.Context, id uint) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.WithContext(ctx).
		Preload("Events", func(db *gorm.DB) *gorm.DB {
			return db.Order("occurred_at ASC, id ASC")
		}).
		First(&sub, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSubscriptionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// CreateSubscription inserts the row and its first event in one transaction.
// A row that already exists for the provider id is left untouched and
// ErrSubscriptionExists is returned.
func (r *gormStore) CreateSubscription(ctx context.Context, sub *models.Subscription, first *models.SubscriptionEvent) error {
	if sub.Provider == "" {
		sub.Provider = models.BillingProviderSafe2Pay
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "provider"},
				{Name: "provider_subscription_id"},
			},
			DoNothing: true,
		}).Omit("Events").Create(sub)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrSubscriptionExists
		}
		if first == nil {
			return nil
		}
		first.SubscriptionID = sub.ID
		return tx.Create(first).Error
	})
}

// ApplyTransition appends event and applies t with a single conditional
// UPDATE. The event is recorded even when FromStatuses excludes the current
// status.
func (r *gormStore) ApplyTransition(ctx context.Context, providerSubscriptionID string, t Transition, event *models.SubscriptionEvent) (*TransitionResult, error) {
	result := &TransitionResult{}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sub models.Subscription
		err := tx.Where("provider = ? AND provider_subscription_id = ?", models.BillingProviderSafe2Pay, providerSubscriptionID).
			First(&sub).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSubscriptionNotFound
		}
		if err != nil {
			return err
		}
		result.PreviousStatus = sub.Status

		if event != nil {
			event.SubscriptionID = sub.ID
			if err := tx.Create(event).Error; err != nil {
				return err
			}
		}

		updates := map[string]interface{}{
			"status":  t.Status,
			"version": gorm.Expr("version + 1"),
		}
		if t.NextChargeAt != nil {
			updates["next_charge_at"] = t.NextChargeAt
		}
		if t.CancelledAt != nil {
			updates["cancelled_at"] = t.CancelledAt
		}

		q := tx.Model(&models.Subscription{}).Where("id = ?", sub.ID)
		if len(t.FromStatuses) > 0 {
			q = q.Where("status IN ?", t.FromStatuses)
		}
		res := q.Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Status left as is; the event still counts as a change.
			if err := tx.Model(&models.Subscription{}).Where("id = ?", sub.ID).
				Update("version", gorm.Expr("version + 1")).Error; err != nil {
				return err
			}
		}

		var updated models.Subscription
		if err := tx.First(&updated, sub.ID).Error; err != nil {
			return err
		}
		result.Subscription = &updated
		result.StatusChanged = updated.Status != result.PreviousStatus
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *gormStore) ListEvents(ctx context.Context, subscriptionID uint) ([]models.SubscriptionEvent, error) {
	var events []models.SubscriptionEvent
	err := r.db.WithContext(ctx).
		Where("subscription_id = ?", subscriptionID).
		Order("occurred_at ASC, id ASC").
		Find(&events).Error
	return events, err
}

func (r *gormStore) SetSubscriptionPlan(ctx context.Context, subscriptionID uint, plan string) error {
	return r.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("id = ?", subscriptionID).
		Update("plan", plan).Error
}

func (r *gormStore) RecordSale(ctx context.Context, sale *models.Sale) error {
	return r.db.WithContext(ctx).Create(sale).Error
}

// LastCycleNumber returns the highest recorded billing cycle of a
// subscription, 0 when none was recorded yet.
func (r *gormStore) LastCycleNumber(ctx context.Context, providerSubscriptionID string) (int, error) {
	var last int
	err := r.db.WithContext(ctx).Model(&models.Sale{}).
		Where("provider_subscription_id = ?", providerSubscriptionID).
		Select("COALESCE(MAX(cycle_number), 0)").
		Scan(&last).Error
	return last, err
}
