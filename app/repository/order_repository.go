package repository

import (
	"time"

	"github.com/titanfed/titan/app/models"
	"gorm.io/gorm"
)

// orderRepository implements the OrderRepository interface
type orderRepository struct {
	db *gorm.DB
}

// NewOrderRepository creates a new order repository instance
func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) Create(order *models.Order) error {
	return r.db.Create(order).Error
}

func (r *orderRepository) GetByID(id uint) (*models.Order, error) {
	var order models.Order
	if err := r.db.First(&order, id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) GetByReference(reference string) (*models.Order, error) {
	var order models.Order
	if err := r.db.Where("reference = ?", reference).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// FindPendingByAthlete returns the oldest pending order of an athlete.
func (r *orderRepository) FindPendingByAthlete(athleteID uint) (*models.Order, error) {
	var order models.Order
	err := r.db.
		Where("athlete_id = ? AND status = ?", athleteID, models.OrderStatusPending).
		Order("id ASC").
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// FindPendingByProviderSubscription returns the pending order that checkout
// linked to a provider subscription.
func (r *orderRepository) FindPendingByProviderSubscription(providerSubscriptionID string) (*models.Order, error) {
	var order models.Order
	err := r.db.
		Where("provider_subscription_id = ? AND status = ?", providerSubscriptionID, models.OrderStatusPending).
		Order("id DESC").
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// Approve only transitions pending orders. Approving an order that is no
// longer pending returns gorm.ErrRecordNotFound.
func (r *orderRepository) Approve(id uint, providerSubscriptionID string) error {
	now := time.Now()
	tx := r.db.Model(&models.Order{}).
		Where("id = ? AND status = ?", id, models.OrderStatusPending).
		Updates(map[string]interface{}{
			"status":                   models.OrderStatusApproved,
			"provider_subscription_id": providerSubscriptionID,
			"approved_at":              &now,
		})
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *orderRepository) MarkFailed(id uint, reason string) error {
	reason = models.TruncateRunes(reason, 255)
	return r.db.Model(&models.Order{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":         models.OrderStatusFailed,
			"failure_reason": reason,
		}).Error
}

func (r *orderRepository) AttachProviderSubscription(id uint, providerSubscriptionID, paymentURL string) error {
	return r.db.Model(&models.Order{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"provider_subscription_id": providerSubscriptionID,
			"payment_url":              paymentURL,
		}).Error
}
