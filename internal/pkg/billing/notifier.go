package billing

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/titanfed/titan/app/models"
	"github.com/titanfed/titan/app/repository"
	"github.com/titanfed/titan/internal/pkg/jobqueue"
)

// Notifier runs the side effects of a confirmed payment. Implementations are
// best-effort: failures are logged and never change the ledger outcome.
type Notifier interface {
	SubscriptionConfirmed(ctx context.Context, entity *ResolvedEntity, sub *models.Subscription, ev *WebhookEvent)
	SubscriptionRenewed(ctx context.Context, sub *models.Subscription, ev *WebhookEvent)
}

// JobEnqueuer is satisfied by *jobqueue.Queue.
type JobEnqueuer interface {
	EnqueueJob(jobType jobqueue.JobType, payload map[string]interface{}) (*jobqueue.Job, error)
}

// SideEffectNotifier approves the pending checkout order, records sales and
// queues the payment confirmation email.
type SideEffectNotifier struct {
	orders repository.OrderRepository
	store  ProjectionStore
	jobs   JobEnqueuer
}

func NewSideEffectNotifier(orders repository.OrderRepository, store ProjectionStore, jobs JobEnqueuer) *SideEffectNotifier {
	return &SideEffectNotifier{orders: orders, store: store, jobs: jobs}
}

func (n *SideEffectNotifier) SubscriptionConfirmed(ctx context.Context, entity *ResolvedEntity, sub *models.Subscription, ev *WebhookEvent) {
	plan := sub.Plan
	amount := ev.Amount
	method := ev.PaymentMethod

	order, err := n.pendingOrder(entity, sub)
	switch {
	case err == nil:
		if err := n.orders.Approve(order.ID, sub.ProviderSubscriptionID); err != nil {
			log.Warnf("[Billing] Failed to approve order %d for subscription %s: %v", order.ID, sub.ProviderSubscriptionID, err)
		} else {
			log.Infof("[Billing] Order %s approved by subscription %s", order.Reference, sub.ProviderSubscriptionID)
		}
		if order.Plan != "" && order.Plan != sub.Plan {
			if err := n.store.SetSubscriptionPlan(ctx, sub.ID, order.Plan); err != nil {
				log.Warnf("[Billing] Failed to set plan of subscription %s: %v", sub.ProviderSubscriptionID, err)
			}
			plan = order.Plan
		}
		if amount == 0 {
			amount = order.Amount
		}
		if method == "" {
			method = order.PaymentMethod
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		log.Infof("[Billing] No pending order for athlete %d", entity.AthleteID)
	default:
		log.Warnf("[Billing] Pending order lookup failed for athlete %d: %v", entity.AthleteID, err)
	}

	sale := &models.Sale{
		AthleteID:              entity.AthleteID,
		Email:                  entity.Email,
		ProviderSubscriptionID: sub.ProviderSubscriptionID,
		TransactionID:          ev.TransactionID,
		Amount:                 amount,
		Plan:                   plan,
		PaymentMethod:          models.PaymentMethodName(method),
		CycleNumber:            1,
		EventType:              string(EventSubscriptionCreated),
	}
	if err := n.store.RecordSale(ctx, sale); err != nil {
		log.Warnf("[Billing] Failed to record sale for subscription %s: %v", sub.ProviderSubscriptionID, err)
	}

	if n.jobs == nil {
		return
	}
	payload := jobqueue.PaymentConfirmationJobPayload{
		Email:          entity.Email,
		Name:           entity.Name,
		Plan:           plan,
		Amount:         amount,
		SubscriptionID: sub.ProviderSubscriptionID,
		PaymentMethod:  models.PaymentMethodName(method),
	}
	if _, err := n.jobs.EnqueueJob(jobqueue.JobTypePaymentConfirmationEmail, payload.ToMap()); err != nil {
		log.Warnf("[Billing] Failed to enqueue confirmation email for %s: %v", entity.Email, err)
	}
}

// pendingOrder prefers the order checkout linked to the subscription and falls
// back to the athlete's oldest pending order.
func (n *SideEffectNotifier) pendingOrder(entity *ResolvedEntity, sub *models.Subscription) (*models.Order, error) {
	if sub.ProviderSubscriptionID != "" {
		order, err := n.orders.FindPendingByProviderSubscription(sub.ProviderSubscriptionID)
		if err == nil {
			return order, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	return n.orders.FindPendingByAthlete(entity.AthleteID)
}

func (n *SideEffectNotifier) SubscriptionRenewed(ctx context.Context, sub *models.Subscription, ev *WebhookEvent) {
	last, err := n.store.LastCycleNumber(ctx, sub.ProviderSubscriptionID)
	if err != nil {
		log.Warnf("[Billing] Failed to read last cycle of subscription %s: %v", sub.ProviderSubscriptionID, err)
	}
	amount := ev.Amount
	if amount == 0 {
		amount = sub.Amount
	}
	sale := &models.Sale{
		AthleteID:              sub.AthleteID,
		Email:                  ev.Email,
		ProviderSubscriptionID: sub.ProviderSubscriptionID,
		TransactionID:          ev.TransactionID,
		Amount:                 amount,
		Plan:                   sub.Plan,
		PaymentMethod:          models.PaymentMethodName(ev.PaymentMethod),
		CycleNumber:            last + 1,
		EventType:              string(EventSubscriptionRenewed),
	}
	if err := n.store.RecordSale(ctx, sale); err != nil {
		log.Warnf("[Billing] Failed to record renewal sale for subscription %s: %v", sub.ProviderSubscriptionID, err)
	}
}
