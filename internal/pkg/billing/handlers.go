package billing

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/gofiber/fiber/v2/log"

	"github.com/titanfed/titan/app/models"
)

const defaultFailureReason = "payment failed"

func (r *Router) handleCreated(ctx context.Context, ev *WebhookEvent) (outcome, error) {
	if ev.SubscriptionID == "" {
		return outcome{}, missingField("IdSubscription")
	}
	if ev.Email == "" {
		return outcome{}, missingField("Customer.Email")
	}
	if !ev.Status.IsPaid() {
		return skipped("subscription %s created with transaction status %d (%s)", ev.SubscriptionID, ev.StatusCode, ev.Status), nil
	}

	entity, err := r.resolver.Resolve(ctx, ev.Email)
	if errors.Is(err, ErrEntityNotFound) {
		log.Warnf("[Webhook] No athlete for %s (subscription %s)", ev.Email, ev.SubscriptionID)
		return failure("athlete not found for email %s", ev.Email), nil
	}
	if err != nil {
		return failure("%v", err), nil
	}

	now := r.now()
	next := now.Add(nextChargeInterval)
	sub := &models.Subscription{
		Provider:               models.BillingProviderSafe2Pay,
		ProviderSubscriptionID: ev.SubscriptionID,
		AthleteID:              entity.AthleteID,
		AcademyID:              entity.AcademyID,
		Plan:                   models.PlanMonthly,
		Amount:                 ev.Amount,
		Status:                 models.SubscriptionStatusActive,
		StartedAt:              now,
		NextChargeAt:           &next,
	}
	err = r.store.CreateSubscription(ctx, sub, r.newEvent(ev, models.SubscriptionEventCreated, ""))
	if errors.Is(err, ErrSubscriptionExists) {
		return warning("subscription %s already exists", ev.SubscriptionID), nil
	}
	if err != nil {
		return failure("%v", err), nil
	}

	if r.notifier != nil {
		r.notifier.SubscriptionConfirmed(ctx, entity, sub, ev)
	}
	return success("subscription %s created for athlete %d", ev.SubscriptionID, entity.AthleteID), nil
}

func (r *Router) handleRenewed(ctx context.Context, ev *WebhookEvent) (outcome, error) {
	if ev.SubscriptionID == "" {
		return outcome{}, missingField("IdSubscription")
	}
	if !ev.Status.IsPaid() {
		return skipped("renewal of %s with transaction status %d (%s)", ev.SubscriptionID, ev.StatusCode, ev.Status), nil
	}

	next := r.now().Add(nextChargeInterval)
	res, err := r.store.ApplyTransition(ctx, ev.SubscriptionID, Transition{
		Status:       models.SubscriptionStatusActive,
		NextChargeAt: &next,
	}, r.newEvent(ev, models.SubscriptionEventRenewed, ""))
	if errors.Is(err, ErrSubscriptionNotFound) {
		return failure("subscription %s not found", ev.SubscriptionID), nil
	}
	if err != nil {
		return failure("%v", err), nil
	}

	if r.notifier != nil {
		r.notifier.SubscriptionRenewed(ctx, res.Subscription, ev)
	}
	return success("subscription %s renewed, next charge %s", ev.SubscriptionID, next.Format("2006-01-02")), nil
}

// handleFailed suspends active subscriptions. Pending subscriptions were never
// confirmed and stay pending; terminal ones stay terminal.
func (r *Router) handleFailed(ctx context.Context, ev *WebhookEvent) (outcome, error) {
	if ev.SubscriptionID == "" {
		return outcome{}, missingField("IdSubscription")
	}
	reason := ev.Reference
	if reason == "" {
		reason = defaultFailureReason
	}

	res, err := r.store.ApplyTransition(ctx, ev.SubscriptionID, Transition{
		Status: models.SubscriptionStatusSuspended,
		FromStatuses: []string{
			models.SubscriptionStatusActive,
			models.SubscriptionStatusSuspended,
		},
	}, r.newEvent(ev, models.SubscriptionEventFailed, reason))
	if errors.Is(err, ErrSubscriptionNotFound) {
		return warning("failure notification for unknown subscription %s", ev.SubscriptionID), nil
	}
	if err != nil {
		return failure("%v", err), nil
	}
	return success("payment failure recorded for subscription %s, status %s", ev.SubscriptionID, res.Subscription.Status), nil
}

func (r *Router) handleCanceled(ctx context.Context, ev *WebhookEvent) (outcome, error) {
	if ev.SubscriptionID == "" {
		return outcome{}, missingField("IdSubscription")
	}
	now := r.now()
	_, err := r.store.ApplyTransition(ctx, ev.SubscriptionID, Transition{
		Status:      models.SubscriptionStatusCancelled,
		CancelledAt: &now,
	}, r.newEvent(ev, models.SubscriptionEventCanceled, ev.Reference))
	if errors.Is(err, ErrSubscriptionNotFound) {
		return warning("cancellation for unknown subscription %s", ev.SubscriptionID), nil
	}
	if err != nil {
		return failure("%v", err), nil
	}
	return success("subscription %s cancelled", ev.SubscriptionID), nil
}

func (r *Router) handleExpired(ctx context.Context, ev *WebhookEvent) (outcome, error) {
	if ev.SubscriptionID == "" {
		return outcome{}, missingField("IdSubscription")
	}
	_, err := r.store.ApplyTransition(ctx, ev.SubscriptionID, Transition{
		Status: models.SubscriptionStatusExpired,
	}, r.newEvent(ev, models.SubscriptionEventExpired, ev.Reference))
	if errors.Is(err, ErrSubscriptionNotFound) {
		return warning("expiry for unknown subscription %s", ev.SubscriptionID), nil
	}
	if err != nil {
		return failure("%v", err), nil
	}
	return success("subscription %s expired", ev.SubscriptionID), nil
}

func (r *Router) newEvent(ev *WebhookEvent, kind, reason string) *models.SubscriptionEvent {
	return &models.SubscriptionEvent{
		Kind:          kind,
		TransactionID: ev.TransactionID,
		StatusCode:    ev.StatusCode,
		Amount:        ev.Amount,
		Reason:        models.TruncateRunes(reason, 255),
		PayloadJSON:   eventFragment(ev),
		OccurredAt:    r.now(),
	}
}

// eventFragment keeps the fields worth auditing, not the whole body.
func eventFragment(ev *WebhookEvent) string {
	fragment := map[string]interface{}{
		"IdSubscription": ev.SubscriptionID,
		"Status":         ev.StatusCode,
		"Amount":         ev.Amount,
	}
	if ev.TransactionID != "" {
		fragment["IdTransaction"] = ev.TransactionID
	}
	if ev.Reference != "" {
		fragment["Reference"] = ev.Reference
	}
	if ev.Email != "" {
		fragment["Email"] = ev.Email
	}
	b, err := json.Marshal(fragment)
	if err != nil {
		return "{}"
	}
	return string(b)
}
