package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/titanfed/titan/app/models"
)

// nextChargeInterval is the billing period assumed for next-charge dates.
const nextChargeInterval = 30 * 24 * time.Hour

// DeliveryRecorder counts processed deliveries by kind and outcome.
type DeliveryRecorder interface {
	RecordDelivery(ctx context.Context, eventType, outcome string)
}

// Router dispatches Safe2Pay notifications to the lifecycle handlers. Every
// call to Dispatch or Reject writes exactly one ledger row.
type Router struct {
	ledger   LedgerStore
	store    ProjectionStore
	resolver EntityResolver
	notifier Notifier
	metrics  DeliveryRecorder
	now      func() time.Time
}

type RouterOption func(*Router)

// WithDeliveryRecorder reports every delivery outcome to rec.
func WithDeliveryRecorder(rec DeliveryRecorder) RouterOption {
	return func(r *Router) { r.metrics = rec }
}

// WithClock overrides time.Now for next-charge and event timestamps.
func WithClock(now func() time.Time) RouterOption {
	return func(r *Router) { r.now = now }
}

func NewRouter(ledger LedgerStore, store ProjectionStore, resolver EntityResolver, notifier Notifier, opts ...RouterOption) *Router {
	r := &Router{
		ledger:   ledger,
		store:    store,
		resolver: resolver,
		notifier: notifier,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Dispatch processes one raw webhook body. A *PayloadError is returned for
// bodies that cannot be processed; the ledger row is written in that case too.
// Unknown kinds, duplicates, skips and missing records are not errors.
func (r *Router) Dispatch(ctx context.Context, raw []byte, signatureValid bool) (*DispatchResult, error) {
	ev, err := ParseWebhookPayload(raw)
	if err != nil {
		entry := &models.WebhookLog{
			EventType:      "unknown",
			PayloadJSON:    string(raw),
			SignatureValid: signatureValid,
		}
		return r.recordFailure(ctx, entry, err)
	}

	entry := newLedgerEntry(ev, raw, signatureValid)
	if key := ev.DedupeKey(); key != "" {
		entry.DedupeKey = &key
	}

	claimed, err := r.ledger.Claim(ctx, entry)
	if err != nil {
		return nil, fmt.Errorf("claim webhook log: %w", err)
	}
	result := &DispatchResult{LogID: entry.ID, Kind: ev.Kind}
	if !claimed {
		log.Infof("[Webhook] Duplicate delivery %s/%s ignored", entry.EventType, entry.TransactionID)
		result.Outcome = models.WebhookOutcomeDuplicate
		result.Action = entry.ActionTaken
		r.recordMetrics(ctx, entry.EventType, result.Outcome)
		return result, nil
	}

	if ev.Inferred {
		log.Infof("[Webhook] EventType missing, inferred %s for subscription %s", ev.Kind, ev.SubscriptionID)
	}

	out, herr := r.route(ctx, ev)
	if herr != nil {
		out = failure("%v", herr)
	}
	result.Outcome = out.status
	result.Action = out.action

	// The claimed row must be annotated even when the caller has gone away,
	// otherwise it keeps holding the dedupe key.
	detached := context.WithoutCancel(ctx)
	if err := r.ledger.Finish(detached, entry.ID, out.status, out.action); err != nil {
		log.Errorf("[Webhook] Failed to annotate webhook log %d: %v", entry.ID, err)
	}
	r.recordMetrics(detached, entry.EventType, out.status)
	log.Infof("[Webhook] %s %s -> %s", entry.EventType, ev.SubscriptionID, out.action)

	var perr *PayloadError
	if errors.As(herr, &perr) {
		return result, perr
	}
	return result, nil
}

// Reject writes the ledger row for a delivery refused before dispatch, for
// example on signature mismatch.
func (r *Router) Reject(ctx context.Context, raw []byte, reason error) (*DispatchResult, error) {
	entry := &models.WebhookLog{
		EventType:   "unknown",
		PayloadJSON: string(raw),
	}
	if ev, err := ParseWebhookPayload(raw); err == nil {
		entry = newLedgerEntry(ev, raw, false)
	}
	return r.recordFailure(ctx, entry, reason)
}

func (r *Router) recordFailure(ctx context.Context, entry *models.WebhookLog, cause error) (*DispatchResult, error) {
	out := failure("%v", cause)
	if _, err := r.ledger.Claim(ctx, entry); err != nil {
		log.Errorf("[Webhook] Failed to write webhook log: %v", err)
		return nil, cause
	}
	detached := context.WithoutCancel(ctx)
	if err := r.ledger.Finish(detached, entry.ID, out.status, out.action); err != nil {
		log.Errorf("[Webhook] Failed to annotate webhook log %d: %v", entry.ID, err)
	}
	r.recordMetrics(detached, entry.EventType, out.status)
	log.Warnf("[Webhook] Rejected delivery: %v", cause)
	return &DispatchResult{LogID: entry.ID, Outcome: out.status, Action: out.action}, cause
}

func (r *Router) route(ctx context.Context, ev *WebhookEvent) (outcome, error) {
	switch ev.Kind {
	case EventSubscriptionCreated:
		return r.handleCreated(ctx, ev)
	case EventSubscriptionRenewed:
		return r.handleRenewed(ctx, ev)
	case EventSubscriptionFailed:
		return r.handleFailed(ctx, ev)
	case EventSubscriptionCanceled:
		return r.handleCanceled(ctx, ev)
	case EventSubscriptionExpired:
		return r.handleExpired(ctx, ev)
	default:
		return warning("unrecognized event type %q", string(ev.Kind)), nil
	}
}

// recordMetrics counts unrecognized kinds under "unknown" so clients cannot
// grow the counter set.
func (r *Router) recordMetrics(ctx context.Context, eventType, outcome string) {
	if r.metrics == nil {
		return
	}
	if !EventKind(eventType).Known() {
		eventType = "unknown"
	}
	r.metrics.RecordDelivery(ctx, eventType, outcome)
}

func eventTypeLabel(kind EventKind) string {
	if kind == "" {
		return "unknown"
	}
	return string(kind)
}

// newLedgerEntry fills the ledger columns from a parsed delivery, cut to the
// column widths of webhook_logs.
func newLedgerEntry(ev *WebhookEvent, raw []byte, signatureValid bool) *models.WebhookLog {
	entry := &models.WebhookLog{
		EventType:      models.TruncateRunes(eventTypeLabel(ev.Kind), models.WebhookEventTypeMaxLen),
		TransactionID:  models.TruncateRunes(ev.TransactionID, models.WebhookTransactionIDMaxLen),
		PayloadJSON:    string(raw),
		SignatureValid: signatureValid,
	}
	if ev.SubscriptionID != "" {
		sid := models.TruncateRunes(ev.SubscriptionID, models.WebhookSubscriptionIDMaxLen)
		entry.SubscriptionID = &sid
	}
	return entry
}

// outcome is a handler verdict: the ledger outcome plus the action text.
type outcome struct {
	status string
	action string
}

func success(format string, args ...interface{}) outcome {
	return outcome{status: models.WebhookOutcomeSuccess, action: "SUCCESS: " + fmt.Sprintf(format, args...)}
}

func failure(format string, args ...interface{}) outcome {
	return outcome{status: models.WebhookOutcomeError, action: "ERROR: " + fmt.Sprintf(format, args...)}
}

func warning(format string, args ...interface{}) outcome {
	return outcome{status: models.WebhookOutcomeWarning, action: "WARNING: " + fmt.Sprintf(format, args...)}
}

func skipped(format string, args ...interface{}) outcome {
	return outcome{status: models.WebhookOutcomeSkipped, action: "SKIPPED: " + fmt.Sprintf(format, args...)}
}
