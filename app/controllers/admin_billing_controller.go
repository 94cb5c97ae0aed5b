package controllers

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/titanfed/titan/internal/pkg/billing"
	"github.com/titanfed/titan/internal/pkg/metrics/counter"
)

// DeliveryStats is the subset of the counter recorder the stats endpoint needs.
type DeliveryStats interface {
	Snapshot(ctx context.Context) ([]counter.DeliveryCount, error)
	Drain(ctx context.Context) ([]counter.DeliveryCount, error)
}

// AdminBillingController exposes the operator endpoints for billing.
type AdminBillingController struct {
	service *billing.Service
	stats   DeliveryStats
}

func NewAdminBillingController(service *billing.Service, stats DeliveryStats) *AdminBillingController {
	return &AdminBillingController{service: service, stats: stats}
}

// HandleWebhookLogs lists ledger rows, newest first.
func (ac *AdminBillingController) HandleWebhookLogs(c *fiber.Ctx) error {
	filter := billing.WebhookLogFilter{
		EventType:      c.Query("event_type"),
		Outcome:        c.Query("outcome"),
		SubscriptionID: c.Query("subscription_id"),
		Limit:          c.QueryInt("limit", 50),
		Offset:         c.QueryInt("offset", 0),
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	ctx, cancel := context.WithTimeout(context.Background(), billingRequestTimeout)
	defer cancel()

	logs, total, err := ac.service.ListWebhookLogs(ctx, filter)
	if err != nil {
		log.Errorf("[Billing] Listing webhook logs failed: %v", err)
		return errorJSON(c, fiber.StatusInternalServerError, "internal_server_error", "")
	}
	return c.JSON(fiber.Map{"total": total, "items": logs})
}

// HandleWebhookStats returns delivery counters. reset=true drains them.
func (ac *AdminBillingController) HandleWebhookStats(c *fiber.Ctx) error {
	if ac.stats == nil {
		return errorJSON(c, fiber.StatusServiceUnavailable, "stats_unavailable", "")
	}
	ctx, cancel := context.WithTimeout(context.Background(), billingRequestTimeout)
	defer cancel()

	var (
		counts []counter.DeliveryCount
		err    error
	)
	if c.QueryBool("reset", false) {
		counts, err = ac.stats.Drain(ctx)
	} else {
		counts, err = ac.stats.Snapshot(ctx)
	}
	if err != nil {
		log.Errorf("[Billing] Reading delivery stats failed: %v", err)
		return errorJSON(c, fiber.StatusInternalServerError, "internal_server_error", "")
	}
	return c.JSON(fiber.Map{"items": counts})
}

// HandleGetSubscription returns a subscription and its event history.
// remote=true adds the provider's view of the subscription.
func (ac *AdminBillingController) HandleGetSubscription(c *fiber.Ctx) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return errorJSON(c, fiber.StatusBadRequest, "invalid_id", "")
	}
	ctx, cancel := context.WithTimeout(context.Background(), billingRequestTimeout)
	defer cancel()

	sub, err := ac.service.GetSubscription(ctx, id)
	if err != nil {
		return subscriptionError(c, err)
	}
	body := fiber.Map{"subscription": sub}
	if c.QueryBool("remote", false) {
		remote, err := ac.service.GetProviderSubscription(ctx, id)
		if err != nil {
			log.Warnf("[Billing] Provider lookup of subscription %s failed: %v", sub.ProviderSubscriptionID, err)
			body["provider_error"] = err.Error()
		} else {
			body["provider"] = remote
		}
	}
	return c.JSON(body)
}

// HandleCancelSubscription asks Safe2Pay to cancel. The local row changes when
// the cancellation callback arrives, so the response is 202.
func (ac *AdminBillingController) HandleCancelSubscription(c *fiber.Ctx) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return errorJSON(c, fiber.StatusBadRequest, "invalid_id", "")
	}
	ctx, cancel := context.WithTimeout(context.Background(), billingRequestTimeout)
	defer cancel()

	sub, err := ac.service.CancelSubscription(ctx, id)
	if err != nil {
		return subscriptionError(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"ok": true, "subscription": sub})
}

// HandleRegisterPlan creates a provider plan and maps it to an internal plan.
func (ac *AdminBillingController) HandleRegisterPlan(c *fiber.Ctx) error {
	var req billing.RegisterPlanRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "invalid_body", err.Error())
	}
	ctx, cancel := context.WithTimeout(context.Background(), billingRequestTimeout)
	defer cancel()

	mapping, err := ac.service.RegisterPlan(ctx, req)
	var verrs validator.ValidationErrors
	var perr *billing.ProviderError
	switch {
	case err == nil:
		return c.Status(fiber.StatusCreated).JSON(mapping)
	case errors.As(err, &verrs):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error":  "validation_failed",
			"fields": validationFields(verrs),
		})
	case errors.Is(err, billing.ErrProviderNotConfigured):
		return errorJSON(c, fiber.StatusServiceUnavailable, "provider_not_configured", "")
	case errors.As(err, &perr):
		return errorJSON(c, fiber.StatusBadGateway, "provider_error", perr.Message)
	default:
		log.Errorf("[Billing] Plan registration failed: %v", err)
		return errorJSON(c, fiber.StatusInternalServerError, "internal_server_error", "")
	}
}

// HandleListPlans lists the Safe2Pay plan mappings.
func (ac *AdminBillingController) HandleListPlans(c *fiber.Ctx) error {
	plans, err := ac.service.ListPlans(context.Background())
	if err != nil {
		log.Errorf("[Billing] Listing plans failed: %v", err)
		return errorJSON(c, fiber.StatusInternalServerError, "internal_server_error", "")
	}
	return c.JSON(fiber.Map{"items": plans})
}

func subscriptionError(c *fiber.Ctx, err error) error {
	var perr *billing.ProviderError
	switch {
	case errors.Is(err, billing.ErrSubscriptionNotFound):
		return errorJSON(c, fiber.StatusNotFound, "subscription_not_found", "")
	case errors.Is(err, billing.ErrSubscriptionTerminal):
		return errorJSON(c, fiber.StatusConflict, "subscription_terminal", err.Error())
	case errors.Is(err, billing.ErrProviderNotConfigured):
		return errorJSON(c, fiber.StatusServiceUnavailable, "provider_not_configured", "")
	case errors.As(err, &perr):
		return errorJSON(c, fiber.StatusBadGateway, "provider_error", perr.Message)
	default:
		log.Errorf("[Billing] Subscription request failed: %v", err)
		return errorJSON(c, fiber.StatusInternalServerError, "internal_server_error", "")
	}
}
