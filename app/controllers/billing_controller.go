package controllers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/titanfed/titan/internal/pkg/billing"
)

const billingRequestTimeout = 15 * time.Second

// BillingController serves the Safe2Pay webhook and the checkout endpoint.
type BillingController struct {
	service *billing.Service
}

func NewBillingController(service *billing.Service) *BillingController {
	return &BillingController{service: service}
}

// HandleSafe2PayWebhook acknowledges every processed delivery with 200, so
// Safe2Pay stops retrying even when the notification could not be applied.
// Only payloads that cannot be processed at all are answered with 500.
func (bc *BillingController) HandleSafe2PayWebhook(c *fiber.Ctx) error {
	rawBody := append([]byte(nil), c.BodyRaw()...)
	signature := strings.TrimSpace(c.Get(billing.SignatureHeader))

	ctx, cancel := context.WithTimeout(context.Background(), billingRequestTimeout)
	defer cancel()

	res, err := bc.service.HandleWebhook(ctx, rawBody, signature)
	if errors.Is(err, billing.ErrInvalidSignature) {
		log.Warnf("[Webhook] Invalid signature from %s", clientIP(c))
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"success": false, "error": "invalid_signature"})
	}
	if err != nil {
		log.Errorf("[Webhook] Delivery from %s failed: %v", clientIP(c), err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "error": err.Error()})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success":   true,
		"processed": true,
		"outcome":   res.Outcome,
	})
}

// HandleCheckout starts a recurring subscription for an athlete.
func (bc *BillingController) HandleCheckout(c *fiber.Ctx) error {
	var req billing.CheckoutRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "invalid_body", err.Error())
	}

	ctx, cancel := context.WithTimeout(context.Background(), billingRequestTimeout)
	defer cancel()

	res, err := bc.service.Checkout(ctx, req)
	if err != nil {
		return checkoutError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(res)
}

func checkoutError(c *fiber.Ctx, err error) error {
	var verrs validator.ValidationErrors
	var perr *billing.ProviderError
	switch {
	case errors.As(err, &verrs):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error":  "validation_failed",
			"fields": validationFields(verrs),
		})
	case errors.Is(err, billing.ErrCardRequired):
		return errorJSON(c, fiber.StatusUnprocessableEntity, "validation_failed", err.Error())
	case errors.Is(err, billing.ErrEntityNotFound):
		return errorJSON(c, fiber.StatusNotFound, "athlete_not_found", "")
	case errors.Is(err, billing.ErrPlanNotMapped):
		return errorJSON(c, fiber.StatusConflict, "plan_not_available", "")
	case errors.Is(err, billing.ErrProviderNotConfigured):
		return errorJSON(c, fiber.StatusServiceUnavailable, "provider_not_configured", "")
	case errors.As(err, &perr):
		log.Warnf("[Billing] Checkout rejected by provider: %v", perr)
		return errorJSON(c, fiber.StatusBadGateway, "provider_error", perr.Message)
	default:
		log.Errorf("[Billing] Checkout failed: %v", err)
		return errorJSON(c, fiber.StatusInternalServerError, "checkout_failed", "")
	}
}

func validationFields(verrs validator.ValidationErrors) map[string]string {
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		out[fe.Namespace()] = fe.Tag()
	}
	return out
}
