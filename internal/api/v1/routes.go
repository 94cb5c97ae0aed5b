package apiv1

import (
	"github.com/gofiber/fiber/v2"
)

// ServerInterface covers the public v1 endpoints.
type ServerInterface interface {
	// (GET /ping)
	GetPing(c *fiber.Ctx) error
	// (GET /health)
	GetHealth(c *fiber.Ctx) error
	// (POST /checkout)
	PostCheckout(c *fiber.Ctx) error
}

// AdminServerInterface covers the operator endpoints under /admin.
type AdminServerInterface interface {
	// (GET /admin/webhooks)
	GetWebhookLogs(c *fiber.Ctx) error
	// (GET /admin/webhooks/stats)
	GetWebhookStats(c *fiber.Ctx) error
	// (GET /admin/subscriptions/{id})
	GetSubscription(c *fiber.Ctx) error
	// (POST /admin/subscriptions/{id}/cancel)
	PostCancelSubscription(c *fiber.Ctx) error
	// (GET /admin/plans)
	GetPlans(c *fiber.Ctx) error
	// (POST /admin/plans)
	PostPlan(c *fiber.Ctx) error
}

// RegisterHandlers mounts the public endpoints on router.
func RegisterHandlers(router fiber.Router, si ServerInterface) {
	router.Get("/ping", si.GetPing)
	router.Get("/health", si.GetHealth)
	router.Post("/checkout", si.PostCheckout)
}

// RegisterAdminHandlers mounts the operator endpoints on router. The caller
// attaches authentication to the group.
func RegisterAdminHandlers(router fiber.Router, si AdminServerInterface) {
	router.Get("/webhooks", si.GetWebhookLogs)
	router.Get("/webhooks/stats", si.GetWebhookStats)
	router.Get("/subscriptions/:id", si.GetSubscription)
	router.Post("/subscriptions/:id/cancel", si.PostCancelSubscription)
	router.Get("/plans", si.GetPlans)
	router.Post("/plans", si.PostPlan)
}
