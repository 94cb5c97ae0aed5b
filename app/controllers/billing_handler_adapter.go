package controllers

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/titanfed/titan/app/repository"
	"github.com/titanfed/titan/internal/pkg/billing"
	"github.com/titanfed/titan/internal/pkg/jobqueue"
	"github.com/titanfed/titan/internal/pkg/metrics/counter"
)

// Global controller instances
var (
	billingController      *BillingController
	adminBillingController *AdminBillingController
)

// InitializeBillingControllers wires the billing controllers on top of the
// shared database, job queue and Redis counters.
func InitializeBillingControllers(db *gorm.DB) {
	recorder := counter.NewRecorder()
	repos := repository.GetGlobalRepositories()
	svc := billing.NewServiceFromDB(db, repos, billing.NewSafe2PayClientFromEnv(), jobqueue.GetManager().GetQueue(), recorder)
	SetBillingControllers(NewBillingController(svc), NewAdminBillingController(svc, recorder))
}

// SetBillingControllers replaces the global controllers, e.g. in tests.
func SetBillingControllers(bc *BillingController, ac *AdminBillingController) {
	billingController = bc
	adminBillingController = ac
}

// GetBillingController returns the global billing controller instance
func GetBillingController() *BillingController {
	return billingController
}

// GetAdminBillingController returns the global admin billing controller instance
func GetAdminBillingController() *AdminBillingController {
	return adminBillingController
}

// Adapter functions used by the router

// HandleSafe2PayWebhook - Adapter for the Safe2Pay recurrence callback
func HandleSafe2PayWebhook(c *fiber.Ctx) error {
	return GetBillingController().HandleSafe2PayWebhook(c)
}

// HandleCheckout - Adapter for checkout
func HandleCheckout(c *fiber.Ctx) error {
	return GetBillingController().HandleCheckout(c)
}

// HandleAdminWebhookLogs - Adapter for the webhook ledger listing
func HandleAdminWebhookLogs(c *fiber.Ctx) error {
	return GetAdminBillingController().HandleWebhookLogs(c)
}

// HandleAdminWebhookStats - Adapter for delivery counters
func HandleAdminWebhookStats(c *fiber.Ctx) error {
	return GetAdminBillingController().HandleWebhookStats(c)
}

// HandleAdminGetSubscription - Adapter for subscription details
func HandleAdminGetSubscription(c *fiber.Ctx) error {
	return GetAdminBillingController().HandleGetSubscription(c)
}

// HandleAdminCancelSubscription - Adapter for cancellation requests
func HandleAdminCancelSubscription(c *fiber.Ctx) error {
	return GetAdminBillingController().HandleCancelSubscription(c)
}

// HandleAdminRegisterPlan - Adapter for plan registration
func HandleAdminRegisterPlan(c *fiber.Ctx) error {
	return GetAdminBillingController().HandleRegisterPlan(c)
}

// HandleAdminListPlans - Adapter for the plan mapping listing
func HandleAdminListPlans(c *fiber.Ctx) error {
	return GetAdminBillingController().HandleListPlans(c)
}
