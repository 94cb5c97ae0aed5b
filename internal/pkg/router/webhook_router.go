package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/titanfed/titan/app/controllers"
	"github.com/titanfed/titan/internal/pkg/constants"
	"github.com/titanfed/titan/internal/pkg/database"
	"github.com/titanfed/titan/internal/pkg/env"
	"github.com/titanfed/titan/internal/pkg/ratelimit"
)

// WebhookRouter serves the Safe2Pay recurrence callback.
type WebhookRouter struct {
	storage fiber.Storage
}

func (h WebhookRouter) InstallRouter(app *fiber.App) {
	// Initialize billing controllers with repositories
	controllers.InitializeBillingControllers(database.GetDB())

	limit := ratelimit.New(h.storage,
		env.GetEnvInt("WEBHOOK_RATE_LIMIT", 120),
		env.GetEnvDuration("WEBHOOK_RATE_WINDOW", time.Minute))

	webhooks := app.Group(constants.WebhooksRoute)
	webhooks.Post(constants.Safe2PayWebhookPath, limit, controllers.HandleSafe2PayWebhook)
}

// NewWebhookRouter limits requests through storage; nil keeps counters in memory.
func NewWebhookRouter(storage fiber.Storage) *WebhookRouter {
	return &WebhookRouter{storage: storage}
}
