package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/titanfed/titan/internal/pkg/ratelimit"
)

// Router registers a group of routes on the app.
type Router interface {
	InstallRouter(app *fiber.App)
}

func InstallRouter(app *fiber.App) {
	// The webhook router initializes the billing controllers, so it runs
	// before the API router that delegates to them.
	storage := ratelimit.NewStorage()
	setup(app, NewWebhookRouter(storage), NewApiRouter(storage))
}
func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}
