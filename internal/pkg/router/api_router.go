package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	apiv1 "github.com/titanfed/titan/internal/api/v1"
	"github.com/titanfed/titan/internal/pkg/cache"
	"github.com/titanfed/titan/internal/pkg/constants"
	"github.com/titanfed/titan/internal/pkg/database"
	"github.com/titanfed/titan/internal/pkg/env"
	"github.com/titanfed/titan/internal/pkg/middleware"
	"github.com/titanfed/titan/internal/pkg/ratelimit"
)

type ApiRouter struct {
	storage fiber.Storage
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group(constants.APIRoute, ratelimit.New(h.storage,
		env.GetEnvInt("API_RATE_LIMIT", 60),
		env.GetEnvDuration("API_RATE_WINDOW", time.Minute)))
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	// API v1 routes
	v1 := api.Group(constants.APIV1Path)
	apiServer := apiv1.NewAPIServer(database.GetDB(), cache.GetClient())
	apiv1.RegisterHandlers(v1, apiServer)

	admin := v1.Group(constants.AdminPath, middleware.AdminAPIKeyMiddleware())
	apiv1.RegisterAdminHandlers(admin, apiServer)
}

// NewApiRouter limits requests through storage; nil keeps counters in memory.
func NewApiRouter(storage fiber.Storage) *ApiRouter {
	return &ApiRouter{storage: storage}
}
