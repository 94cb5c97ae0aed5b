package apiv1

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	// Delegate to existing controllers to keep behavior consistent
	"github.com/titanfed/titan/app/controllers"
)

const healthCheckTimeout = 2 * time.Second

// APIServer implements ServerInterface and AdminServerInterface
type APIServer struct {
	db    *gorm.DB
	redis *redis.Client
}

// NewAPIServer creates a new API server instance
func NewAPIServer(db *gorm.DB, redisClient *redis.Client) *APIServer {
	return &APIServer{db: db, redis: redisClient}
}

// GetPing handles the ping endpoint
func (s *APIServer) GetPing(c *fiber.Ctx) error {
	response := Pong{
		Ping: "pong",
	}

	return c.Status(fiber.StatusOK).JSON(response)
}

// GetHealth pings MySQL and Redis. Any failure turns the response into 503.
func (s *APIServer) GetHealth(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), healthCheckTimeout)
	defer cancel()

	health := Health{Status: "ok", Database: "ok", Redis: "ok"}

	if err := s.pingDatabase(ctx); err != nil {
		log.Warnf("[Health] Database check failed: %v", err)
		health.Database = "down"
		health.Status = "degraded"
	}
	if s.redis == nil {
		health.Redis = "down"
		health.Status = "degraded"
	} else if err := s.redis.Ping(ctx).Err(); err != nil {
		log.Warnf("[Health] Redis check failed: %v", err)
		health.Redis = "down"
		health.Status = "degraded"
	}

	status := fiber.StatusOK
	if health.Status != "ok" {
		status = fiber.StatusServiceUnavailable
	}
	return c.Status(status).JSON(health)
}

func (s *APIServer) pingDatabase(ctx context.Context) error {
	if s.db == nil {
		return gorm.ErrInvalidDB
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// PostCheckout starts a subscription checkout.
func (s *APIServer) PostCheckout(c *fiber.Ctx) error {
	return controllers.HandleCheckout(c)
}

func (s *APIServer) GetWebhookLogs(c *fiber.Ctx) error {
	return controllers.HandleAdminWebhookLogs(c)
}

func (s *APIServer) GetWebhookStats(c *fiber.Ctx) error {
	return controllers.HandleAdminWebhookStats(c)
}

func (s *APIServer) GetSubscription(c *fiber.Ctx) error {
	return controllers.HandleAdminGetSubscription(c)
}

// PostCancelSubscription asks the provider to cancel; the webhook finalizes it.
func (s *APIServer) PostCancelSubscription(c *fiber.Ctx) error {
	return controllers.HandleAdminCancelSubscription(c)
}

func (s *APIServer) GetPlans(c *fiber.Ctx) error {
	return controllers.HandleAdminListPlans(c)
}

func (s *APIServer) PostPlan(c *fiber.Ctx) error {
	return controllers.HandleAdminRegisterPlan(c)
}
