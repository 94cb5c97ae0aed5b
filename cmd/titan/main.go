package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/titanfed/titan/app/repository"
	"github.com/titanfed/titan/internal/pkg/apidocs"
	"github.com/titanfed/titan/internal/pkg/cache"
	"github.com/titanfed/titan/internal/pkg/constants"
	"github.com/titanfed/titan/internal/pkg/database"
	"github.com/titanfed/titan/internal/pkg/env"
	"github.com/titanfed/titan/internal/pkg/jobqueue"
	"github.com/titanfed/titan/internal/pkg/router"
)

const openAPIFile = "public/docs/v1/openapi.yml"

func main() {
	app := NewApplication()

	manager := jobqueue.GetManager()
	manager.Start()

	go func() {
		addr := fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000"))
		if err := app.Listen(addr); err != nil {
			log.Fatalf("[Server] Listen failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("[Server] Shutting down")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Errorf("[Server] Shutdown failed: %v", err)
	}
	manager.Stop()
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()
	repository.InitializeFactory(database.GetDB())

	// Define possible base paths
	basePaths := []string{
		"./",        // Current directory
		"../../",    // From cmd/titan to project root
		"../../../", // Fallback
	}

	// Find the correct base path
	basePath := ""
	for _, path := range basePaths {
		if _, err := os.Stat(path + openAPIFile); !os.IsNotExist(err) {
			basePath = path
			break
		}
	}

	if basePath == "" {
		panic("Could not find project root directory")
	}

	if _, err := apidocs.Load(context.Background(), basePath+openAPIFile); err != nil {
		log.Warnf("[Server] OpenAPI document is invalid: %v", err)
	}

	// init fiber app
	app := fiber.New(fiber.Config{
		BodyLimit: 1 << 20,
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// SWAGGER / OPENAPI
	openAPICfg := swagger.Config{
		BasePath: constants.DocsRoute,
		FilePath: basePath + openAPIFile,
		Path:     constants.DocsV1Path,
	}
	app.Use(swagger.New(openAPICfg))

	// ROUTER
	router.InstallRouter(app)

	return app
}
