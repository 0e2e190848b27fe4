package main

import (
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/reviewloop/reviewloop/app/repository"
	"github.com/reviewloop/reviewloop/internal/pkg/cache"
	"github.com/reviewloop/reviewloop/internal/pkg/database"
	"github.com/reviewloop/reviewloop/internal/pkg/env"
	"github.com/reviewloop/reviewloop/internal/pkg/maintenance"
	"github.com/reviewloop/reviewloop/internal/pkg/router"
)

func main() {
	app := NewApplication()
	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()
	repository.InitializeFactory(database.GetDB())

	app := fiber.New(fiber.Config{
		AppName:   "reviewloop",
		BodyLimit: 25 * 1024 * 1024, // webhook payloads are small; diffs never come inbound
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// CORS so the dashboard UI can call this backend
	app.Use(cors.New(cors.Config{
		AllowOrigins: env.GetEnv("CORS_ORIGINS", "*"),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	// ROUTER
	router.InstallRouter(app)

	// billing-period rollover worker
	rollover := maintenance.NewManager(
		repository.GetGlobalRepositories().Account,
		15*time.Minute,
		30*24*time.Hour,
	)
	rollover.Start()

	return app
}
