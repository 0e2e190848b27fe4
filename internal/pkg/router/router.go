package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/reviewloop/reviewloop/app/controllers"
	"github.com/reviewloop/reviewloop/internal/pkg/auth"
	"github.com/reviewloop/reviewloop/internal/pkg/oauth"
)

// InstallRouter registers all routes. Must run after database and cache
// setup.
func InstallRouter(app *fiber.App) {
	// init oauth provider + state store
	oauth.Setup()

	// wire the webhook event router
	controllers.InitializeWebhookController()

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
	})

	// GitHub App surface
	app.Post("/webhook", controllers.HandleWebhook)
	app.Get("/github/install", controllers.HandleInstallRedirect)
	app.Get("/github/setup", controllers.HandleInstallSetup)

	// Login flow
	app.Get("/auth/github", controllers.HandleOAuthLogin)
	app.Get("/auth/github/callback", controllers.HandleOAuthCallback)
	app.Get("/auth/logout", controllers.HandleOAuthLogout)

	// Authenticated API
	api := app.Group("/api", limiter.New())
	v1 := api.Group("/v1")
	v1.Get("/me", auth.RequireAccount, controllers.HandleGetAccount)
	v1.Get("/me/reviews", auth.RequireAccount, controllers.HandleGetAccountReviews)
	v1.Get("/install-state", auth.RequireAccount, controllers.HandleGetInstallState)
}
