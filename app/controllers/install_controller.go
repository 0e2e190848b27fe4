package controllers

import (
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/reviewloop/reviewloop/app/repository"
	"github.com/reviewloop/reviewloop/internal/pkg/auth"
	"github.com/reviewloop/reviewloop/internal/pkg/env"
)

// HandleInstallRedirect sends the caller to the GitHub App installation page.
func HandleInstallRedirect(c *fiber.Ctx) error {
	appName := env.GetEnv("GITHUB_APP_NAME", "")
	if appName == "" {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "GITHUB_APP_NAME is not configured",
		})
	}

	return c.Redirect(fmt.Sprintf("https://github.com/apps/%s/installations/new", appName), fiber.StatusFound)
}

// HandleInstallSetup is the installation-link callback. The state value
// encodes the requesting account; it binds a pending installation to that
// account.
func HandleInstallSetup(c *fiber.Ctx) error {
	installationID, err := strconv.ParseInt(c.Query("installation_id"), 10, 64)
	if err != nil || installationID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "installation_id is required",
		})
	}

	accountID, err := auth.ParseLinkState(c.Query("state"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid or expired state",
		})
	}

	inst, err := repository.GetGlobalRepositories().Installation.LinkToAccount(installationID, accountID)
	if err != nil {
		log.Warnf("[Install] link installation %d to account %d: %v", installationID, accountID, err)
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "installation could not be linked",
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status":          "linked",
		"installation_id": inst.InstallationID,
		"account_login":   inst.AccountLogin,
	})
}
