package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/reviewloop/reviewloop/app/models"
	"github.com/reviewloop/reviewloop/app/repository"
	"github.com/reviewloop/reviewloop/internal/pkg/auth"
)

// HandleGetAccount returns the authenticated caller's account summary.
func HandleGetAccount(c *fiber.Ctx) error {
	accountID, ok := auth.AccountID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "not authenticated"})
	}

	repos := repository.GetGlobalRepositories()
	account, err := repos.Account.GetWithPlan(accountID)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "account not found"})
	}

	return c.Status(fiber.StatusOK).JSON(accountSummaryWithPlan(account))
}

// HandleGetAccountReviews returns the caller's recent review audit entries.
func HandleGetAccountReviews(c *fiber.Ctx) error {
	accountID, ok := auth.AccountID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "not authenticated"})
	}

	limit := c.QueryInt("limit", 50)
	logs, err := repository.GetGlobalRepositories().ReviewLog.GetByAccountID(accountID, limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "review log lookup failed"})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"reviews": logs})
}

// HandleGetInstallState issues the opaque state value for the installation
// setup callback, binding the upcoming installation to the caller.
func HandleGetInstallState(c *fiber.Ctx) error {
	accountID, ok := auth.AccountID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "not authenticated"})
	}

	state, err := auth.IssueLinkState(accountID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "state issuance failed"})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"state": state})
}

func accountSummary(repos *repository.Repositories, account *models.Account) fiber.Map {
	planSlug := ""
	if account.PlanID != nil {
		if plan, err := repos.Plan.GetByID(*account.PlanID); err == nil {
			planSlug = plan.Slug
		}
	}
	return fiber.Map{
		"id":       account.ID,
		"username": account.Username,
		"plan":     planSlug,
	}
}

func accountSummaryWithPlan(account *models.Account) fiber.Map {
	planSlug := ""
	var limit *int
	if account.Plan != nil {
		planSlug = account.Plan.Slug
		limit = account.Plan.MonthlyReviewLimit
	}
	return fiber.Map{
		"id":                       account.ID,
		"username":                 account.Username,
		"plan":                     planSlug,
		"reviews_used_this_period": account.ReviewsUsedThisPeriod,
		"monthly_review_limit":     limit,
	}
}
