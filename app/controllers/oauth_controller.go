package controllers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	gothfiber "github.com/shareed2k/goth_fiber"
	"gorm.io/gorm"

	"github.com/reviewloop/reviewloop/app/models"
	"github.com/reviewloop/reviewloop/app/repository"
	"github.com/reviewloop/reviewloop/internal/pkg/auth"
)

// HandleOAuthLogin starts the GitHub OAuth flow.
func HandleOAuthLogin(c *fiber.Ctx) error {
	return gothfiber.BeginAuthHandler(c)
}

// HandleOAuthCallback completes the provider flow, creates the account on
// first login (with the default free plan) and returns a bearer token.
func HandleOAuthCallback(c *fiber.Ctx) error {
	u, err := gothfiber.CompleteUserAuth(c)
	if err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "oauth exchange failed",
		})
	}

	githubUserID, err := strconv.ParseInt(u.UserID, 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "provider returned a non-numeric user id",
		})
	}

	repos := repository.GetGlobalRepositories()

	account, err := repos.Account.GetByGithubUserID(githubUserID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		account, err = createAccount(repos, githubUserID, u.NickName, u.Email, u.AvatarURL)
		if err != nil {
			log.Errorf("[OAuth] create account for github user %d: %v", githubUserID, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "account creation failed",
			})
		}
	} else if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "account lookup failed",
		})
	} else {
		// Refresh mutable profile fields; the provider id never changes.
		account.Username = u.NickName
		account.Email = u.Email
		account.AvatarURL = u.AvatarURL
		if err := repos.Account.Update(account); err != nil {
			log.Warnf("[OAuth] refresh profile for account %d: %v", account.ID, err)
		}
	}

	token, err := auth.IssueLoginToken(account.ID, account.GithubUserID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "token issuance failed",
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"token":   token,
		"account": accountSummary(repos, account),
	})
}

// HandleOAuthLogout clears the provider session.
func HandleOAuthLogout(c *fiber.Ctx) error {
	if err := gothfiber.Logout(c); err != nil {
		log.Warnf("[OAuth] logout: %v", err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "logged_out"})
}

func createAccount(repos *repository.Repositories, githubUserID int64, username, email, avatarURL string) (*models.Account, error) {
	account := &models.Account{
		GithubUserID: githubUserID,
		Username:     username,
		Email:        email,
		AvatarURL:    avatarURL,
	}

	// Every account starts on the free tier.
	free, err := repos.Plan.GetBySlug(models.PLAN_FREE)
	if err != nil {
		return nil, err
	}
	account.PlanID = &free.ID

	if err := account.Validate(); err != nil {
		return nil, err
	}
	if err := repos.Account.Create(account); err != nil {
		return nil, err
	}
	return account, nil
}
