package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// AccountIDKey is the locals key under which the middleware stores the
// authenticated account id.
const AccountIDKey = "account_id"

// RequireAccount authenticates the request via the Authorization bearer
// header and stores the account id in locals for downstream handlers.
func RequireAccount(c *fiber.Ctx) error {
	header := c.Get(fiber.HeaderAuthorization)
	token := strings.TrimPrefix(header, "Bearer ")
	if token == "" || token == header {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "missing bearer token",
		})
	}

	accountID, err := ParseLoginToken(token)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "could not validate credentials",
		})
	}

	c.Locals(AccountIDKey, accountID)
	return c.Next()
}

// AccountID reads the authenticated account id set by RequireAccount.
func AccountID(c *fiber.Ctx) (uint, bool) {
	id, ok := c.Locals(AccountIDKey).(uint)
	return id, ok
}
