package handler

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sadhef/notify/internal/domain"
)

// HeaderAccountID carries the authenticated account, injected by the
// gateway in front of this service.
const HeaderAccountID = "X-Account-ID"

const accountIDKey = "accountID"

type RoleResolver interface {
	RoleOf(ctx context.Context, accountID string) (domain.Role, error)
}

// AccountID returns the authenticated account id set by RequireAccount.
func AccountID(c *fiber.Ctx) string {
	if id, ok := c.Locals(accountIDKey).(string); ok {
		return id
	}
	return ""
}

func RequireAccount() fiber.Handler {
	return func(c *fiber.Ctx) error {
		accountID := strings.TrimSpace(c.Get(HeaderAccountID))
		if accountID == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing account identity")
		}
		c.Locals(accountIDKey, accountID)
		return c.Next()
	}
}

func RequireAdministrator(roles RoleResolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role, err := roles.RoleOf(c.Context(), AccountID(c))
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return fiber.NewError(fiber.StatusForbidden, "administrator role required")
			}
			return err
		}
		if !role.IsAdministrator() {
			return fiber.NewError(fiber.StatusForbidden, "administrator role required")
		}
		return c.Next()
	}
}
