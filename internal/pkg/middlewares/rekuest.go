package middlewares

import (
	"github.com/gofiber/fiber/v2"

	"exusiai.dev/crm-backup/internal/constant"
	"exusiai.dev/crm-backup/internal/util/rekuest"
)

// InjectValidBody parses and validates the body into a T, stored in Locals under constant.ContextKeyBody.
func InjectValidBody[T any]() fiber.Handler {
	return func(c *fiber.Ctx) error {
		dest := new(T)
		if err := rekuest.ValidBody(c, dest); err != nil {
			return err
		}

		c.Locals(constant.ContextKeyBody, dest)

		return c.Next()
	}
}

// Body returns the value stored by InjectValidBody.
func Body[T any](c *fiber.Ctx) *T {
	v, _ := c.Locals(constant.ContextKeyBody).(*T)
	return v
}
