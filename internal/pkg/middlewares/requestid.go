package middlewares

import (
	"github.com/gofiber/fiber/v2"

	"exusiai.dev/crm-backup/internal/constant"
	"exusiai.dev/crm-backup/internal/pkg/flog"
)

// RequestID copies the id assigned by the logger chain into ctx.Locals.
func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if id, ok := flog.IDFromFiberCtx(c); ok {
			c.Locals(constant.ContextKeyRequestID, id.String())
		}
		return c.Next()
	}
}
