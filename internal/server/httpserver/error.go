package httpserver

import (
	"errors"
	"strconv"

	"github.com/getsentry/sentry-go"
	"github.com/gofiber/contrib/fibersentry"
	"github.com/gofiber/fiber/v2"

	"exusiai.dev/crm-backup/internal/constant"
	"exusiai.dev/crm-backup/internal/pkg/apierr"
	"exusiai.dev/crm-backup/internal/pkg/flog"
)

func handleCustomError(ctx *fiber.Ctx, e *apierr.Error) error {
	flog.WarnFrom(ctx).
		Err(e).
		Str("evt.name", "http.error").
		Str("code", e.ErrorCode).
		Msg(e.Message)

	body := fiber.Map{
		"code":  e.ErrorCode,
		"error": e.Message,
	}

	if e.Extras != nil {
		for k, v := range *e.Extras {
			body[k] = v
		}
	}

	return ctx.Status(e.StatusCode).JSON(body)
}

// ErrorHandler renders every handler error as {code, error}. Errors that are
// not *apierr.Error are reported to sentry and answered with a 500, or with
// the status of a *fiber.Error.
func ErrorHandler(ctx *fiber.Ctx, err error) error {
	var e *apierr.Error
	if errors.As(err, &e) {
		return handleCustomError(ctx, e)
	}

	// copy; the sentinel is shared
	re := *apierr.ErrInternalError

	var fe *fiber.Error
	if errors.As(err, &fe) {
		re.StatusCode = fe.Code
		re.ErrorCode = "UNKNOWN_ERROR"
		re.Message = fe.Message
		if fe.Code < fiber.StatusInternalServerError {
			return handleCustomError(ctx, &re)
		}
	}

	flog.ErrorFrom(ctx).
		Stack().
		Err(err).
		Str("evt.name", "http.error.internal").
		Int("status", re.StatusCode).
		Msg("Internal Server Error")

	if hub := fibersentry.GetHubFromContext(ctx); hub != nil {
		hub.Scope().SetTag("status", strconv.Itoa(re.StatusCode))
		if id, ok := ctx.Locals(constant.ContextKeyUserID).(string); ok && id != "" {
			hub.Scope().SetUser(sentry.User{ID: id})
		}
		hub.CaptureException(err)
	}

	return handleCustomError(ctx, &re)
}
