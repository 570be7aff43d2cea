package middlewares

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"exusiai.dev/crm-backup/internal/constant"
	"exusiai.dev/crm-backup/internal/pkg/flog"
)

func Logger(app *fiber.App) {
	Chained(
		app,
		flog.NewHandlerMiddleware(log.With().Logger()),
		flog.RequestIDHandler("request_id", constant.RequestIDHeader),
		flog.RemoteAddrHandler("ip"),
		flog.MethodHandler("method"),
		flog.URLHandler("url"),
		flog.UserAgentHandler("user_agent"),
		requestLogger(),
	)
}

func requestLogger() fiber.Handler {
	return flog.AccessHandler(func(c *fiber.Ctx, duration time.Duration, err error) {
		// the status is not final yet when err is non-nil: the error handler writes it later
		evt := flog.InfoFrom(c)
		if err != nil {
			evt = flog.WarnFrom(c).Err(err)
		}
		evt.
			Str("component", "httpreq").
			Int("status", c.Response().StatusCode()).
			Int("size", len(c.Response().Body())).
			Dur("duration", duration).
			Msg("received request")
	})
}
