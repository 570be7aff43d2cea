package svr

import (
	"github.com/gofiber/fiber/v2"

	"exusiai.dev/crm-backup/internal/app/appconfig"
	"exusiai.dev/crm-backup/internal/pkg/middlewares"
	"exusiai.dev/crm-backup/internal/service"
)

// Admin is the authenticated group every backup endpoint is mounted on.
type Admin struct {
	fiber.Router
}

// Meta holds unauthenticated operational endpoints.
type Meta struct {
	fiber.Router
}

func CreateEndpointGroups(app *fiber.App, conf *appconfig.Config, auth *service.Auth) (*Admin, *Meta) {
	admin := app.Group("/api/admin", middlewares.RequireAdmin([]byte(conf.JWTSecret), auth))
	meta := app.Group("/api/_")

	return &Admin{Router: admin}, &Meta{Router: meta}
}
