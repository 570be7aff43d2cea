package meta

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cache"
	"go.uber.org/fx"

	"exusiai.dev/crm-backup/internal/catalog"
	"exusiai.dev/crm-backup/internal/pkg/bininfo"
	"exusiai.dev/crm-backup/internal/server/svr"
	"exusiai.dev/crm-backup/internal/service"
)

type Meta struct {
	fx.In

	HealthService *service.Health
	Catalog       *catalog.Catalog
}

func RegisterMeta(meta *svr.Meta, c Meta) {
	meta.Get("/bininfo", c.BinInfo)
	meta.Get("/catalog", c.CatalogInfo)

	// health pings three backends; one answer per second is plenty
	meta.Get("/health", cache.New(cache.Config{Expiration: time.Second}), c.Health)
}

func (c *Meta) BinInfo(ctx *fiber.Ctx) error {
	return ctx.JSON(fiber.Map{
		"version": bininfo.Version,
		"build":   bininfo.BuildTime,
	})
}

type CatalogResponse struct {
	Tables      []string `json:"tables"`
	Modules     []string `json:"modules"`
	DeleteOrder []string `json:"deleteOrder"`
}

// CatalogInfo exposes the table set and ordering a full backup works with.
func (c *Meta) CatalogInfo(ctx *fiber.Ctx) error {
	return ctx.JSON(CatalogResponse{
		Tables:      c.Catalog.InsertOrder(),
		Modules:     c.Catalog.Modules(),
		DeleteOrder: c.Catalog.DeleteOrder(),
	})
}

func (c *Meta) Health(ctx *fiber.Ctx) error {
	if err := c.HealthService.Ping(ctx.UserContext()); err != nil {
		return err
	}

	return ctx.JSON(fiber.Map{
		"status":  "ok",
		"version": bininfo.Version,
	})
}
