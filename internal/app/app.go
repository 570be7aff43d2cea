package app

import (
	"time"

	"go.uber.org/fx"

	"exusiai.dev/crm-backup/internal/app/appconfig"
	"exusiai.dev/crm-backup/internal/app/appcontext"
	"exusiai.dev/crm-backup/internal/catalog"
	"exusiai.dev/crm-backup/internal/controller"
	"exusiai.dev/crm-backup/internal/infra"
	"exusiai.dev/crm-backup/internal/pkg/logger"
	"exusiai.dev/crm-backup/internal/repo"
	"exusiai.dev/crm-backup/internal/server"
	"exusiai.dev/crm-backup/internal/service"
	"exusiai.dev/crm-backup/internal/workers/backupwkr"
)

func Options(ctx appcontext.Ctx, additionalOpts ...fx.Option) []fx.Option {
	conf, err := appconfig.Parse(ctx)
	if err != nil {
		panic(err)
	}

	// logger and configuration are the only two things that are not in the fx graph
	// because some other packages need them to be initialized before fx starts
	logger.Configure(conf)

	baseOpts := []fx.Option{
		// fx meta
		fx.WithLogger(logger.Fx),

		// Misc
		fx.Supply(conf),
		fx.Supply(catalog.Default),

		// Infrastructures
		infra.Module(),

		// Repositories
		repo.Module(),

		// Services
		service.Module(),

		// Global Singleton Inits: keep those before controllers so that they are
		// initialized before any route is registered.
		fx.Invoke(infra.SentryInit),
		fx.Invoke(infra.Tracing),
	}

	if ctx.Serving() {
		baseOpts = append(baseOpts,
			// Servers
			server.Module(),

			// Controllers
			controller.Module(),

			// Workers
			fx.Invoke(backupwkr.Start),
		)
	}

	baseOpts = append(baseOpts,
		// fx Extra Options
		fx.StartTimeout(15*time.Second),
		// StopTimeout covers an in-flight scheduled backup or restore on shutdown.
		fx.StopTimeout(5*time.Minute),
	)

	return append(baseOpts, additionalOpts...)
}

func New(ctx appcontext.Ctx, additionalOpts ...fx.Option) *fx.App {
	return fx.New(Options(ctx, additionalOpts...)...)
}
