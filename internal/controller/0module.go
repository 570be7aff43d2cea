package controller

import (
	"go.uber.org/fx"

	controllerbackup "exusiai.dev/crm-backup/internal/controller/backup"
	controllermeta "exusiai.dev/crm-backup/internal/controller/meta"
)

func Module() fx.Option {
	return fx.Module("controller",
		controllerbackup.Module(),
		controllermeta.Module(),
	)
}
