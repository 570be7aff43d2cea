package backup

import "go.uber.org/fx"

func Module() fx.Option {
	return fx.Module("controller.backup", fx.Invoke(RegisterBackup))
}
